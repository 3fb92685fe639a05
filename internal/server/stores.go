package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/config"
	"github.com/qr-attendance/backend/internal/attendance"
	"github.com/qr-attendance/backend/internal/events"
	"github.com/qr-attendance/backend/pkg/database"
)

// Stores is the persistence backend picked by DB_DRIVER.
type Stores struct {
	Events     events.Store
	Attendance attendance.Store
	close      func() error
}

// Close releases the store connection. Safe to call on a nil *Stores.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to PostgreSQL (and runs migrations) or opens the SQLite file.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Events:     events.NewGormRepository(db),
			Attendance: attendance.NewGormRepository(db),
			close:      func() error { return database.CloseSQLite(db) },
		}, nil
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DSN(), logger)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
		return &Stores{
			Events:     events.NewRepository(pool),
			Attendance: attendance.NewRepository(pool),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}
