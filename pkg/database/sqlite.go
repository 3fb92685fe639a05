package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/qr-attendance/backend/internal/models"
)

// SeedEvents are inserted on first start. Existing ids are left untouched.
var SeedEvents = []models.Event{
	{ID: 1, Name: "Team Meeting", Description: "Weekly team sync meeting", Date: "2024-01-15"},
	{ID: 2, Name: "Training Session", Description: "Employee training workshop", Date: "2024-01-16"},
	{ID: 3, Name: "Company Event", Description: "Annual company gathering", Date: "2024-01-20"},
	{ID: 4, Name: "Conference", Description: "Industry conference attendance", Date: "2024-01-25"},
}

// NewSQLite opens (creating if needed) the SQLite file at path, migrates the schema and seeds events.
func NewSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	// one writer at a time; sqlite serializes anyway and this avoids SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := MigrateSQLite(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info("SQLite database ready", zap.String("path", path))
	return db, nil
}

// MigrateSQLite creates the events and attendance tables and inserts the seed events.
func MigrateSQLite(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Event{}, &models.AttendanceRecord{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	seed := make([]models.Event, len(SeedEvents))
	copy(seed, SeedEvents)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	return nil
}

// CloseSQLite releases the underlying connection.
func CloseSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
