package attendance

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qr-attendance/backend/internal/models"
)

// Store persists attendance records.
type Store interface {
	// Create inserts rec and fills in the store-assigned ID and ScannedAt.
	Create(ctx context.Context, rec *models.AttendanceRecord) error
	// List returns all records, most recent first.
	List(ctx context.Context) ([]models.AttendanceRecord, error)
}

// Repository handles attendance persistence in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an attendance row; scanned_at comes from the database clock.
func (r *Repository) Create(ctx context.Context, rec *models.AttendanceRecord) error {
	const q = `INSERT INTO attendance (first_name, last_name, birth_date, event_id, event_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, scanned_at`
	return r.pool.QueryRow(ctx, q, rec.FirstName, rec.LastName, rec.BirthDate, rec.EventID, rec.EventName).
		Scan(&rec.ID, &rec.ScannedAt)
}

// List returns every attendance row ordered by scanned_at descending.
func (r *Repository) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, first_name, last_name, birth_date, COALESCE(event_id, 0), COALESCE(event_name, ''), scanned_at
		 FROM attendance ORDER BY scanned_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.AttendanceRecord, 0)
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.BirthDate, &rec.EventID, &rec.EventName, &rec.ScannedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
