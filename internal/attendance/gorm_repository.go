package attendance

import (
	"context"

	"gorm.io/gorm"

	"github.com/qr-attendance/backend/internal/models"
)

// GormRepository handles attendance persistence through gorm (SQLite deployments).
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a gorm-backed attendance repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create inserts rec. A zero ScannedAt is set from the gorm clock on insert.
func (r *GormRepository) Create(ctx context.Context, rec *models.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// List returns every attendance row ordered by scanned_at descending.
func (r *GormRepository) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	list := make([]models.AttendanceRecord, 0)
	if err := r.db.WithContext(ctx).Order("scanned_at DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
