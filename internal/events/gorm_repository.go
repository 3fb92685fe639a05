package events

import (
	"context"

	"gorm.io/gorm"

	"github.com/qr-attendance/backend/internal/models"
)

// GormRepository reads events through gorm (SQLite deployments).
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a gorm-backed events repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// List returns all events sorted by name.
func (r *GormRepository) List(ctx context.Context) ([]models.Event, error) {
	list := make([]models.Event, 0)
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
