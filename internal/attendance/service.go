package attendance

import (
	"context"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

// Notifier is told about every stored record (e.g. to push it to live listings).
type Notifier interface {
	AttendanceRecorded(rec models.AttendanceRecord)
}

// Service validates submissions and talks to the store.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates an attendance service. notifier may be nil.
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Record stores a new attendance record and returns it with its assigned id.
// Identical submissions are stored twice, and EventID is not checked against the events table.
func (s *Service) Record(ctx context.Context, sub models.AttendanceSubmission) (*models.AttendanceRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	rec := sub.Record()
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, &models.DependencyError{Op: "insert attendance", Err: err}
	}
	s.logger.Info("attendance recorded",
		zap.Int64("attendance_id", rec.ID),
		zap.Int64("event_id", rec.EventID),
	)
	if s.notifier != nil {
		s.notifier.AttendanceRecorded(*rec)
	}
	return rec, nil
}

// List returns all records, most recent first.
func (s *Service) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, &models.DependencyError{Op: "list attendance", Err: err}
	}
	return list, nil
}
