package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

func TestNewSQLite_SeedsEventsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")

	db, err := NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, MigrateSQLite(db)) // second run must not duplicate

	var events []models.Event
	require.NoError(t, db.Order("id").Find(&events).Error)
	require.Len(t, events, 4)
	assert.Equal(t, "Team Meeting", events[0].Name)
	assert.Equal(t, "2024-01-25", events[3].Date)
	require.NoError(t, CloseSQLite(db))

	// reopening the same file keeps the data
	db, err = NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.Event{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)
	require.NoError(t, CloseSQLite(db))
}

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_schema.sql", "002_seed_events.sql"}, names)
}
