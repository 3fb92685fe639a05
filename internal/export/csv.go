package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/qr-attendance/backend/internal/models"
)

var header = []string{"id", "first_name", "last_name", "birth_date", "event_id", "event_name", "scanned_at"}

// WriteCSV writes records, one row each, after a header row.
func WriteCSV(w io.Writer, records []models.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.FirstName,
			r.LastName,
			r.BirthDate,
			strconv.FormatInt(r.EventID, 10),
			r.EventName,
			r.ScannedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
