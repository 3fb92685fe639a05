package kiosk

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/qr-attendance/backend/internal/checkin"
	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/internal/scanner"
)

const msgNoRecords = "No attendance records found."

// Terminal renders kiosk output as text. It implements scanner.UI and is safe for use from the scan goroutine.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal writes to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Printf writes one formatted line.
func (t *Terminal) Printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format+"\n", args...)
}

// ScanStatus implements scanner.UI.
func (t *Terminal) ScanStatus(msg string, kind scanner.StatusKind) {
	t.Printf("[%s] %s", kind, msg)
}

// ScanControls implements scanner.UI.
func (t *Terminal) ScanControls(scanning bool) {
	if scanning {
		t.Printf("  (type \"stop\" to stop scanning)")
		return
	}
	t.Printf("  (type \"scan\" to start scanning)")
}

// Tab prints the tab header.
func (t *Terminal) Tab(tab Tab) {
	t.Printf("== %s ==", tab.Title())
}

// Person prints a scanned or generated identity.
func (t *Terminal) Person(p models.PersonData) {
	t.Printf("Name: %s", p.FullName())
	t.Printf("Birth Date: %s", p.BirthDate)
}

// Chooser prints the event selection step.
func (t *Terminal) Chooser(s *checkin.Session, opts []checkin.Option) {
	t.Printf("Scanned Person Information:")
	t.Person(s.Person)
	if len(opts) == 0 {
		t.Printf("No events available.")
	}
	for i, o := range opts {
		t.Printf("  %d) %s", i+1, o.Label)
	}
	t.Printf("Choose an event with \"select <n>\", or \"cancel\".")
}

// Confirmation prints a successful check-in.
func (t *Terminal) Confirmation(c *checkin.Confirmation) {
	t.Printf("Attendance Confirmed")
	t.Person(c.Person)
	t.Printf("Event: %s", c.EventName)
	t.Printf("Time: %s", c.ConfirmedAt.Local().Format(time.DateTime))
}

// Records prints the attendance listing as a table.
func (t *Terminal) Records(records []models.AttendanceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(records) == 0 {
		fmt.Fprintln(t.w, msgNoRecords)
		return
	}
	tw := tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tBirth Date\tEvent\tDate & Time")
	for _, r := range records {
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n",
			r.FirstName, r.LastName, r.BirthDate, r.EventName, r.ScannedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}
