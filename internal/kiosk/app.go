// Package kiosk is the terminal front end: generate codes, scan them and browse records.
package kiosk

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/apiclient"
	"github.com/qr-attendance/backend/internal/checkin"
	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/internal/scanner"
	"github.com/qr-attendance/backend/pkg/queue"
)

// QRFileName is the name of the saved QR image.
const QRFileName = "qr-code.png"

// Tab is one of the kiosk views.
type Tab string

const (
	TabGenerate Tab = "generate"
	TabScan     Tab = "scan"
	TabRecords  Tab = "records"
)

// Title is the heading printed when the tab opens.
func (t Tab) Title() string {
	switch t {
	case TabGenerate:
		return "Generate QR Code"
	case TabScan:
		return "Scan QR Code"
	case TabRecords:
		return "Attendance Records"
	}
	return string(t)
}

// API is the server surface the kiosk uses.
type API interface {
	GenerateCode(ctx context.Context, p models.PersonData) (*qrcode.Generated, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	RecordAttendance(ctx context.Context, sub models.AttendanceSubmission) (int64, error)
	ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error)
	RequestExport(ctx context.Context) (string, error)
	ExportStatus(ctx context.Context, jobID string) (*queue.ExportResult, error)
}

// Scanner is the capture loop as seen by the kiosk.
type Scanner interface {
	Start(ctx context.Context) error
	Stop()
	Scanning() bool
	OnDecoded(fn func(models.PersonData))
}

// App wires the scanner, the check-in workflow and the API behind a line-oriented command loop.
// Commands and scan hand-offs are handled on one goroutine.
type App struct {
	api      API
	scanner  Scanner
	workflow *checkin.Workflow
	term     *Terminal
	outDir   string
	logger   *zap.Logger

	tab     Tab
	scanned chan models.PersonData
}

// NewApp creates the kiosk. QR images are saved under outDir.
func NewApp(api API, sc Scanner, term *Terminal, outDir string, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		api:     api,
		scanner: sc,
		term:    term,
		outDir:  outDir,
		logger:  logger,
		tab:     TabGenerate,
		scanned: make(chan models.PersonData, 1),
	}
	a.workflow = checkin.NewWorkflow(api, a.refreshRecords, logger.With(zap.String("component", "checkin")))
	sc.OnDecoded(func(p models.PersonData) {
		select {
		case a.scanned <- p:
		default:
			a.logger.Warn("scan dropped, another person is still pending")
		}
	})
	return a
}

// Tab returns the active tab.
func (a *App) Tab() Tab { return a.tab }

// Workflow exposes the check-in state machine.
func (a *App) Workflow() *checkin.Workflow { return a.workflow }

// Init loads the event list once and the current records.
func (a *App) Init(ctx context.Context) {
	events, err := a.api.ListEvents(ctx)
	if err != nil {
		a.logger.Warn("load events failed", zap.Error(err))
	} else {
		a.workflow.SetEvents(events)
	}
	a.term.Tab(a.tab)
}

// Run reads commands from in until EOF, "quit" or ctx is done. The scanner is stopped on return.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	defer a.scanner.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-a.scanned:
			a.HandleScan(p)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.Handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// HandleScan opens the event chooser for a scanned person. A new scan
// replaces whatever person or confirmation is still on screen.
func (a *App) HandleScan(p models.PersonData) {
	if a.workflow.State() != checkin.Idle {
		a.workflow.Dismiss()
	}
	s, err := a.workflow.Begin(p)
	if err != nil {
		a.logger.Warn("scan dropped", zap.Error(err))
		a.term.ScanStatus("Could not start check-in. Please scan again.", scanner.StatusError)
		return
	}
	a.term.Chooser(s, a.workflow.Options())
}

// Handle executes one command line and reports whether the kiosk should exit.
func (a *App) Handle(ctx context.Context, line string) bool {
	args := splitArgs(line)
	if len(args) == 0 {
		return false
	}
	switch strings.ToLower(args[0]) {
	case "quit", "exit":
		return true
	case "help":
		a.help()
	case "tab":
		if len(args) < 2 {
			a.term.Printf("usage: tab generate|scan|records")
			return false
		}
		a.SwitchTab(ctx, Tab(strings.ToLower(args[1])))
	case "generate":
		a.SwitchTab(ctx, TabGenerate)
		a.generate(ctx, args[1:])
	case "scan", "start":
		a.SwitchTab(ctx, TabScan)
		a.workflow.Dismiss()
		if err := a.scanner.Start(ctx); err != nil {
			// the scanner already reported it on the status line
			a.logger.Warn("camera start failed", zap.Error(err))
		}
	case "stop":
		a.scanner.Stop()
	case "select":
		a.selectEvent(ctx, args[1:])
	case "cancel", "close":
		a.workflow.Dismiss()
	case "records":
		a.SwitchTab(ctx, TabRecords)
	case "export":
		a.export(ctx, args[1:])
	default:
		a.term.Printf("unknown command %q, try \"help\"", args[0])
	}
	return false
}

// SwitchTab activates tab. Leaving the scan tab stops the camera.
func (a *App) SwitchTab(ctx context.Context, tab Tab) {
	switch tab {
	case TabGenerate, TabScan, TabRecords:
	default:
		a.term.Printf("unknown tab %q", string(tab))
		return
	}
	if tab != TabScan && a.scanner.Scanning() {
		a.scanner.Stop()
	}
	if tab == a.tab {
		if tab == TabRecords {
			a.refreshRecords(ctx)
		}
		return
	}
	a.tab = tab
	a.term.Tab(tab)
	if tab == TabRecords {
		a.refreshRecords(ctx)
	}
}

func (a *App) generate(ctx context.Context, args []string) {
	if len(args) != 3 {
		a.term.Printf("usage: generate <first name> <last name> <birth date>")
		return
	}
	p := models.PersonData{FirstName: args[0], LastName: args[1], BirthDate: args[2]}
	a.term.Printf("Generating QR code...")
	gen, err := a.api.GenerateCode(ctx, p)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			a.term.Printf("Error: %s", apiErr.Message)
			return
		}
		a.logger.Warn("generate code failed", zap.Error(err))
		a.term.Printf("Failed to generate QR code. Please try again.")
		return
	}
	a.term.Printf("QR code generated successfully!")
	a.term.Person(gen.Data)

	path, err := a.saveQR(gen.QRCode)
	if err != nil {
		a.logger.Warn("save qr image failed", zap.Error(err))
		a.term.Printf("Could not save %s: %v", QRFileName, err)
		return
	}
	a.term.Printf("Saved %s", path)
}

func (a *App) saveQR(uri string) (string, error) {
	raw, err := qrcode.PNGFromDataURI(uri)
	if err != nil {
		return "", err
	}
	path := filepath.Join(a.outDir, QRFileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) selectEvent(ctx context.Context, args []string) {
	if a.workflow.State() != checkin.Selecting {
		a.term.Printf("Nothing scanned yet.")
		return
	}
	var eventID int64
	if len(args) > 0 {
		opts := a.workflow.Options()
		if n, err := strconv.Atoi(args[0]); err == nil && n >= 1 && n <= len(opts) {
			eventID = opts[n-1].EventID
		}
	}
	conf, err := a.workflow.Submit(ctx, eventID)
	if err != nil {
		a.term.ScanStatus(submitMessage(err), scanner.StatusError)
		if !models.IsValidation(err) && !isAPIError(err) {
			a.logger.Warn("submit attendance failed", zap.Error(err))
		}
		return
	}
	a.term.Confirmation(conf)
}

func (a *App) export(ctx context.Context, args []string) {
	if len(args) > 0 {
		res, err := a.api.ExportStatus(ctx, args[0])
		if err != nil {
			a.term.Printf("Error: %v", err)
			return
		}
		if res.URL != "" {
			a.term.Printf("Export %s: %s %s", res.JobID, res.Status, res.URL)
			return
		}
		a.term.Printf("Export %s: %s", res.JobID, res.Status)
		return
	}
	id, err := a.api.RequestExport(ctx)
	if err != nil {
		a.term.Printf("Error: %v", err)
		return
	}
	a.term.Printf("Export queued: %s (check with \"export %s\")", id, id)
}

func (a *App) refreshRecords(ctx context.Context) {
	records, err := a.api.ListAttendance(ctx)
	if err != nil {
		a.logger.Warn("load attendance failed", zap.Error(err))
		a.term.Printf("Failed to load attendance records.")
		return
	}
	a.term.Records(records)
}

func (a *App) help() {
	a.term.Printf("commands:")
	a.term.Printf("  generate <first> <last> <birth date>   render a QR code and save %s", QRFileName)
	a.term.Printf("  scan | stop                            start or stop the camera")
	a.term.Printf("  select <n> | cancel                    pick the event for a scanned person")
	a.term.Printf("  records                                list attendance")
	a.term.Printf("  export [job id]                        queue a CSV export or check one")
	a.term.Printf("  tab generate|scan|records, quit")
}

func submitMessage(err error) string {
	var apiErr *apiclient.APIError
	switch {
	case models.IsValidation(err):
		return err.Error()
	case errors.As(err, &apiErr):
		return "Error: " + apiErr.Message
	default:
		return "Failed to save attendance. Please try again."
	}
}

func isAPIError(err error) bool {
	var apiErr *apiclient.APIError
	return errors.As(err, &apiErr)
}

// splitArgs splits on spaces and honours double quotes, e.g. generate "Mary Jane" Smith 1990-01-01.
func splitArgs(line string) []string {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(line)))
	r.Comma = ' '
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return strings.Fields(line)
	}
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
