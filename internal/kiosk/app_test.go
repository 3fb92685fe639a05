package kiosk

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qr-attendance/backend/internal/apiclient"
	"github.com/qr-attendance/backend/internal/checkin"
	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/pkg/queue"
)

type fakeAPI struct {
	events    []models.Event
	records   []models.AttendanceRecord
	subs      []models.AttendanceSubmission
	recordErr error
	listCalls int
}

func (f *fakeAPI) GenerateCode(_ context.Context, p models.PersonData) (*qrcode.Generated, error) {
	return qrcode.NewCodec(300, 2).Generate(p)
}

func (f *fakeAPI) ListEvents(context.Context) ([]models.Event, error) { return f.events, nil }

func (f *fakeAPI) RecordAttendance(_ context.Context, sub models.AttendanceSubmission) (int64, error) {
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	f.subs = append(f.subs, sub)
	f.records = append([]models.AttendanceRecord{{
		ID: int64(len(f.subs)), FirstName: sub.FirstName, LastName: sub.LastName, BirthDate: sub.BirthDate,
		EventID: sub.EventID, EventName: sub.EventName, ScannedAt: time.Now(),
	}}, f.records...)
	return int64(len(f.subs)), nil
}

func (f *fakeAPI) ListAttendance(context.Context) ([]models.AttendanceRecord, error) {
	f.listCalls++
	return f.records, nil
}

func (f *fakeAPI) RequestExport(context.Context) (string, error) { return "job-1", nil }

func (f *fakeAPI) ExportStatus(_ context.Context, id string) (*queue.ExportResult, error) {
	return &queue.ExportResult{JobID: id, Status: queue.StatusDone, URL: "https://signed"}, nil
}

type fakeScanner struct {
	scanning bool
	starts   int
	stops    int
	startErr error
	onDecode func(models.PersonData)
}

func (s *fakeScanner) Start(context.Context) error {
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	s.scanning = true
	return nil
}

func (s *fakeScanner) Stop() {
	s.stops++
	s.scanning = false
}

func (s *fakeScanner) Scanning() bool                       { return s.scanning }
func (s *fakeScanner) OnDecoded(fn func(models.PersonData)) { s.onDecode = fn }

var ada = models.PersonData{FirstName: "Ada", LastName: "Lovelace", BirthDate: "1815-12-10"}

func newTestApp(t *testing.T) (*App, *fakeAPI, *fakeScanner, *bytes.Buffer) {
	t.Helper()
	api := &fakeAPI{events: []models.Event{
		{ID: 3, Name: "Company Event", Date: "2024-01-20"},
		{ID: 4, Name: "Conference", Date: "2024-01-25"},
	}}
	sc := &fakeScanner{}
	var out bytes.Buffer
	app := NewApp(api, sc, NewTerminal(&out), t.TempDir(), nil)
	app.Init(context.Background())
	return app, api, sc, &out
}

func TestApp_LeavingScanTabStopsScanner(t *testing.T) {
	app, _, sc, _ := newTestApp(t)
	ctx := context.Background()

	app.Handle(ctx, "scan")
	assert.Equal(t, TabScan, app.Tab())
	assert.True(t, sc.scanning)

	app.Handle(ctx, "tab records")
	assert.Equal(t, TabRecords, app.Tab())
	assert.False(t, sc.scanning)
	assert.Equal(t, 1, sc.stops)

	app.Handle(ctx, "tab generate")
	assert.Equal(t, 1, sc.stops, "no stop when not scanning")
}

func TestApp_ScanSelectConfirm(t *testing.T) {
	app, api, _, out := newTestApp(t)
	ctx := context.Background()

	app.HandleScan(ada)
	assert.Equal(t, checkin.Selecting, app.Workflow().State())
	assert.Contains(t, out.String(), "1) Company Event - 2024-01-20")
	assert.Contains(t, out.String(), "2) Conference - 2024-01-25")

	app.Handle(ctx, "select")
	assert.Contains(t, out.String(), "[error] Please select an event.")
	assert.Equal(t, checkin.Selecting, app.Workflow().State())

	app.Handle(ctx, "select 2")
	assert.Equal(t, checkin.Confirming, app.Workflow().State())
	require.Len(t, api.subs, 1)
	assert.Equal(t, "Conference", api.subs[0].EventName)
	assert.Equal(t, int64(4), api.subs[0].EventID)
	assert.Contains(t, out.String(), "Attendance Confirmed")
	assert.Contains(t, out.String(), "Event: Conference")
	assert.Equal(t, 1, api.listCalls, "records refreshed after submit")

	app.Handle(ctx, "cancel")
	assert.Equal(t, checkin.Idle, app.Workflow().State())
}

func TestApp_RescanAfterCheckIn(t *testing.T) {
	app, api, sc, out := newTestApp(t)
	ctx := context.Background()
	grace := models.PersonData{FirstName: "Grace", LastName: "Hopper", BirthDate: "1906-12-09"}

	app.Handle(ctx, "scan")
	app.HandleScan(ada)
	app.Handle(ctx, "select 1")
	require.Equal(t, checkin.Confirming, app.Workflow().State())
	require.Len(t, api.subs, 1)

	app.Handle(ctx, "scan")
	assert.Equal(t, checkin.Idle, app.Workflow().State(), "new scan clears the confirmation")
	assert.Equal(t, 2, sc.starts)

	out.Reset()
	app.HandleScan(grace)
	require.Equal(t, checkin.Selecting, app.Workflow().State())
	require.NotNil(t, app.Workflow().Session())
	assert.Equal(t, grace, app.Workflow().Session().Person)
	assert.Contains(t, out.String(), "1) Company Event - 2024-01-20")

	app.Handle(ctx, "select 2")
	require.Len(t, api.subs, 2)
	assert.Equal(t, "Grace", api.subs[1].FirstName)
}

func TestApp_RescanWhileChooserOpen(t *testing.T) {
	app, api, _, _ := newTestApp(t)
	ctx := context.Background()
	grace := models.PersonData{FirstName: "Grace", LastName: "Hopper", BirthDate: "1906-12-09"}

	app.HandleScan(ada)
	app.Handle(ctx, "scan")
	app.HandleScan(grace)
	require.Equal(t, checkin.Selecting, app.Workflow().State())
	assert.Equal(t, grace, app.Workflow().Session().Person)

	// a decode that lands without an intervening scan command still replaces the pending person
	app.HandleScan(ada)
	assert.Equal(t, ada, app.Workflow().Session().Person)

	app.Handle(ctx, "select 1")
	require.Len(t, api.subs, 1)
	assert.Equal(t, "Ada", api.subs[0].FirstName)
}

func TestApp_CameraStartFailure(t *testing.T) {
	app, _, sc, _ := newTestApp(t)
	sc.startErr = &models.PermissionError{Err: errors.New("permission denied")}

	assert.False(t, app.Handle(context.Background(), "scan"))
	assert.Equal(t, 1, sc.starts)
	assert.False(t, sc.Scanning())
	assert.Equal(t, checkin.Idle, app.Workflow().State())
}

func TestApp_ServerErrorKeepsChooserOpen(t *testing.T) {
	app, api, _, out := newTestApp(t)
	api.recordErr = &apiclient.APIError{Status: 500, Message: "Failed to save attendance"}

	app.HandleScan(ada)
	app.Handle(context.Background(), "select 1")

	assert.Contains(t, out.String(), "[error] Error: Failed to save attendance")
	assert.Equal(t, checkin.Selecting, app.Workflow().State())

	api.recordErr = errors.New("connection refused")
	app.Handle(context.Background(), "select 1")
	assert.Contains(t, out.String(), "Failed to save attendance. Please try again.")
}

func TestApp_GenerateSavesImage(t *testing.T) {
	app, _, _, out := newTestApp(t)

	app.Handle(context.Background(), `generate "Mary Jane" Smith 1990-01-01`)

	assert.Contains(t, out.String(), "QR code generated successfully!")
	assert.Contains(t, out.String(), "Name: Mary Jane Smith")
	raw, err := os.ReadFile(filepath.Join(app.outDir, QRFileName))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}

func TestApp_GenerateUsage(t *testing.T) {
	app, _, _, out := newTestApp(t)

	app.Handle(context.Background(), "generate Ada")
	assert.Contains(t, out.String(), "usage: generate")
}

func TestApp_RecordsView(t *testing.T) {
	app, api, _, out := newTestApp(t)

	app.Handle(context.Background(), "records")
	assert.Contains(t, out.String(), "No attendance records found.")

	api.records = []models.AttendanceRecord{{
		FirstName: "Ada", LastName: "Lovelace", BirthDate: "1815-12-10", EventName: "Conference",
		ScannedAt: time.Date(2024, 1, 25, 9, 0, 0, 0, time.UTC),
	}}
	out.Reset()
	app.Handle(context.Background(), "records")
	assert.Contains(t, out.String(), "Name")
	assert.Contains(t, out.String(), "Ada Lovelace")
	assert.NotContains(t, out.String(), "No attendance records found.")
}

func TestApp_Export(t *testing.T) {
	app, _, _, out := newTestApp(t)

	app.Handle(context.Background(), "export")
	assert.Contains(t, out.String(), "Export queued: job-1")

	app.Handle(context.Background(), "export job-1")
	assert.Contains(t, out.String(), "Export job-1: done https://signed")
}

func TestApp_RunHandlesScansAndQuit(t *testing.T) {
	app, _, sc, out := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sc.onDecode(ada)
	err := app.Run(ctx, strings.NewReader("help\nquit\nscan\n"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "commands:")
	assert.Zero(t, sc.starts, "commands after quit are ignored")
	assert.GreaterOrEqual(t, sc.stops, 1)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"generate", "Mary Jane", "Smith", "1990-01-01"}, splitArgs(`generate "Mary Jane"  Smith 1990-01-01`))
	assert.Empty(t, splitArgs("   "))
}
