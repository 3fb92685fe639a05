package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/config"
	"github.com/qr-attendance/backend/internal/attendance"
	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/internal/realtime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	hub    *realtime.Hub
}

func newTestServer(t *testing.T, staticDir string) *testServer {
	t.Helper()
	stores, err := OpenStores(context.Background(), config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "attendance.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	hub := realtime.NewHub(nil, nil)
	router := NewRouter(Deps{
		Codec:      qrcode.NewCodec(300, 2),
		Events:     stores.Events,
		Attendance: attendance.NewService(stores.Attendance, hub, nil),
		Hub:        hub,
		StaticDir:  staticDir,
	})
	return &testServer{router: router, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) attendance(t *testing.T) []models.AttendanceRecord {
	t.Helper()
	w := s.do(t, http.MethodGet, "/api/attendance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.AttendanceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	return list
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, w.Body.String())
}

func TestRouter_SeededEventsSortedByName(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	var got [][2]string
	for _, e := range list {
		got = append(got, [2]string{e.Name, e.Date})
	}
	assert.Equal(t, [][2]string{
		{"Company Event", "2024-01-20"},
		{"Conference", "2024-01-25"},
		{"Team Meeting", "2024-01-15"},
		{"Training Session", "2024-01-16"},
	}, got)
}

func TestRouter_MissingEventIDNotPersisted(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/api/attendance", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "birthDate": "1815-12-10", "eventName": "Conference",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"All fields are required"`)
	assert.Empty(t, s.attendance(t))
}

func TestRouter_DuplicateSubmissionsBothStored(t *testing.T) {
	s := newTestServer(t, "")
	body := map[string]interface{}{
		"firstName": "Ada", "lastName": "Lovelace", "birthDate": "1815-12-10", "eventId": 4, "eventName": "Conference",
	}

	var ids []int64
	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/attendance", body)
		require.Equal(t, http.StatusOK, w.Code)
		var resp attendance.RecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "Attendance recorded successfully", resp.Message)
		ids = append(ids, resp.AttendanceID)
	}
	assert.Greater(t, ids[1], ids[0])

	list := s.attendance(t)
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID, "most recent first")
	assert.Equal(t, ids[0], list[1].ID)
	assert.False(t, list[0].ScannedAt.IsZero())
}

func TestRouter_GenerateRoundTrip(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/api/generate-qr", map[string]string{
		"firstName": " Ada ", "lastName": "Lovelace", "birthDate": "1815-12-10",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		QRCode  string            `json:"qrCode"`
		Data    models.PersonData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Ada", resp.Data.FirstName)

	text, err := qrcode.DecodeDataURI(resp.QRCode)
	require.NoError(t, err)
	p, err := qrcode.ParsePayload(text)
	require.NoError(t, err)
	assert.Equal(t, resp.Data, p)

	assert.Empty(t, s.attendance(t), "generating a code stores nothing")
}

func TestRouter_ExportWithoutQueue(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/api/attendance/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestRouter_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>QR Attendance</h1>"), 0o644))
	s := newTestServer(t, dir)

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "QR Attendance")

	w = s.do(t, http.MethodPost, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UnknownEventAccepted(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/api/attendance", map[string]interface{}{
		"firstName": "Ada", "lastName": "Lovelace", "birthDate": "1815-12-10", "eventId": 99, "eventName": "Gone",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.attendance(t), 1)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := OpenStores(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}
