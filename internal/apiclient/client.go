// Package apiclient is the kiosk's HTTP client for the attendance API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/pkg/queue"
)

// APIError is a non-2xx response. Message is the server's error field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Client calls the attendance API. Requests carry no timeout of their own; cancel via ctx.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL (e.g. http://localhost:3000). A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// GenerateCode asks the server to render a QR code for p.
func (c *Client) GenerateCode(ctx context.Context, p models.PersonData) (*qrcode.Generated, error) {
	var out qrcode.Generated
	if err := c.do(ctx, http.MethodPost, "/api/generate-qr", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns all events sorted by name.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordAttendance submits a check-in and returns the new record id.
func (c *Client) RecordAttendance(ctx context.Context, sub models.AttendanceSubmission) (int64, error) {
	var out struct {
		AttendanceID int64 `json:"attendanceId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/attendance", sub, &out); err != nil {
		return 0, err
	}
	return out.AttendanceID, nil
}

// ListAttendance returns all records, most recent first.
func (c *Client) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	if err := c.do(ctx, http.MethodGet, "/api/attendance", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestExport queues a CSV export and returns its job id.
func (c *Client) RequestExport(ctx context.Context) (string, error) {
	var out struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/attendance/export", nil, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// ExportStatus returns the state of an export job.
func (c *Client) ExportStatus(ctx context.Context, jobID string) (*queue.ExportResult, error) {
	var out struct {
		Data queue.ExportResult `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/attendance/export/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
