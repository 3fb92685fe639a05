package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/pkg/queue"
	"github.com/qr-attendance/backend/pkg/storage"
)

// Lister is the attendance read side used by exports.
type Lister interface {
	List(ctx context.Context) ([]models.AttendanceRecord, error)
}

// ObjectStore uploads export files and signs download links.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PresignDownload(ctx context.Context, key string) (string, error)
}

// JobSource is the worker side of the job queue.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
	SetResult(ctx context.Context, res queue.ExportResult) error
}

// Processor turns export jobs into CSV objects: list attendance, write CSV, upload, record the link.
type Processor struct {
	records Lister
	objects ObjectStore
	jobs    JobSource
	backoff time.Duration
	logger  *zap.Logger
}

// NewProcessor creates an export processor.
func NewProcessor(records Lister, objects ObjectStore, jobs JobSource, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{records: records, objects: objects, jobs: jobs, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one export job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAttendanceExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	list, err := p.records.List(ctx)
	if err != nil {
		return fmt.Errorf("list attendance: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, list); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	key := storage.ExportKey(job.ID, payload.RequestedAt)
	if err := p.objects.Upload(ctx, key, storage.ContentTypeCSV, &buf); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	url, err := p.objects.PresignDownload(ctx, key)
	if err != nil {
		return fmt.Errorf("presign: %w", err)
	}
	if err := p.jobs.SetResult(ctx, queue.ExportResult{JobID: job.ID, Status: queue.StatusDone, URL: url, Rows: len(list)}); err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	p.logger.Info("attendance export completed", zap.String("job_id", job.ID), zap.String("s3_key", key), zap.Int("rows", len(list)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, _, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.wait(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.wait(ctx)
		}
	}
}

func (p *Processor) wait(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
