package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueExports is the Redis list key for attendance export jobs.
	QueueExports = "worker:exports"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second

	resultKeyPrefix = "export:result:"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeAttendanceExport JobType = "attendance_export"
)

// Export job states as reported by GET /api/attendance/export/:id.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// ExportPayload is the payload for attendance export jobs.
type ExportPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// ExportResult is the status record kept for an export job.
type ExportResult struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Rows   int    `json:"rows,omitempty"`
}

// ErrUnknownJob is returned by Result when no status exists for the job id.
var ErrUnknownJob = errors.New("unknown job")

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client    *redis.Client
	resultTTL time.Duration
	logger    *zap.Logger
}

// NewQueue creates a new Redis-backed job queue. resultTTL bounds how long export statuses are kept.
func NewQueue(client *redis.Client, resultTTL time.Duration, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, resultTTL: resultTTL, logger: logger}
}

// EnqueueExport enqueues an attendance export job, marks it pending and returns its id.
func (q *Queue) EnqueueExport(ctx context.Context, payload ExportPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeAttendanceExport,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.SetResult(ctx, ExportResult{JobID: job.ID, Status: StatusPending}); err != nil {
		return "", err
	}
	if err := q.client.RPush(ctx, QueueExports, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued export job", zap.String("job_id", job.ID))
	return job.ID, nil
}

// SetResult stores the status of an export job.
func (q *Queue) SetResult(ctx context.Context, res ExportResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := q.client.Set(ctx, resultKeyPrefix+res.JobID, raw, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	return nil
}

// Result returns the stored status of an export job, or ErrUnknownJob.
func (q *Queue) Result(ctx context.Context, jobID string) (*ExportResult, error) {
	raw, err := q.client.Get(ctx, resultKeyPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownJob
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	var res ExportResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueExports).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead
// and marks the export failed.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return q.SetResult(ctx, ExportResult{JobID: job.ID, Status: StatusFailed})
	}
	if err := q.client.RPush(ctx, QueueExports, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
