package export

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/pkg/queue"
	"github.com/qr-attendance/backend/pkg/response"
)

const msgUnavailable = "Export is not available"

// Jobs is the API side of the job queue.
type Jobs interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) (string, error)
	Result(ctx context.Context, jobID string) (*queue.ExportResult, error)
}

// Handler serves export requests. A nil Jobs means Redis is not configured.
type Handler struct {
	jobs   Jobs
	logger *zap.Logger
}

// NewHandler creates an export handler.
func NewHandler(jobs Jobs, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jobs: jobs, logger: logger}
}

// Request handles POST /api/attendance/export.
func (h *Handler) Request(c *gin.Context) {
	if h.jobs == nil {
		response.ServiceUnavailable(c, msgUnavailable)
		return
	}
	id, err := h.jobs.EnqueueExport(c.Request.Context(), queue.ExportPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		h.logger.Error("enqueue export failed", zap.Error(err))
		response.Internal(c, "Failed to queue export")
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"success": true, "jobId": id})
}

// Status handles GET /api/attendance/export/:id.
func (h *Handler) Status(c *gin.Context) {
	if h.jobs == nil {
		response.ServiceUnavailable(c, msgUnavailable)
		return
	}
	res, err := h.jobs.Result(c.Request.Context(), c.Param("id"))
	if errors.Is(err, queue.ErrUnknownJob) {
		response.NotFound(c, "export not found")
		return
	}
	if err != nil {
		h.logger.Error("load export status failed", zap.Error(err))
		response.Internal(c, "Failed to fetch export status")
		return
	}
	response.OK(c, res)
}
