package attendance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/pkg/response"
)

// RecordResponse is the body returned by POST /api/attendance.
type RecordResponse struct {
	Success      bool   `json:"success"`
	AttendanceID int64  `json:"attendanceId"`
	Message      string `json:"message"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Record handles POST /api/attendance.
func (h *Handler) Record(c *gin.Context) {
	var req models.AttendanceSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid attendance body", zap.Error(err))
		response.BadRequest(c, "All fields are required")
		return
	}
	rec, err := h.svc.Record(c.Request.Context(), req)
	if err != nil {
		if models.IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("save attendance failed", zap.Error(err))
		response.Internal(c, "Failed to save attendance")
		return
	}
	response.JSON(c, http.StatusOK, RecordResponse{
		Success:      true,
		AttendanceID: rec.ID,
		Message:      "Attendance recorded successfully",
	})
}

// List handles GET /api/attendance. The body is a bare array, most recent first.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list attendance failed", zap.Error(err))
		response.Internal(c, "Failed to fetch attendance records")
		return
	}
	response.JSON(c, http.StatusOK, list)
}
