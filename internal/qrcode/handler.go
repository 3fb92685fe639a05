package qrcode

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
	"github.com/qr-attendance/backend/pkg/response"
)

// Generator produces a QR image for a person.
type Generator interface {
	Generate(p models.PersonData) (*Generated, error)
}

// Handler handles QR generation endpoints.
type Handler struct {
	gen    Generator
	logger *zap.Logger
}

// NewHandler creates a QR handler.
func NewHandler(gen Generator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gen: gen, logger: logger}
}

// Generate handles POST /api/generate-qr.
func (h *Handler) Generate(c *gin.Context) {
	var req models.PersonData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid generate body", zap.Error(err))
		response.BadRequest(c, "All personal data fields are required")
		return
	}
	out, err := h.gen.Generate(req)
	if err != nil {
		if models.IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("generate qr code failed", zap.Error(err))
		response.Internal(c, "Failed to generate QR code")
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"success": true,
		"qrCode":  out.QRCode,
		"data":    out.Data,
	})
}
