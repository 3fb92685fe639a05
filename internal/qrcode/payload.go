package qrcode

import (
	"encoding/json"

	"github.com/qr-attendance/backend/internal/models"
)

const (
	msgInvalidCode   = "Invalid QR code. Please scan a valid attendance QR code."
	msgInvalidFormat = "Invalid QR code format. Please scan a valid attendance QR code."
)

// Payload is the canonical text form embedded in a symbol:
// {"firstName":...,"lastName":...,"birthDate":...}.
func Payload(p models.PersonData) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParsePayload turns decoded symbol text back into person data.
// Malformed or incomplete payloads yield a *models.ValidationError.
func ParsePayload(text string) (models.PersonData, error) {
	var p models.PersonData
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return models.PersonData{}, models.NewValidationError(msgInvalidCode)
	}
	if !p.Complete() {
		return models.PersonData{}, models.NewValidationError(msgInvalidFormat)
	}
	return p, nil
}
