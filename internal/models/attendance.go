package models

import "time"

// AttendanceRecord is one check-in. EventName is copied at submission time and
// does not follow later changes to the event row.
type AttendanceRecord struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FirstName string    `json:"first_name" gorm:"not null"`
	LastName  string    `json:"last_name" gorm:"not null"`
	BirthDate string    `json:"birth_date" gorm:"not null"`
	EventID   int64     `json:"event_id" gorm:"index"`
	EventName string    `json:"event_name"`
	ScannedAt time.Time `json:"scanned_at" gorm:"autoCreateTime;index"`
}

// TableName maps AttendanceRecord to the attendance table.
func (AttendanceRecord) TableName() string { return "attendance" }

// AttendanceSubmission is the body of POST /api/attendance.
type AttendanceSubmission struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
	EventID   int64  `json:"eventId"`
	EventName string `json:"eventName"`
}

// Validate requires every field to be present. EventID zero counts as absent.
func (s AttendanceSubmission) Validate() error {
	if s.FirstName == "" || s.LastName == "" || s.BirthDate == "" || s.EventID == 0 || s.EventName == "" {
		return NewValidationError("All fields are required")
	}
	return nil
}

// Record builds the row to insert. ID and ScannedAt are left for the store.
func (s AttendanceSubmission) Record() *AttendanceRecord {
	return &AttendanceRecord{
		FirstName: s.FirstName,
		LastName:  s.LastName,
		BirthDate: s.BirthDate,
		EventID:   s.EventID,
		EventName: s.EventName,
	}
}
