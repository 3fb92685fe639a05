package models

import "time"

// Event is something people can be checked in to. Seeded at store initialization.
type Event struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName maps Event to the events table.
func (Event) TableName() string { return "events" }

// Label is the text shown for the event in a chooser, e.g. "Conference - 2024-01-25".
func (e Event) Label() string {
	return e.Name + " - " + e.Date
}
