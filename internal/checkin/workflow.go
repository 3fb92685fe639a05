// Package checkin drives event selection and confirmation for a scanned person.
package checkin

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

const msgSelectEvent = "Please select an event."

// Submitter sends an attendance submission to the server and returns the new record id.
type Submitter interface {
	RecordAttendance(ctx context.Context, sub models.AttendanceSubmission) (int64, error)
}

// Session is the pending scan handed from the scanner to the workflow.
// The workflow owns it until submission succeeds or it is dismissed.
type Session struct {
	Person models.PersonData
	Events []models.Event
}

// Option is one entry of the event chooser.
type Option struct {
	EventID int64
	Label   string
}

// Confirmation is shown after a successful submission. ConfirmedAt is the local clock, not the store's scanned_at.
type Confirmation struct {
	Person       models.PersonData
	EventName    string
	ConfirmedAt  time.Time
	AttendanceID int64
}

// Workflow is the Idle → Selecting → Confirming state machine.
type Workflow struct {
	submitter Submitter
	refresh   func(ctx context.Context)
	now       func() time.Time
	logger    *zap.Logger

	mu           sync.Mutex
	state        State
	events       []models.Event
	session      *Session
	confirmation *Confirmation
}

// NewWorkflow creates an idle workflow. refresh is called after each successful submission and may be nil.
func NewWorkflow(submitter Submitter, refresh func(ctx context.Context), logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		submitter: submitter,
		refresh:   refresh,
		now:       time.Now,
		logger:    logger,
	}
}

// SetEvents replaces the loaded event list. Sessions already begun keep the list they started with.
func (w *Workflow) SetEvents(events []models.Event) {
	w.mu.Lock()
	w.events = events
	w.mu.Unlock()
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Session returns the pending session, or nil outside Selecting.
func (w *Workflow) Session() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Confirmation returns the last confirmation, or nil outside Confirming.
func (w *Workflow) Confirmation() *Confirmation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.confirmation
}

// Begin takes ownership of a scanned person and opens the event chooser.
func (w *Workflow) Begin(person models.PersonData) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := Next(w.state, ScanSucceeded)
	if err != nil {
		return nil, err
	}
	w.state = next
	w.session = &Session{Person: person, Events: w.events}
	return w.session, nil
}

// Options lists the chooser entries as "<name> - <date>".
func (w *Workflow) Options() []Option {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil
	}
	opts := make([]Option, 0, len(w.session.Events))
	for _, e := range w.session.Events {
		opts = append(opts, Option{EventID: e.ID, Label: e.Label()})
	}
	return opts
}

// Submit records attendance for the pending person at eventID.
// A missing selection is a *models.ValidationError; it and server failures leave the chooser open.
func (w *Workflow) Submit(ctx context.Context, eventID int64) (*Confirmation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Selecting || w.session == nil {
		return nil, ErrIllegalTransition
	}
	event, ok := w.findEvent(eventID)
	if !ok {
		return nil, models.NewValidationError(msgSelectEvent)
	}

	p := w.session.Person
	sub := models.AttendanceSubmission{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthDate: p.BirthDate,
		EventID:   event.ID,
		EventName: event.Name,
	}
	id, err := w.submitter.RecordAttendance(ctx, sub)
	if err != nil {
		w.logger.Warn("attendance submission failed", zap.Error(err), zap.Int64("event_id", event.ID))
		return nil, err
	}

	next, err := Next(w.state, SubmitSucceeded)
	if err != nil {
		return nil, err
	}
	w.state = next
	w.session = nil
	w.confirmation = &Confirmation{
		Person:       p,
		EventName:    event.Name,
		ConfirmedAt:  w.now(),
		AttendanceID: id,
	}
	if w.refresh != nil {
		w.refresh(ctx)
	}
	return w.confirmation, nil
}

// Dismiss closes whatever is open and drops the pending person.
func (w *Workflow) Dismiss() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state, _ = Next(w.state, Dismiss)
	w.session = nil
	w.confirmation = nil
}

func (w *Workflow) findEvent(id int64) (models.Event, bool) {
	if id == 0 {
		return models.Event{}, false
	}
	for _, e := range w.session.Events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}
