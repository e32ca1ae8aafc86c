package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"    // waiting for its trigger time
	BookingStatusCompleted  BookingStatus = "completed"  // fulfillment finished, see Outcome
	BookingStatusWaitlisted BookingStatus = "waitlisted" // on the remote waitlist
	BookingStatusCancelled  BookingStatus = "cancelled"  // cancelled by the user
)

// Terminal reports whether no further transition is allowed from s.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusWaitlisted, BookingStatusCancelled:
		return true
	}
	return false
}

// BookingOutcome records how fulfillment ended. Stored separately from the
// status so the result stays queryable after the one-shot notification.
type BookingOutcome string

const (
	OutcomeNone       BookingOutcome = ""
	OutcomeBooked     BookingOutcome = "booked"
	OutcomeWaitlisted BookingOutcome = "waitlisted"
	OutcomeNotFound   BookingOutcome = "not_found"
	OutcomeClassFull  BookingOutcome = "class_full"
	OutcomeExpired    BookingOutcome = "expired"
)

type Booking struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"` // telegram chat id of the owner
	ClassName string         `json:"class_name"`
	ClassDate time.Time      `json:"class_date"` // calendar date of the class
	ClassTime string         `json:"class_time"` // local start time, "HH:MM"
	TriggerAt time.Time      `json:"trigger_at"` // when to attempt the reservation
	Status    BookingStatus  `json:"status"`
	Outcome   BookingOutcome `json:"outcome"`
	Attempts  int            `json:"attempts"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Claim lease, set only while a scheduler tick is processing the booking.
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	ClaimToken *uuid.UUID `json:"claim_token,omitempty"`
}

// ClassStart combines a calendar date and an "HH:MM" time of day into the
// class start instant in local time.
func ClassStart(classDate time.Time, classTime string) (time.Time, error) {
	t, err := time.Parse("15:04", classTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse class time %q: %w", classTime, err)
	}
	return time.Date(
		classDate.Year(), classDate.Month(), classDate.Day(),
		t.Hour(), t.Minute(), 0, 0, time.Local,
	), nil
}

// TriggerTime computes the instant at which the reservation should be
// attempted. It is evaluated exactly once, when the booking is created.
func TriggerTime(classDate time.Time, classTime string, lead time.Duration) (time.Time, error) {
	start, err := ClassStart(classDate, classTime)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(-lead), nil
}

// ClassStart returns the start instant of the booking's class.
func (b *Booking) ClassStart() (time.Time, error) {
	return ClassStart(b.ClassDate, b.ClassTime)
}
