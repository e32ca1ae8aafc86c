package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/easyfit"
	"github.com/gymsched/easyfit_bot/internal/model"
)

// RemoteBooker is the slice of the EasyFit client the fulfillment engine
// uses. Sessions are passed in by the caller.
type RemoteBooker interface {
	Calendar(ctx context.Context, session *easyfit.Session, from, to time.Time) ([]easyfit.Course, error)
	Book(ctx context.Context, session *easyfit.Session, slotID string, desired easyfit.DesiredStatus) error
}

// FulfillResult is the classification of one finished fulfillment attempt:
// the terminal status to store, the queryable outcome and the user-facing
// notification text.
type FulfillResult struct {
	Status  model.BookingStatus
	Outcome model.BookingOutcome
	Text    string
}

// FulfillmentService performs the remote reservation for a single due
// booking: resolve the slot on the calendar, try to book it, fall back to
// the waitlist, classify the result. Transient remote errors are returned as
// errors wrapping easyfit.ErrTransient and leave the booking untouched.
type FulfillmentService struct {
	remote RemoteBooker
	logger *zap.Logger
}

func NewFulfillmentService(remote RemoteBooker, logger *zap.Logger) *FulfillmentService {
	return &FulfillmentService{
		remote: remote,
		logger: logger,
	}
}

// Fulfill runs one reservation attempt for the booking using the shared
// session. It never returns both a result and an error.
func (s *FulfillmentService) Fulfill(ctx context.Context, session *easyfit.Session, booking *model.Booking, now time.Time) (*FulfillResult, error) {
	start, err := booking.ClassStart()
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", booking.ID, err)
	}

	// A booking whose class has already started can never succeed; give up
	// instead of retrying it every tick forever.
	if now.After(start) {
		s.logger.Warn("Booking expired before fulfillment",
			zap.Int64("booking_id", booking.ID),
			zap.Time("class_start", start),
		)
		return &FulfillResult{
			Status:  model.BookingStatusCompleted,
			Outcome: model.OutcomeExpired,
			Text:    expiredText(booking),
		}, nil
	}

	slotID, err := s.resolveSlot(ctx, session, booking, start)
	if err != nil {
		return nil, err
	}
	if slotID == "" {
		s.logger.Warn("Class not found on remote calendar",
			zap.Int64("booking_id", booking.ID),
			zap.String("class_name", booking.ClassName),
			zap.Time("class_start", start),
		)
		return &FulfillResult{
			Status:  model.BookingStatusCompleted,
			Outcome: model.OutcomeNotFound,
			Text:    notFoundText(booking),
		}, nil
	}

	err = s.remote.Book(ctx, session, slotID, easyfit.StatusBooked)
	if err == nil {
		s.logger.Info("Booking confirmed",
			zap.Int64("booking_id", booking.ID),
			zap.String("slot_id", slotID),
		)
		return &FulfillResult{
			Status:  model.BookingStatusCompleted,
			Outcome: model.OutcomeBooked,
			Text:    bookedText(booking),
		}, nil
	}
	if !isRejected(err) {
		return nil, fmt.Errorf("book slot %s: %w", slotID, err)
	}

	// Slot refused us, try the waitlist.
	err = s.remote.Book(ctx, session, slotID, easyfit.StatusWaitlisted)
	if err == nil {
		s.logger.Info("Booking waitlisted",
			zap.Int64("booking_id", booking.ID),
			zap.String("slot_id", slotID),
		)
		return &FulfillResult{
			Status:  model.BookingStatusWaitlisted,
			Outcome: model.OutcomeWaitlisted,
			Text:    waitlistedText(booking),
		}, nil
	}
	if !isRejected(err) {
		return nil, fmt.Errorf("waitlist slot %s: %w", slotID, err)
	}

	s.logger.Warn("Class full and waitlist rejected",
		zap.Int64("booking_id", booking.ID),
		zap.String("slot_id", slotID),
	)
	return &FulfillResult{
		Status:  model.BookingStatusCompleted,
		Outcome: model.OutcomeClassFull,
		Text:    classFullText(booking),
	}, nil
}

// resolveSlot finds the remote slot matching the booking: name compared
// case-insensitively, start instant compared exactly. When several slots
// match (same class in two rooms), the first one in calendar order wins.
// Returns "" when nothing matches.
func (s *FulfillmentService) resolveSlot(ctx context.Context, session *easyfit.Session, booking *model.Booking, start time.Time) (string, error) {
	courses, err := s.remote.Calendar(ctx, session, booking.ClassDate, booking.ClassDate)
	if err != nil {
		return "", fmt.Errorf("fetch calendar: %w", err)
	}

	for _, course := range courses {
		if !strings.EqualFold(course.Name, booking.ClassName) {
			continue
		}
		for _, slot := range course.Slots {
			slotStart, err := slot.Start()
			if err != nil {
				s.logger.Warn("Skipping unparseable slot", zap.Error(err), zap.String("slot_id", slot.ID))
				continue
			}
			if slotStart.Equal(start) {
				return slot.ID, nil
			}
		}
	}

	return "", nil
}

func isRejected(err error) bool {
	return errors.Is(err, easyfit.ErrRejected)
}
