package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/model"
	"github.com/gymsched/easyfit_bot/internal/repository"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrNotCancellable signals the booking already reached a terminal
	// status; the fulfillment result must not be silently overwritten.
	ErrNotCancellable = errors.New("booking is not cancellable")
)

// BookingStore is the persistence contract the booking service needs.
// Implemented by repository.BookingRepository.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error)
	Transition(ctx context.Context, id int64, from, to model.BookingStatus, outcome model.BookingOutcome) error
}

// BookingService owns the user-facing lifecycle of a booking request:
// scheduling, listing and cancellation. Fulfillment is driven separately by
// the scheduler.
type BookingService struct {
	bookings BookingStore
	lead     time.Duration
	logger   *zap.Logger
}

func NewBookingService(bookings BookingStore, lead time.Duration, logger *zap.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		lead:     lead,
		logger:   logger,
	}
}

// LeadTime returns how long before class start the reservation is attempted.
func (s *BookingService) LeadTime() time.Duration {
	return s.lead
}

// Schedule creates a pending booking for the class. The trigger time is
// computed here, once, and never recomputed afterwards.
func (s *BookingService) Schedule(ctx context.Context, userID int64, className string, classDate time.Time, classTime string) (*model.Booking, error) {
	start, err := model.ClassStart(classDate, classTime)
	if err != nil {
		return nil, err
	}

	if start.Before(time.Now()) {
		return nil, fmt.Errorf("class start %s is in the past", start.Format("2006-01-02 15:04"))
	}

	booking := &model.Booking{
		UserID:    userID,
		ClassName: className,
		ClassDate: classDate,
		ClassTime: classTime,
		TriggerAt: start.Add(-s.lead),
		Status:    model.BookingStatusPending,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("Booking scheduled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", userID),
		zap.String("class_name", className),
		zap.Time("trigger_at", booking.TriggerAt),
	)

	return booking, nil
}

// ListByUser returns the user's bookings, soonest class first.
func (s *BookingService) ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// Cancel performs the user-initiated pending -> cancelled transition. Only
// the owner may cancel, and only while the booking is still pending: the
// compare-and-swap in the store closes the race against an in-flight
// fulfillment attempt.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID int64) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil || booking.UserID != userID {
		return ErrBookingNotFound
	}
	if booking.Status != model.BookingStatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotCancellable, booking.Status)
	}

	err = s.bookings.Transition(ctx, bookingID, model.BookingStatusPending, model.BookingStatusCancelled, model.OutcomeNone)
	if errors.Is(err, repository.ErrStatusConflict) {
		// Fulfillment won the race between our read and the CAS.
		return fmt.Errorf("%w: booking was just finalized", ErrNotCancellable)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("user_id", userID),
	)

	return nil
}
