package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/model"
	"github.com/gymsched/easyfit_bot/internal/repository"
)

type fakeStore struct {
	bookings      map[int64]*model.Booking
	nextID        int64
	transitionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[int64]*model.Booking), nextID: 1}
}

func (f *fakeStore) Create(ctx context.Context, booking *model.Booking) error {
	booking.ID = f.nextID
	f.nextID++
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) Transition(ctx context.Context, id int64, from, to model.BookingStatus, outcome model.BookingOutcome) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	booking, ok := f.bookings[id]
	if !ok || booking.Status != from {
		return repository.ErrStatusConflict
	}
	booking.Status = to
	booking.Outcome = outcome
	return nil
}

func futureClassDate() time.Time {
	d := time.Now().AddDate(0, 0, 10)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
}

func TestScheduleComputesTriggerOnce(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	classDate := futureClassDate()
	booking, err := svc.Schedule(context.Background(), 42, "Pilates", classDate, "18:00")
	require.NoError(t, err)

	start, err := booking.ClassStart()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, start.Sub(booking.TriggerAt))
	assert.Equal(t, model.BookingStatusPending, booking.Status)
	assert.NotZero(t, booking.ID)
}

func TestScheduleRejectsPastClass(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	past := time.Now().AddDate(0, 0, -1)
	_, err := svc.Schedule(context.Background(), 42, "Pilates", past, "18:00")
	assert.Error(t, err)
	assert.Empty(t, store.bookings)
}

func TestScheduleRejectsBadTime(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	_, err := svc.Schedule(context.Background(), 42, "Pilates", futureClassDate(), "27:90")
	assert.Error(t, err)
}

func TestCancelPendingBooking(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	booking, err := svc.Schedule(context.Background(), 42, "Pilates", futureClassDate(), "18:00")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), 42, booking.ID))

	stored, err := store.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, stored.Status)
}

func TestCancelUnknownBooking(t *testing.T) {
	svc := NewBookingService(newFakeStore(), 72*time.Hour, zap.NewNop())

	err := svc.Cancel(context.Background(), 42, 999)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelSomeoneElsesBooking(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	booking, err := svc.Schedule(context.Background(), 42, "Pilates", futureClassDate(), "18:00")
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), 77, booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelTerminalBookingIsRejected(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	booking, err := svc.Schedule(context.Background(), 42, "Pilates", futureClassDate(), "18:00")
	require.NoError(t, err)
	require.NoError(t, store.Transition(context.Background(), booking.ID,
		model.BookingStatusPending, model.BookingStatusCompleted, model.OutcomeBooked))

	err = svc.Cancel(context.Background(), 42, booking.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	stored, _ := store.GetByID(context.Background(), booking.ID)
	assert.Equal(t, model.BookingStatusCompleted, stored.Status, "fulfillment result must not be overwritten")
}

func TestCancelLosesRaceAgainstFulfillment(t *testing.T) {
	store := newFakeStore()
	svc := NewBookingService(store, 72*time.Hour, zap.NewNop())

	booking, err := svc.Schedule(context.Background(), 42, "Pilates", futureClassDate(), "18:00")
	require.NoError(t, err)

	// Status flips between the service's read and its CAS.
	store.transitionErr = repository.ErrStatusConflict

	err = svc.Cancel(context.Background(), 42, booking.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}
