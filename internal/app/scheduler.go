package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/easyfit"
	"github.com/gymsched/easyfit_bot/internal/model"
	"github.com/gymsched/easyfit_bot/internal/notify"
	"github.com/gymsched/easyfit_bot/internal/repository"
	"github.com/gymsched/easyfit_bot/internal/service"
	"github.com/gymsched/easyfit_bot/pkg/metrics"
)

// claimLimit bounds how many due bookings one tick will take on.
const claimLimit = 25

// dueStore is the claim/lease slice of the booking repository.
type dueStore interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.Booking, error)
	Release(ctx context.Context, id int64, token uuid.UUID) error
	Transition(ctx context.Context, id int64, from, to model.BookingStatus, outcome model.BookingOutcome) error
}

type fulfiller interface {
	Fulfill(ctx context.Context, session *easyfit.Session, booking *model.Booking, now time.Time) (*service.FulfillResult, error)
}

type sessionSource interface {
	Login(ctx context.Context) (*easyfit.Session, error)
}

type dispatcher interface {
	Dispatch(ev notify.Event)
}

type SchedulerConfig struct {
	PollInterval   time.Duration
	ActiveFromHour int
	ActiveToHour   int
}

// Scheduler polls the store for due bookings on a fixed cadence inside the
// daily active window and drives the fulfillment engine for each of them,
// sequentially, over one shared remote session.
type Scheduler struct {
	store    dueStore
	engine   fulfiller
	remote   sessionSource
	notifier dispatcher
	metrics  *metrics.Metrics
	cfg      SchedulerConfig
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}

	// session is reused across ticks until its TTL runs out. Only the
	// scheduler goroutine touches it.
	session *easyfit.Session
}

func NewScheduler(
	store dueStore,
	engine fulfiller,
	remote sessionSource,
	notifier dispatcher,
	m *metrics.Metrics,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		store:    store,
		engine:   engine,
		remote:   remote,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting booking scheduler",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Int("active_from_hour", s.cfg.ActiveFromHour),
		zap.Int("active_to_hour", s.cfg.ActiveToHour),
	)

	go s.run(ctx)
}

// Stop terminates the polling loop and waits for an in-flight tick to
// finish, so dependents like the notification dispatcher can be shut down
// safely afterwards.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping booking scheduler")
	close(s.stopChan)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	// First check right away, then on the ticker.
	s.Tick(ctx, time.Now())

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx, time.Now())
		case <-s.stopChan:
			s.logger.Info("Booking scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Booking scheduler cancelled")
			return
		}
	}
}

// WithinActiveWindow reports whether the poller should run at the given
// local time.
func (s *Scheduler) WithinActiveWindow(now time.Time) bool {
	hour := now.Local().Hour()
	return hour >= s.cfg.ActiveFromHour && hour < s.cfg.ActiveToHour
}

// Tick runs one scheduling pass: claim due bookings, make sure a remote
// session exists, fulfill each booking in trigger order. One booking's
// failure never aborts the rest of the batch.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if !s.WithinActiveWindow(now) {
		return
	}

	// Lease twice the cadence so a crashed instance's claims expire after
	// a missed tick rather than lingering forever.
	claimed, err := s.store.ClaimDue(ctx, now, 2*s.cfg.PollInterval, claimLimit)
	if err != nil {
		s.logger.Error("Failed to claim due bookings", zap.Error(err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	started := time.Now()
	s.logger.Info("Processing due bookings", zap.Int("count", len(claimed)))

	for i, booking := range claimed {
		// The session can hit its TTL mid-batch, so its validity is
		// re-checked before every booking rather than once per tick.
		session, err := s.ensureSession(ctx, time.Now())
		if err != nil {
			// No session, no remote calls: drop the remaining claims
			// and retry them on a later tick.
			s.logger.Error("Remote login failed, aborting tick", zap.Error(err))
			s.metrics.LoginFailures.Inc()
			s.releaseAll(ctx, claimed[i:])
			return
		}
		s.process(ctx, session, booking, now)
	}

	s.metrics.TickDuration.Observe(time.Since(started).Seconds())
}

func (s *Scheduler) process(ctx context.Context, session *easyfit.Session, booking *model.Booking, now time.Time) {
	result, err := s.engine.Fulfill(ctx, session, booking, now)
	if err != nil {
		if errors.Is(err, easyfit.ErrTransient) {
			s.logger.Warn("Transient fulfillment failure, will retry",
				zap.Error(err),
				zap.Int64("booking_id", booking.ID),
				zap.Int("attempts", booking.Attempts+1),
			)
			s.metrics.TransientRetries.Inc()
		} else {
			s.logger.Error("Fulfillment failed",
				zap.Error(err),
				zap.Int64("booking_id", booking.ID),
			)
		}
		s.release(ctx, booking)
		return
	}

	err = s.store.Transition(ctx, booking.ID, model.BookingStatusPending, result.Status, result.Outcome)
	if errors.Is(err, repository.ErrStatusConflict) {
		// The user cancelled while we were talking to the platform. The
		// stored status wins; no notification for a booking the user
		// already gave up on.
		s.logger.Warn("Booking finalized elsewhere, dropping result",
			zap.Int64("booking_id", booking.ID),
			zap.String("outcome", string(result.Outcome)),
		)
		return
	}
	if err != nil {
		s.logger.Error("Failed to store fulfillment result",
			zap.Error(err),
			zap.Int64("booking_id", booking.ID),
		)
		s.release(ctx, booking)
		return
	}

	s.metrics.Fulfillments.WithLabelValues(string(result.Outcome)).Inc()
	s.notifier.Dispatch(notify.Event{
		UserID:    booking.UserID,
		BookingID: booking.ID,
		Outcome:   result.Outcome,
		Text:      result.Text,
	})
}

// ensureSession reuses the cached session while it is still valid and logs
// in again otherwise.
func (s *Scheduler) ensureSession(ctx context.Context, now time.Time) (*easyfit.Session, error) {
	if s.session.Valid(now) {
		return s.session, nil
	}

	session, err := s.remote.Login(ctx)
	if err != nil {
		s.session = nil
		return nil, err
	}

	s.session = session
	return session, nil
}

func (s *Scheduler) release(ctx context.Context, booking *model.Booking) {
	if booking.ClaimToken == nil {
		return
	}
	if err := s.store.Release(ctx, booking.ID, *booking.ClaimToken); err != nil {
		s.logger.Error("Failed to release booking claim",
			zap.Error(err),
			zap.Int64("booking_id", booking.ID),
		)
	}
}

func (s *Scheduler) releaseAll(ctx context.Context, bookings []*model.Booking) {
	for _, booking := range bookings {
		s.release(ctx, booking)
	}
}
