// Package notify delivers booking outcome notifications to users. Delivery
// is asynchronous and best-effort: the scheduler loop never waits on the
// notification channel, and a failed send is logged, not retried.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/model"
)

// Event describes one terminal booking outcome to tell the user about.
type Event struct {
	UserID    int64
	BookingID int64
	Outcome   model.BookingOutcome
	Text      string
}

// Sender is the delivery channel. Implemented by the telegram bot.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

type Dispatcher struct {
	sender      Sender
	logger      *zap.Logger
	events      chan Event
	done        chan struct{}
	sendTimeout time.Duration
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:      sender,
		logger:      logger,
		events:      make(chan Event, 64),
		done:        make(chan struct{}),
		sendTimeout: 10 * time.Second,
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop drains the queue and waits for the worker to finish. No Dispatch
// calls may happen after Stop.
func (d *Dispatcher) Stop() {
	close(d.events)
	<-d.done
}

// Dispatch enqueues an event without blocking. When the queue is full the
// event is dropped with an error log; a slow notification channel must not
// stall booking processing.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Error("Notification queue full, dropping event",
			zap.Int64("booking_id", ev.BookingID),
			zap.Int64("user_id", ev.UserID),
			zap.String("outcome", string(ev.Outcome)),
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := d.sender.Send(ctx, ev.UserID, ev.Text)
		cancel()

		if err != nil {
			d.logger.Error("Failed to deliver notification",
				zap.Error(err),
				zap.Int64("booking_id", ev.BookingID),
				zap.Int64("user_id", ev.UserID),
			)
			continue
		}

		d.logger.Info("Notification delivered",
			zap.Int64("booking_id", ev.BookingID),
			zap.Int64("user_id", ev.UserID),
			zap.String("outcome", string(ev.Outcome)),
		)
	}
}
