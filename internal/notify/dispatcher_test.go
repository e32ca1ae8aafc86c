package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gymsched/easyfit_bot/internal/model"
)

type sentMessage struct {
	userID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	errs map[int64]error
}

func (f *fakeSender) Send(ctx context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[userID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{userID: userID, text: text})
	return nil
}

func (f *fakeSender) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func TestDispatchDelivers(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, zap.NewNop())
	d.Start()

	d.Dispatch(Event{UserID: 42, BookingID: 1, Outcome: model.OutcomeBooked, Text: "booked!"})
	d.Dispatch(Event{UserID: 43, BookingID: 2, Outcome: model.OutcomeWaitlisted, Text: "waitlisted"})
	d.Stop() // drains the queue

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, sentMessage{userID: 42, text: "booked!"}, sent[0])
	assert.Equal(t, sentMessage{userID: 43, text: "waitlisted"}, sent[1])
}

func TestDispatchSendFailureIsBestEffort(t *testing.T) {
	sender := &fakeSender{errs: map[int64]error{42: errors.New("chat blocked")}}
	d := NewDispatcher(sender, zap.NewNop())
	d.Start()

	d.Dispatch(Event{UserID: 42, BookingID: 1, Text: "lost"})
	d.Dispatch(Event{UserID: 43, BookingID: 2, Text: "delivered"})
	d.Stop()

	// The failed send is dropped, the next one still goes out.
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(43), sent[0].userID)
}

func TestDispatchNeverBlocks(t *testing.T) {
	// Worker not started: the queue fills up and further events must be
	// dropped, not block the caller.
	d := NewDispatcher(&fakeSender{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			d.Dispatch(Event{UserID: int64(i), BookingID: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}
