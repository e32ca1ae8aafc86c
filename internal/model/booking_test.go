package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerTime(t *testing.T) {
	classDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	trigger, err := TriggerTime(classDate, "18:00", 72*time.Hour)
	require.NoError(t, err)

	want := time.Date(2025, 3, 7, 18, 0, 0, 0, time.Local)
	assert.True(t, trigger.Equal(want), "trigger = %s, want %s", trigger, want)
}

func TestTriggerTimeExactLead(t *testing.T) {
	classDate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	start, err := ClassStart(classDate, "09:30")
	require.NoError(t, err)

	trigger, err := TriggerTime(classDate, "09:30", 72*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 72*time.Hour, start.Sub(trigger))
}

func TestClassStartInvalidTime(t *testing.T) {
	classDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	for _, bad := range []string{"", "25:00", "18.00", "tomorrow"} {
		_, err := ClassStart(classDate, bad)
		assert.Error(t, err, "class time %q should not parse", bad)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, BookingStatusPending.Terminal())
	assert.True(t, BookingStatusCompleted.Terminal())
	assert.True(t, BookingStatusWaitlisted.Terminal())
	assert.True(t, BookingStatusCancelled.Terminal())
}
