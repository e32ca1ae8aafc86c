package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gymsched/easyfit_bot/internal/easyfit"
)

func slotOn(day, clock string) easyfit.Slot {
	return easyfit.Slot{ID: day + clock, StartDateTime: day + "T" + clock + ":00"}
}

var flowCalendar = []easyfit.Course{
	{Name: "Pilates", Slots: []easyfit.Slot{
		slotOn("2025-03-10", "18:00"),
		slotOn("2025-03-10", "09:00"),
		slotOn("2025-03-12", "18:00"),
	}},
	{Name: "Yoga", Slots: []easyfit.Slot{slotOn("2025-03-10", "18:00")}},
	{Name: "Pilates", Slots: []easyfit.Slot{slotOn("2025-03-11", "10:00")}}, // second room
	{Name: ""},
}

func TestDistinctClassNames(t *testing.T) {
	assert.Equal(t, []string{"Pilates", "Yoga"}, distinctClassNames(flowCalendar))
}

func TestClassDates(t *testing.T) {
	assert.Equal(t, []string{"2025-03-10", "2025-03-11", "2025-03-12"}, classDates(flowCalendar, "Pilates"))
	// Case-insensitive, matching the fulfillment engine.
	assert.Equal(t, []string{"2025-03-10"}, classDates(flowCalendar, "yoga"))
}

func TestClassTimes(t *testing.T) {
	assert.Equal(t, []string{"09:00", "18:00"}, classTimes(flowCalendar, "Pilates", "2025-03-10"))
	assert.Empty(t, classTimes(flowCalendar, "Pilates", "2025-03-15"))
}

func TestClassTimesSkipsBrokenSlots(t *testing.T) {
	cal := []easyfit.Course{{Name: "Spin", Slots: []easyfit.Slot{
		{ID: "bad", StartDateTime: "not-a-date"},
		slotOn("2025-03-10", "07:30"),
	}}}
	assert.Equal(t, []string{"07:30"}, classTimes(cal, "Spin", "2025-03-10"))
}

func TestCalendarLookahead(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, calendarLookahead)
}
