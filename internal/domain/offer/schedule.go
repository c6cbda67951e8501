package offer

import (
	"fmt"
	"strings"
	"time"
)

type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

const (
	SchedulingLeadDays   = 2
	SchedulingWindowDays = 30
)

var slotHours = map[TimeSlot]int{
	SlotMorning:   9,
	SlotAfternoon: 14,
	SlotEvening:   17,
}

func ParseTimeSlot(raw string) (TimeSlot, error) {
	slot := TimeSlot(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := slotHours[slot]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, raw)
	}
	return slot, nil
}

// SchedulingWindow returns the first and last selectable calendar days (inclusive) relative to today.
func SchedulingWindow(today time.Time) (time.Time, time.Time) {
	day := startOfDay(today)
	first := day.AddDate(0, 0, SchedulingLeadDays)
	last := first.AddDate(0, 0, SchedulingWindowDays-1)
	return first, last
}

// InspectionTime combines the calendar date of day with the slot's fixed clock time in now's location.
// The date must fall inside the scheduling window computed from now.
func InspectionTime(day time.Time, slot TimeSlot, now time.Time) (time.Time, error) {
	hour, ok := slotHours[slot]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	loc := now.Location()
	y, m, d := day.Date()
	chosen := time.Date(y, m, d, 0, 0, 0, 0, loc)
	first, last := SchedulingWindow(now)
	if chosen.Before(first) || chosen.After(last) {
		return time.Time{}, fmt.Errorf(
			"%w: %s not in %s..%s",
			ErrOutsideSchedulingWindow,
			chosen.Format(time.DateOnly),
			first.Format(time.DateOnly),
			last.Format(time.DateOnly),
		)
	}

	return time.Date(chosen.Year(), chosen.Month(), chosen.Day(), hour, 0, 0, 0, loc), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
