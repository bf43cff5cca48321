package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeFormat is the canonical clock-time form used in APIs and storage.
const TimeFormat = "15:04"

// DateFormat is the canonical calendar-date form used in APIs.
const DateFormat = "2006-01-02"

// TimeOfDay is a wall-clock time without a date. The zero value is midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day out of range: %02d:%02d", hour, minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS"; seconds are discarded.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("malformed time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("malformed time of day %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("malformed time of day %q", s)
	}
	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutes() < o.minutes()
}

func (t TimeOfDay) After(o TimeOfDay) bool {
	return t.minutes() > o.minutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimeWindow is an immutable interval with a start and an optional end.
// Both the appointment's availability window and a booking's claimed slot
// use it. A window with no end is open-ended.
type TimeWindow struct {
	start TimeOfDay
	end   *TimeOfDay
}

// NewTimeWindow returns an open-ended window starting at start.
func NewTimeWindow(start TimeOfDay) TimeWindow {
	return TimeWindow{start: start}
}

// NewBoundedTimeWindow returns a window covering [start, end]. An end before
// start fails with ErrInvalidTimeWindow.
func NewBoundedTimeWindow(start, end TimeOfDay) (TimeWindow, error) {
	if end.Before(start) {
		return TimeWindow{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidTimeWindow, end, start)
	}
	e := end
	return TimeWindow{start: start, end: &e}, nil
}

func (w TimeWindow) Start() TimeOfDay {
	return w.start
}

func (w TimeWindow) End() (TimeOfDay, bool) {
	if w.end == nil {
		return TimeOfDay{}, false
	}
	return *w.end, true
}

// WithStart returns a copy whose start is replaced, re-validated against the
// existing end.
func (w TimeWindow) WithStart(start TimeOfDay) (TimeWindow, error) {
	if w.end != nil && start.After(*w.end) {
		return TimeWindow{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidTimeWindow, start, *w.end)
	}
	return TimeWindow{start: start, end: w.end}, nil
}

// WithEnd returns a copy whose end is replaced, re-validated against the
// existing start.
func (w TimeWindow) WithEnd(end TimeOfDay) (TimeWindow, error) {
	if end.Before(w.start) {
		return TimeWindow{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidTimeWindow, end, w.start)
	}
	e := end
	return TimeWindow{start: w.start, end: &e}, nil
}

// Contains reports whether t lies strictly inside the window. Both bounds are
// excluded; an open-ended window only requires t to be after the start.
func (w TimeWindow) Contains(t TimeOfDay) bool {
	if !t.After(w.start) {
		return false
	}
	if w.end == nil {
		return true
	}
	return t.Before(*w.end)
}

func (w TimeWindow) Equal(o TimeWindow) bool {
	if w.start != o.start {
		return false
	}
	if (w.end == nil) != (o.end == nil) {
		return false
	}
	return w.end == nil || *w.end == *o.end
}

func (w TimeWindow) String() string {
	if w.end == nil {
		return w.start.String()
	}
	return w.start.String() + "-" + w.end.String()
}
