package domain

import (
	"fmt"
	"time"
)

const (
	scheduleWeeks      = 3
	scheduleWeekdays   = 5
	scheduleSlotsTotal = scheduleWeeks * scheduleWeekdays
)

// DefaultSlotWindow is the availability window every generated slot opens
// with, 07:30-16:40.
var DefaultSlotWindow = defaultSlotWindow()

func defaultSlotWindow() TimeWindow {
	w, err := NewBoundedTimeWindow(TimeOfDay{Hour: 7, Minute: 30}, TimeOfDay{Hour: 16, Minute: 40})
	if err != nil {
		panic(err)
	}
	return w
}

// GenerateSchedule builds the full slot universe: 15 free appointments
// covering three consecutive work weeks (Monday through Friday) from
// startDate. startDate must be a Monday; anything else fails with
// ErrInvalidAppointmentState and produces nothing.
func GenerateSchedule(startDate time.Time) ([]Appointment, error) {
	start := NormalizeDate(startDate)
	if start.Weekday() != time.Monday {
		return nil, fmt.Errorf("%w: schedule must start on a Monday, got %s", ErrInvalidAppointmentState, start.Weekday())
	}

	out := make([]Appointment, 0, scheduleSlotsTotal)
	for week := 0; week < scheduleWeeks; week++ {
		for day := 0; day < scheduleWeekdays; day++ {
			date := start.AddDate(0, 0, week*7+day)
			appt, err := NewAppointment(date, DefaultSlotWindow, "", StateFree, nil, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, appt)
		}
	}
	return out, nil
}
