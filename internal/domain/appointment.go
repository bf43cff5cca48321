package domain

import (
	"fmt"
	"time"
)

type State string

const (
	StateFree        State = "free"
	StateDeactivated State = "deactivated"
	StateReserved    State = "reserved"
	StateBooked      State = "booked"
)

// Reservation is a soft, cancellable claim on an appointment by a group.
type Reservation struct {
	Group Group
}

// Booking is a firm claim. Its window is the actually claimed slot, a
// sub-window of the appointment's availability window; end time and room are
// only filled in after creation.
type Booking struct {
	Group  Group
	Window TimeWindow
	Room   *string
}

// Appointment is a single dated exam slot. It owns at most one of
// {Reservation, Booking}; the state tag and the attached claim must agree at
// all times (see NewAppointment). Transitions return a new value, they never
// mutate the receiver; durability is the caller's concern.
type Appointment struct {
	Date        time.Time
	Window      TimeWindow
	Note        string
	State       State
	Reservation *Reservation
	Booking     *Booking
}

// NewAppointment validates the state/attachment invariant:
//
//	free, deactivated: no reservation, no booking
//	reserved:          reservation only
//	booked:            booking only (any prior reservation is superseded)
//
// Every reconstruction path goes through here, so a row set that decodes into
// a mismatched combination is rejected instead of silently coerced.
func NewAppointment(date time.Time, window TimeWindow, note string, state State, reservation *Reservation, booking *Booking) (Appointment, error) {
	switch state {
	case StateFree, StateDeactivated:
		if reservation != nil || booking != nil {
			return Appointment{}, fmt.Errorf("%w: %s appointment with a claim attached", ErrInvalidAppointmentState, state)
		}
	case StateReserved:
		if reservation == nil || booking != nil {
			return Appointment{}, fmt.Errorf("%w: reserved appointment requires exactly a reservation", ErrInvalidAppointmentState)
		}
	case StateBooked:
		if booking == nil || reservation != nil {
			return Appointment{}, fmt.Errorf("%w: booked appointment requires exactly a booking", ErrInvalidAppointmentState)
		}
	default:
		return Appointment{}, fmt.Errorf("%w: unknown state %q", ErrInvalidAppointmentState, state)
	}

	return Appointment{
		Date:        NormalizeDate(date),
		Window:      window,
		Note:        note,
		State:       state,
		Reservation: reservation,
		Booking:     booking,
	}, nil
}

// NormalizeDate truncates t to its calendar date at UTC midnight. The date is
// the appointment's persistence identity.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DeriveState maps the presence of reservation/booking rows to a state tag.
// It is the single source of truth during reconstruction: there is no stored
// state enum. Deactivation overrides everything; a booking implies its
// reservation row, so a booking without one is corrupt data.
func DeriveState(activated, hasReservation, hasBooking bool) (State, error) {
	if !activated {
		return StateDeactivated, nil
	}
	if hasBooking && !hasReservation {
		return "", fmt.Errorf("%w: booking row without reservation row", ErrInvalidAppointmentState)
	}
	if hasBooking {
		return StateBooked, nil
	}
	if hasReservation {
		return StateReserved, nil
	}
	return StateFree, nil
}

// Reserve attaches a soft claim by g. Only a free appointment can be
// reserved; whether g already holds a claim elsewhere is the caller's check.
func (a Appointment) Reserve(g Group) (Appointment, error) {
	if a.State != StateFree {
		return Appointment{}, fmt.Errorf("%w: reserve on %s appointment", ErrNotAllowed, a.State)
	}
	out := a
	out.State = StateReserved
	out.Reservation = &Reservation{Group: g}
	return out, nil
}

// CancelReservation releases a soft claim, returning the appointment to free.
func (a Appointment) CancelReservation() (Appointment, error) {
	if a.State != StateReserved {
		return Appointment{}, fmt.Errorf("%w: cancel reservation on %s appointment", ErrNotAllowed, a.State)
	}
	out := a
	out.State = StateFree
	out.Reservation = nil
	return out, nil
}

// Book firms up the slot for g starting at start. A deactivated or already
// booked appointment rejects it, a reserved one only accepts the reserving
// group, and start must lie strictly inside the availability window (equal to
// either bound is rejected). The new booking starts open-ended and without a
// room; both are set later through WithBookingWindow/WithBookingRoom.
func (a Appointment) Book(g Group, start TimeOfDay) (Appointment, error) {
	switch a.State {
	case StateDeactivated, StateBooked:
		return Appointment{}, fmt.Errorf("%w: book on %s appointment", ErrNotAllowed, a.State)
	}
	if a.State == StateReserved && a.Reservation.Group != g {
		return Appointment{}, fmt.Errorf("%w: appointment is reserved by %s", ErrNotAllowed, a.Reservation.Group)
	}
	if !a.Window.Contains(start) {
		return Appointment{}, fmt.Errorf("%w: booking start %s outside window %s", ErrNotAllowed, start, a.Window)
	}
	out := a
	out.State = StateBooked
	out.Reservation = nil
	out.Booking = &Booking{Group: g, Window: NewTimeWindow(start)}
	return out, nil
}

// SetFree drops any claim unconditionally. It both releases a claim and
// reactivates a deactivated slot; on an already-free appointment it is a
// no-op.
func (a Appointment) SetFree() Appointment {
	out := a
	out.State = StateFree
	out.Reservation = nil
	out.Booking = nil
	return out
}

// Deactivate takes the slot out of circulation unconditionally. An active
// reservation or booking is discarded without warning.
func (a Appointment) Deactivate() Appointment {
	out := a
	out.State = StateDeactivated
	out.Reservation = nil
	out.Booking = nil
	return out
}

// WithWindow replaces the availability window.
func (a Appointment) WithWindow(w TimeWindow) Appointment {
	out := a
	out.Window = w
	return out
}

// WithNote replaces the note.
func (a Appointment) WithNote(note string) Appointment {
	out := a
	out.Note = note
	return out
}

// WithBookingWindow replaces the booking's claimed slot without changing the
// appointment's own state or window.
func (a Appointment) WithBookingWindow(w TimeWindow) (Appointment, error) {
	if a.State != StateBooked {
		return Appointment{}, fmt.Errorf("%w: no booking on %s appointment", ErrNotAllowed, a.State)
	}
	b := *a.Booking
	b.Window = w
	out := a
	out.Booking = &b
	return out, nil
}

// WithBookingRoom replaces the booking's room.
func (a Appointment) WithBookingRoom(room string) (Appointment, error) {
	if a.State != StateBooked {
		return Appointment{}, fmt.Errorf("%w: no booking on %s appointment", ErrNotAllowed, a.State)
	}
	b := *a.Booking
	b.Room = &room
	out := a
	out.Booking = &b
	return out, nil
}
