package planner

import (
	"context"
	"fmt"
	"time"

	"examplanner/internal/domain"
	"examplanner/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service orchestrates the appointment lifecycle and the group roster over an
// injected persistence handle. Every call is synchronous and write-through:
// state is re-fetched from storage on each operation and each transition is
// durable before the call returns; nothing is cached.
type Service struct {
	store store.PlannerStore
}

func NewService(store store.PlannerStore) *Service {
	return &Service{store: store}
}

func (s *Service) Appointments(ctx context.Context) ([]domain.Appointment, error) {
	return s.store.Appointments(ctx)
}

// Generate wipes the slot universe and replaces it with three work weeks of
// free slots from startDate. A non-Monday start fails before any storage
// call; the wipe and the inserts share one transaction.
func (s *Service) Generate(ctx context.Context, startDate time.Time) ([]domain.Appointment, error) {
	appts, err := domain.GenerateSchedule(startDate)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceAllAppointments(ctx, appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// Reserve attaches a soft claim by g to the slot on date. A group holding any
// reservation or booking elsewhere is rejected.
func (s *Service) Reserve(ctx context.Context, date time.Time, g domain.Group) (domain.Appointment, error) {
	if err := validGroup(g); err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		appt, err := tx.AppointmentByDate(ctx, date)
		if err != nil {
			return err
		}
		if _, held, err := tx.GroupClaim(ctx, g); err != nil {
			return err
		} else if held {
			return fmt.Errorf("%w: %s already holds a reservation or booking", domain.ErrNotAllowed, g)
		}
		reserved, err := appt.Reserve(g)
		if err != nil {
			return err
		}
		if err := tx.UpdateAppointment(ctx, reserved); err != nil {
			return err
		}
		out = reserved
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) CancelReservation(ctx context.Context, date time.Time) (domain.Appointment, error) {
	var out domain.Appointment
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		appt, err := tx.AppointmentByDate(ctx, date)
		if err != nil {
			return err
		}
		freed, err := appt.CancelReservation()
		if err != nil {
			return err
		}
		if err := tx.UpdateAppointment(ctx, freed); err != nil {
			return err
		}
		out = freed
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Book firms up the slot on date for g starting at start. A group that
// already holds a booking on another slot is rejected before anything else
// happens; a reservation the group holds on another slot is cancelled as part
// of the same transaction that writes the booking.
func (s *Service) Book(ctx context.Context, date time.Time, g domain.Group, start domain.TimeOfDay) (domain.Appointment, error) {
	if err := validGroup(g); err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		appt, err := tx.AppointmentByDate(ctx, date)
		if err != nil {
			return err
		}
		booked, err := appt.Book(g, start)
		if err != nil {
			return err
		}

		claim, held, err := tx.GroupClaim(ctx, g)
		if err != nil {
			return err
		}
		if held && !claim.Date.Equal(appt.Date) {
			switch claim.State {
			case domain.StateBooked:
				return fmt.Errorf("%w: %s already holds a booking on %s", domain.ErrNotAllowed, g, claim.Date.Format(domain.DateFormat))
			case domain.StateReserved:
				freed, err := claim.CancelReservation()
				if err != nil {
					return err
				}
				if err := tx.UpdateAppointment(ctx, freed); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateAppointment(ctx, booked); err != nil {
			return err
		}
		out = booked
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) SetFree(ctx context.Context, date time.Time) (domain.Appointment, error) {
	return s.replace(ctx, date, func(appt domain.Appointment) (domain.Appointment, error) {
		return appt.SetFree(), nil
	})
}

func (s *Service) Deactivate(ctx context.Context, date time.Time) (domain.Appointment, error) {
	return s.replace(ctx, date, func(appt domain.Appointment) (domain.Appointment, error) {
		return appt.Deactivate(), nil
	})
}

func (s *Service) SetTimeWindow(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error) {
	return s.replace(ctx, date, func(appt domain.Appointment) (domain.Appointment, error) {
		return appt.WithWindow(w), nil
	})
}

func (s *Service) SetNote(ctx context.Context, date time.Time, note string) (domain.Appointment, error) {
	return s.replace(ctx, date, func(appt domain.Appointment) (domain.Appointment, error) {
		return appt.WithNote(note), nil
	})
}

func (s *Service) replace(ctx context.Context, date time.Time, transition func(domain.Appointment) (domain.Appointment, error)) (domain.Appointment, error) {
	var out domain.Appointment
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		appt, err := tx.AppointmentByDate(ctx, date)
		if err != nil {
			return err
		}
		next, err := transition(appt)
		if err != nil {
			return err
		}
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// SetBookingWindow replaces the booked slot's claimed window. The write goes
// to the booking row alone; the appointment row stays untouched.
func (s *Service) SetBookingWindow(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error) {
	return s.updateBooking(ctx, date, func(appt domain.Appointment) (domain.Appointment, error) {
		return appt.WithBookingWindow(w)
	})
}

func (s *Service) SetBookingRoom(ctx context.Context, date time.Time, room string) (domain.Appointment, error) {
	return s.updateBooking(ctx, date, func(appt domain.Appointment) (domain.Appointment, error) {
		return appt.WithBookingRoom(room)
	})
}

func (s *Service) updateBooking(ctx context.Context, date time.Time, transition func(domain.Appointment) (domain.Appointment, error)) (domain.Appointment, error) {
	var out domain.Appointment
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		appt, err := tx.AppointmentByDate(ctx, date)
		if err != nil {
			return err
		}
		next, err := transition(appt)
		if err != nil {
			return err
		}
		if err := tx.UpdateBooking(ctx, next.Booking.Group, *next.Booking); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) Groups(ctx context.Context) ([]domain.Group, error) {
	return s.store.Groups(ctx)
}

// GenerateGroups wipes the roster and writes groups numbered 1..count. A
// count below one fails without touching storage.
func (s *Service) GenerateGroups(ctx context.Context, count int) ([]domain.Group, error) {
	if count < 1 {
		return nil, validationError("count must be at least 1")
	}
	groups := make([]domain.Group, 0, count)
	for n := 1; n <= count; n++ {
		groups = append(groups, domain.Group{Number: n})
	}
	if err := s.store.ReplaceAllGroups(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup adds the group numbered one past the current maximum. Gaps in
// the numbering are not refilled.
func (s *Service) CreateGroup(ctx context.Context) (domain.Group, error) {
	var out domain.Group
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		groups, err := tx.Groups(ctx)
		if err != nil {
			return err
		}
		next := 1
		for _, g := range groups {
			if g.Number >= next {
				next = g.Number + 1
			}
		}
		out = domain.Group{Number: next}
		return tx.InsertGroup(ctx, out)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return out, nil
}

func (s *Service) DeleteGroup(ctx context.Context, g domain.Group) error {
	if err := validGroup(g); err != nil {
		return err
	}
	return s.store.DeleteGroup(ctx, g)
}

// HasReservation reports whether g currently holds a soft claim. The answer
// comes from storage on every call; other actors may have moved the state in
// between.
func (s *Service) HasReservation(ctx context.Context, g domain.Group) (bool, error) {
	appt, held, err := s.claim(ctx, g)
	if err != nil {
		return false, err
	}
	return held && appt.State == domain.StateReserved, nil
}

// HasBooking reports whether g currently holds a firm claim.
func (s *Service) HasBooking(ctx context.Context, g domain.Group) (bool, error) {
	appt, held, err := s.claim(ctx, g)
	if err != nil {
		return false, err
	}
	return held && appt.State == domain.StateBooked, nil
}

// GroupAppointment returns the appointment g currently holds, preferring a
// booking over a reservation should both somehow exist.
func (s *Service) GroupAppointment(ctx context.Context, g domain.Group) (domain.Appointment, bool, error) {
	return s.claim(ctx, g)
}

func (s *Service) claim(ctx context.Context, g domain.Group) (domain.Appointment, bool, error) {
	if err := validGroup(g); err != nil {
		return domain.Appointment{}, false, err
	}
	return s.store.GroupClaim(ctx, g)
}

func validGroup(g domain.Group) error {
	if g.Number < 1 {
		return validationError("group number must be positive")
	}
	return nil
}
