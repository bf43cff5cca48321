package store

import (
	"context"
	"time"

	"examplanner/internal/domain"
)

// PlannerTx is the row-level operation set. Inside InTransaction every call
// shares one database transaction; the delete-then-reinsert update strategy
// and the multi-step flows (generation, booking with a cross-appointment
// cancel) rely on that atomicity.
type PlannerTx interface {
	// Appointments reconstructs every appointment with its derived state.
	Appointments(ctx context.Context) ([]domain.Appointment, error)
	// AppointmentByDate returns ErrNotFound when no slot exists on date.
	AppointmentByDate(ctx context.Context, date time.Time) (domain.Appointment, error)
	// GroupClaim returns the appointment g currently holds, if any, preferring
	// a booking over a reservation. Deactivated slots never count as held.
	GroupClaim(ctx context.Context, g domain.Group) (domain.Appointment, bool, error)

	InsertAppointment(ctx context.Context, appt domain.Appointment) error
	// UpdateAppointment deletes the appointment's rows by date key and
	// reinserts the given state, reservation and booking rows included.
	UpdateAppointment(ctx context.Context, appt domain.Appointment) error
	// UpdateBooking rewrites the booking row's own fields in place, keyed by
	// the claiming group, without touching the appointment row.
	UpdateBooking(ctx context.Context, g domain.Group, b domain.Booking) error
	ReplaceAllAppointments(ctx context.Context, appts []domain.Appointment) error
	DeleteAllAppointments(ctx context.Context) error

	Groups(ctx context.Context) ([]domain.Group, error)
	InsertGroup(ctx context.Context, g domain.Group) error
	// DeleteGroup returns ErrNotFound when the group does not exist.
	DeleteGroup(ctx context.Context, g domain.Group) error
	ReplaceAllGroups(ctx context.Context, groups []domain.Group) error
	DeleteAllGroups(ctx context.Context) error
}

// PlannerStore is the persistence handle the planner service is constructed
// with. Calls outside InTransaction run the multi-statement operations in a
// transaction of their own; reads always go to storage, never to a cache.
type PlannerStore interface {
	PlannerTx

	InTransaction(ctx context.Context, fn func(ctx context.Context, tx PlannerTx) error) error
}
