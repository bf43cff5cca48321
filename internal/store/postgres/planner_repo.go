package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"examplanner/internal/domain"
	"examplanner/internal/store"
)

// The reservations->groups reference fires in two directions: on insert the
// claiming group does not exist, on a group delete the group still holds a
// claim.
const groupFKConstraint = "reservations_group_number_fkey"

func isGroupFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == groupFKConstraint
}

const appointmentJoinQuery = `
SELECT a.date, a.activated, a.start_time, a.end_time, a.note,
       r.group_number, b.start_time AS book_start, b.end_time AS book_end, b.room
FROM appointments AS a
LEFT JOIN reservations AS r ON r.appointment_date = a.date
LEFT JOIN bookings AS b ON b.group_number = r.group_number`

// Repository implements store.PlannerStore on Postgres. The top-level methods
// run each multi-statement operation in a transaction of their own;
// InTransaction lets the service span several operations atomically, which
// the booking flow needs for its cross-appointment reservation cancel.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.PlannerTx) error) error {
	var fnErr error
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fnErr = fn(ctx, plannerTx{db: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return err
	}
	// begin or commit failed before/after fn ran cleanly
	return fmt.Errorf("%w: transaction: %v", store.ErrUnavailable, err)
}

func (r *Repository) Appointments(ctx context.Context) ([]domain.Appointment, error) {
	return plannerTx{db: r.db}.Appointments(ctx)
}

func (r *Repository) AppointmentByDate(ctx context.Context, date time.Time) (domain.Appointment, error) {
	return plannerTx{db: r.db}.AppointmentByDate(ctx, date)
}

func (r *Repository) GroupClaim(ctx context.Context, g domain.Group) (domain.Appointment, bool, error) {
	return plannerTx{db: r.db}.GroupClaim(ctx, g)
}

func (r *Repository) InsertAppointment(ctx context.Context, appt domain.Appointment) error {
	return r.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		return tx.InsertAppointment(ctx, appt)
	})
}

func (r *Repository) UpdateAppointment(ctx context.Context, appt domain.Appointment) error {
	return r.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		return tx.UpdateAppointment(ctx, appt)
	})
}

func (r *Repository) UpdateBooking(ctx context.Context, g domain.Group, b domain.Booking) error {
	return plannerTx{db: r.db}.UpdateBooking(ctx, g, b)
}

func (r *Repository) ReplaceAllAppointments(ctx context.Context, appts []domain.Appointment) error {
	return r.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		return tx.ReplaceAllAppointments(ctx, appts)
	})
}

func (r *Repository) DeleteAllAppointments(ctx context.Context) error {
	return plannerTx{db: r.db}.DeleteAllAppointments(ctx)
}

func (r *Repository) Groups(ctx context.Context) ([]domain.Group, error) {
	return plannerTx{db: r.db}.Groups(ctx)
}

func (r *Repository) InsertGroup(ctx context.Context, g domain.Group) error {
	return plannerTx{db: r.db}.InsertGroup(ctx, g)
}

func (r *Repository) DeleteGroup(ctx context.Context, g domain.Group) error {
	return plannerTx{db: r.db}.DeleteGroup(ctx, g)
}

func (r *Repository) ReplaceAllGroups(ctx context.Context, groups []domain.Group) error {
	return r.InTransaction(ctx, func(ctx context.Context, tx store.PlannerTx) error {
		return tx.ReplaceAllGroups(ctx, groups)
	})
}

func (r *Repository) DeleteAllGroups(ctx context.Context) error {
	return plannerTx{db: r.db}.DeleteAllGroups(ctx)
}

type plannerTx struct {
	db bun.IDB
}

func (t plannerTx) Appointments(ctx context.Context) ([]domain.Appointment, error) {
	var rows []appointmentJoinRow
	err := t.db.NewRaw(appointmentJoinQuery+" ORDER BY a.date").Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: select appointments: %v", store.ErrUnavailable, err)
	}

	out := make([]domain.Appointment, 0, len(rows))
	for _, row := range rows {
		appt, err := row.toAppointment()
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, nil
}

func (t plannerTx) AppointmentByDate(ctx context.Context, date time.Time) (domain.Appointment, error) {
	var rows []appointmentJoinRow
	err := t.db.NewRaw(appointmentJoinQuery+" WHERE a.date = ?", domain.NormalizeDate(date)).Scan(ctx, &rows)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("%w: select appointment: %v", store.ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return rows[0].toAppointment()
}

func (t plannerTx) GroupClaim(ctx context.Context, g domain.Group) (domain.Appointment, bool, error) {
	var rows []appointmentJoinRow
	err := t.db.NewRaw(
		appointmentJoinQuery+
			" WHERE a.activated AND r.group_number = ?"+
			" ORDER BY (b.group_number IS NOT NULL) DESC, a.date LIMIT 1",
		g.Number,
	).Scan(ctx, &rows)
	if err != nil {
		return domain.Appointment{}, false, fmt.Errorf("%w: select group claim: %v", store.ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return domain.Appointment{}, false, nil
	}
	appt, err := rows[0].toAppointment()
	if err != nil {
		return domain.Appointment{}, false, err
	}
	return appt, true, nil
}

func (t plannerTx) InsertAppointment(ctx context.Context, appt domain.Appointment) error {
	row := newAppointmentRow(appt)
	if _, err := t.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert appointment: %v", store.ErrUnavailable, err)
	}

	var claimant *domain.Group
	switch appt.State {
	case domain.StateReserved:
		claimant = &appt.Reservation.Group
	case domain.StateBooked:
		claimant = &appt.Booking.Group
	}
	if claimant == nil {
		return nil
	}

	res := reservationRow{GroupNumber: claimant.Number, Date: appt.Date}
	if _, err := t.db.NewInsert().Model(&res).Exec(ctx); err != nil {
		if isGroupFKViolation(err) {
			return fmt.Errorf("%w: group %d", store.ErrNotFound, claimant.Number)
		}
		return fmt.Errorf("%w: insert reservation: %v", store.ErrUnavailable, err)
	}

	if appt.State == domain.StateBooked {
		book := newBookingRow(*appt.Booking)
		if _, err := t.db.NewInsert().Model(&book).Exec(ctx); err != nil {
			return fmt.Errorf("%w: insert booking: %v", store.ErrUnavailable, err)
		}
	}
	return nil
}

// UpdateAppointment is delete-then-reinsert: the appointment's rows go away
// by date key (reservation and booking cascade) and the in-memory state is
// written back whole. That keeps one write path for every transition instead
// of per-field branches; atomicity comes from the surrounding transaction.
func (t plannerTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) error {
	if err := t.deleteAppointment(ctx, appt.Date); err != nil {
		return err
	}
	return t.InsertAppointment(ctx, appt)
}

func (t plannerTx) deleteAppointment(ctx context.Context, date time.Time) error {
	_, err := t.db.ExecContext(ctx, "DELETE FROM appointments WHERE date = ?", domain.NormalizeDate(date))
	if err != nil {
		return fmt.Errorf("%w: delete appointment: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (t plannerTx) UpdateBooking(ctx context.Context, g domain.Group, b domain.Booking) error {
	row := newBookingRow(b)
	row.GroupNumber = g.Number
	res, err := t.db.NewUpdate().
		Model(&row).
		Column("start_time", "end_time", "room").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: update booking: %v", store.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update booking: %v", store.ErrUnavailable, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t plannerTx) ReplaceAllAppointments(ctx context.Context, appts []domain.Appointment) error {
	if err := t.DeleteAllAppointments(ctx); err != nil {
		return err
	}
	for _, appt := range appts {
		if err := t.InsertAppointment(ctx, appt); err != nil {
			return err
		}
	}
	return nil
}

func (t plannerTx) DeleteAllAppointments(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, "DELETE FROM appointments")
	if err != nil {
		return fmt.Errorf("%w: delete appointments: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (t plannerTx) Groups(ctx context.Context) ([]domain.Group, error) {
	var rows []groupRow
	err := t.db.NewSelect().Model(&rows).OrderExpr("group_number ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: select groups: %v", store.ErrUnavailable, err)
	}
	out := make([]domain.Group, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Group{Number: row.Number})
	}
	return out, nil
}

func (t plannerTx) InsertGroup(ctx context.Context, g domain.Group) error {
	row := groupRow{Number: g.Number}
	if _, err := t.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert group: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (t plannerTx) DeleteGroup(ctx context.Context, g domain.Group) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM groups WHERE group_number = ?", g.Number)
	if err != nil {
		if isGroupFKViolation(err) {
			return fmt.Errorf("%w: %s still holds a reservation or booking", domain.ErrNotAllowed, g)
		}
		return fmt.Errorf("%w: delete group: %v", store.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete group: %v", store.ErrUnavailable, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t plannerTx) ReplaceAllGroups(ctx context.Context, groups []domain.Group) error {
	if err := t.DeleteAllGroups(ctx); err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	rows := make([]groupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, groupRow{Number: g.Number})
	}
	if _, err := t.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert groups: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (t plannerTx) DeleteAllGroups(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, "DELETE FROM groups")
	if err != nil {
		if isGroupFKViolation(err) {
			return fmt.Errorf("%w: a group still holds a reservation or booking", domain.ErrNotAllowed)
		}
		return fmt.Errorf("%w: delete groups: %v", store.ErrUnavailable, err)
	}
	return nil
}
