package postgres

import (
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"examplanner/internal/domain"
)

// Row models live here, not in domain: an appointment is one logical record
// spread over three tables, and its state tag only exists after the join is
// interpreted by domain.DeriveState.

type groupRow struct {
	bun.BaseModel `bun:"table:groups"`

	Number int `bun:"group_number,pk"`
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:appointments"`

	Date      time.Time `bun:"date,pk,type:date"`
	Activated bool      `bun:"activated,notnull"`
	StartTime string    `bun:"start_time,notnull"`
	EndTime   *string   `bun:"end_time"`
	Note      *string   `bun:"note"`
}

type reservationRow struct {
	bun.BaseModel `bun:"table:reservations"`

	GroupNumber int       `bun:"group_number,notnull"`
	Date        time.Time `bun:"appointment_date,notnull,type:date"`
}

type bookingRow struct {
	bun.BaseModel `bun:"table:bookings"`

	GroupNumber int     `bun:"group_number,pk"`
	StartTime   string  `bun:"start_time,notnull"`
	EndTime     *string `bun:"end_time"`
	Room        *string `bun:"room"`
}

// appointmentJoinRow is one row of the outer join across the three tables.
// Null group_number means no reservation row; null book_start means no
// booking row.
type appointmentJoinRow struct {
	Date        time.Time      `bun:"date"`
	Activated   bool           `bun:"activated"`
	StartTime   string         `bun:"start_time"`
	EndTime     sql.NullString `bun:"end_time"`
	Note        sql.NullString `bun:"note"`
	GroupNumber sql.NullInt64  `bun:"group_number"`
	BookStart   sql.NullString `bun:"book_start"`
	BookEnd     sql.NullString `bun:"book_end"`
	Room        sql.NullString `bun:"room"`
}

func newAppointmentRow(appt domain.Appointment) appointmentRow {
	row := appointmentRow{
		Date:      appt.Date,
		Activated: appt.State != domain.StateDeactivated,
		StartTime: appt.Window.Start().String(),
	}
	if end, ok := appt.Window.End(); ok {
		s := end.String()
		row.EndTime = &s
	}
	if appt.Note != "" {
		note := appt.Note
		row.Note = &note
	}
	return row
}

func newBookingRow(b domain.Booking) bookingRow {
	row := bookingRow{
		GroupNumber: b.Group.Number,
		StartTime:   b.Window.Start().String(),
		Room:        b.Room,
	}
	if end, ok := b.Window.End(); ok {
		s := end.String()
		row.EndTime = &s
	}
	return row
}

func windowFromColumns(start string, end sql.NullString) (domain.TimeWindow, error) {
	s, err := domain.ParseTimeOfDay(start)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	if !end.Valid {
		return domain.NewTimeWindow(s), nil
	}
	e, err := domain.ParseTimeOfDay(end.String)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	return domain.NewBoundedTimeWindow(s, e)
}

// toAppointment reconstructs the logical record from one join row, deriving
// the state from row presence. Malformed combinations surface as
// domain.ErrInvalidAppointmentState or domain.ErrInvalidTimeWindow.
func (r appointmentJoinRow) toAppointment() (domain.Appointment, error) {
	window, err := windowFromColumns(r.StartTime, r.EndTime)
	if err != nil {
		return domain.Appointment{}, err
	}

	state, err := domain.DeriveState(r.Activated, r.GroupNumber.Valid, r.BookStart.Valid)
	if err != nil {
		return domain.Appointment{}, err
	}

	note := ""
	if r.Note.Valid {
		note = r.Note.String
	}

	var reservation *domain.Reservation
	var booking *domain.Booking
	switch state {
	case domain.StateReserved:
		reservation = &domain.Reservation{Group: domain.Group{Number: int(r.GroupNumber.Int64)}}
	case domain.StateBooked:
		bookWindow, err := windowFromColumns(r.BookStart.String, r.BookEnd)
		if err != nil {
			return domain.Appointment{}, err
		}
		b := domain.Booking{
			Group:  domain.Group{Number: int(r.GroupNumber.Int64)},
			Window: bookWindow,
		}
		if r.Room.Valid {
			room := r.Room.String
			b.Room = &room
		}
		booking = &b
	}

	return domain.NewAppointment(r.Date, window, note, state, reservation, booking)
}
