package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"examplanner/internal/domain"
	"examplanner/internal/service/planner"
	"examplanner/internal/store"
)

type fakeService struct {
	appointmentsFn      func(ctx context.Context) ([]domain.Appointment, error)
	generateFn          func(ctx context.Context, startDate time.Time) ([]domain.Appointment, error)
	reserveFn           func(ctx context.Context, date time.Time, g domain.Group) (domain.Appointment, error)
	cancelReservationFn func(ctx context.Context, date time.Time) (domain.Appointment, error)
	bookFn              func(ctx context.Context, date time.Time, g domain.Group, start domain.TimeOfDay) (domain.Appointment, error)
	setFreeFn           func(ctx context.Context, date time.Time) (domain.Appointment, error)
	deactivateFn        func(ctx context.Context, date time.Time) (domain.Appointment, error)
	setTimeWindowFn     func(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error)
	setNoteFn           func(ctx context.Context, date time.Time, note string) (domain.Appointment, error)
	setBookingWindowFn  func(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error)
	setBookingRoomFn    func(ctx context.Context, date time.Time, room string) (domain.Appointment, error)
	groupsFn            func(ctx context.Context) ([]domain.Group, error)
	generateGroupsFn    func(ctx context.Context, count int) ([]domain.Group, error)
	createGroupFn       func(ctx context.Context) (domain.Group, error)
	deleteGroupFn       func(ctx context.Context, g domain.Group) error
	hasReservationFn    func(ctx context.Context, g domain.Group) (bool, error)
	hasBookingFn        func(ctx context.Context, g domain.Group) (bool, error)
	groupAppointmentFn  func(ctx context.Context, g domain.Group) (domain.Appointment, bool, error)
}

func (f *fakeService) Appointments(ctx context.Context) ([]domain.Appointment, error) {
	if f.appointmentsFn == nil {
		panic("Appointments not configured")
	}
	return f.appointmentsFn(ctx)
}

func (f *fakeService) Generate(ctx context.Context, startDate time.Time) ([]domain.Appointment, error) {
	if f.generateFn == nil {
		panic("Generate not configured")
	}
	return f.generateFn(ctx, startDate)
}

func (f *fakeService) Reserve(ctx context.Context, date time.Time, g domain.Group) (domain.Appointment, error) {
	if f.reserveFn == nil {
		panic("Reserve not configured")
	}
	return f.reserveFn(ctx, date, g)
}

func (f *fakeService) CancelReservation(ctx context.Context, date time.Time) (domain.Appointment, error) {
	if f.cancelReservationFn == nil {
		panic("CancelReservation not configured")
	}
	return f.cancelReservationFn(ctx, date)
}

func (f *fakeService) Book(ctx context.Context, date time.Time, g domain.Group, start domain.TimeOfDay) (domain.Appointment, error) {
	if f.bookFn == nil {
		panic("Book not configured")
	}
	return f.bookFn(ctx, date, g, start)
}

func (f *fakeService) SetFree(ctx context.Context, date time.Time) (domain.Appointment, error) {
	if f.setFreeFn == nil {
		panic("SetFree not configured")
	}
	return f.setFreeFn(ctx, date)
}

func (f *fakeService) Deactivate(ctx context.Context, date time.Time) (domain.Appointment, error) {
	if f.deactivateFn == nil {
		panic("Deactivate not configured")
	}
	return f.deactivateFn(ctx, date)
}

func (f *fakeService) SetTimeWindow(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error) {
	if f.setTimeWindowFn == nil {
		panic("SetTimeWindow not configured")
	}
	return f.setTimeWindowFn(ctx, date, w)
}

func (f *fakeService) SetNote(ctx context.Context, date time.Time, note string) (domain.Appointment, error) {
	if f.setNoteFn == nil {
		panic("SetNote not configured")
	}
	return f.setNoteFn(ctx, date, note)
}

func (f *fakeService) SetBookingWindow(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error) {
	if f.setBookingWindowFn == nil {
		panic("SetBookingWindow not configured")
	}
	return f.setBookingWindowFn(ctx, date, w)
}

func (f *fakeService) SetBookingRoom(ctx context.Context, date time.Time, room string) (domain.Appointment, error) {
	if f.setBookingRoomFn == nil {
		panic("SetBookingRoom not configured")
	}
	return f.setBookingRoomFn(ctx, date, room)
}

func (f *fakeService) Groups(ctx context.Context) ([]domain.Group, error) {
	if f.groupsFn == nil {
		panic("Groups not configured")
	}
	return f.groupsFn(ctx)
}

func (f *fakeService) GenerateGroups(ctx context.Context, count int) ([]domain.Group, error) {
	if f.generateGroupsFn == nil {
		panic("GenerateGroups not configured")
	}
	return f.generateGroupsFn(ctx, count)
}

func (f *fakeService) CreateGroup(ctx context.Context) (domain.Group, error) {
	if f.createGroupFn == nil {
		panic("CreateGroup not configured")
	}
	return f.createGroupFn(ctx)
}

func (f *fakeService) DeleteGroup(ctx context.Context, g domain.Group) error {
	if f.deleteGroupFn == nil {
		panic("DeleteGroup not configured")
	}
	return f.deleteGroupFn(ctx, g)
}

func (f *fakeService) HasReservation(ctx context.Context, g domain.Group) (bool, error) {
	if f.hasReservationFn == nil {
		panic("HasReservation not configured")
	}
	return f.hasReservationFn(ctx, g)
}

func (f *fakeService) HasBooking(ctx context.Context, g domain.Group) (bool, error) {
	if f.hasBookingFn == nil {
		panic("HasBooking not configured")
	}
	return f.hasBookingFn(ctx, g)
}

func (f *fakeService) GroupAppointment(ctx context.Context, g domain.Group) (domain.Appointment, bool, error) {
	if f.groupAppointmentFn == nil {
		panic("GroupAppointment not configured")
	}
	return f.groupAppointmentFn(ctx, g)
}

func testRouter(svc plannerService) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewPlannerServer(svc, log)
	return NewRouter(server, log, RouterConfig{RequestTimeout: 5 * time.Second})
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func testAppointment(t *testing.T, state domain.State) domain.Appointment {
	t.Helper()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	var reservation *domain.Reservation
	var booking *domain.Booking
	switch state {
	case domain.StateReserved:
		reservation = &domain.Reservation{Group: domain.Group{Number: 3}}
	case domain.StateBooked:
		booking = &domain.Booking{Group: domain.Group{Number: 3}, Window: domain.NewTimeWindow(domain.TimeOfDay{Hour: 9})}
	}
	appt, err := domain.NewAppointment(date, domain.DefaultSlotWindow, "", state, reservation, booking)
	if err != nil {
		t.Fatalf("appointment: %v", err)
	}
	return appt
}

func TestListAppointments(t *testing.T) {
	h := testRouter(&fakeService{
		appointmentsFn: func(ctx context.Context) ([]domain.Appointment, error) {
			return []domain.Appointment{testAppointment(t, domain.StateFree)}, nil
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/appointments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Date != "2026-09-07" || got[0].State != "free" {
		t.Fatalf("body = %+v", got[0])
	}
	if got[0].StartTime != "07:30" || got[0].EndTime == nil || *got[0].EndTime != "16:40" {
		t.Fatalf("window in body = %s / %v", got[0].StartTime, got[0].EndTime)
	}
}

func TestReserveEndpoint(t *testing.T) {
	var gotGroup domain.Group
	h := testRouter(&fakeService{
		reserveFn: func(ctx context.Context, date time.Time, g domain.Group) (domain.Appointment, error) {
			gotGroup = g
			return testAppointment(t, domain.StateReserved), nil
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/2026-09-07/reserve", `{"group":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotGroup.Number != 3 {
		t.Fatalf("group passed to service = %d, want 3", gotGroup.Number)
	}

	var got appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Reservation == nil || got.Reservation.Group != 3 || got.Reservation.Label != "Gruppe 3" {
		t.Fatalf("reservation in body = %+v", got.Reservation)
	}
}

func TestReserveEndpoint_BadDate(t *testing.T) {
	h := testRouter(&fakeService{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/not-a-date/reserve", `{"group":3}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReserveEndpoint_UnknownField(t *testing.T) {
	h := testRouter(&fakeService{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/2026-09-07/reserve", `{"group":3,"surprise":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// validationErr produces a real *planner.ValidationError; the count check in
// GenerateGroups fails before the nil store is touched.
func validationErr() error {
	_, err := planner.NewService(nil).GenerateGroups(context.Background(), 0)
	return err
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: validationErr(), wantStatus: http.StatusBadRequest},
		{name: "invalid window", err: fmt.Errorf("wrap: %w", domain.ErrInvalidTimeWindow), wantStatus: http.StatusBadRequest},
		{name: "not allowed", err: fmt.Errorf("wrap: %w", domain.ErrNotAllowed), wantStatus: http.StatusConflict},
		{name: "not found", err: store.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "unavailable", err: fmt.Errorf("wrap: %w", store.ErrUnavailable), wantStatus: http.StatusServiceUnavailable},
		{name: "corrupt state", err: fmt.Errorf("wrap: %w", domain.ErrInvalidAppointmentState), wantStatus: http.StatusInternalServerError},
		{name: "unknown", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := testRouter(&fakeService{
				reserveFn: func(ctx context.Context, date time.Time, g domain.Group) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			})

			rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/2026-09-07/reserve", `{"group":3}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Message == "" {
				t.Fatalf("empty error message")
			}
		})
	}
}

func TestBookEndpoint(t *testing.T) {
	var gotStart domain.TimeOfDay
	h := testRouter(&fakeService{
		bookFn: func(ctx context.Context, date time.Time, g domain.Group, start domain.TimeOfDay) (domain.Appointment, error) {
			gotStart = start
			return testAppointment(t, domain.StateBooked), nil
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/2026-09-07/book", `{"group":3,"start_time":"09:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotStart != (domain.TimeOfDay{Hour: 9}) {
		t.Fatalf("start passed to service = %s, want 09:00", gotStart)
	}

	var got appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Booking == nil || got.Booking.Group != 3 || got.Booking.StartTime != "09:00" {
		t.Fatalf("booking in body = %+v", got.Booking)
	}
	if got.Booking.EndTime != nil || got.Booking.Room != nil {
		t.Fatalf("fresh booking rendered with end/room: %+v", got.Booking)
	}
}

func TestBookEndpoint_BadStartTime(t *testing.T) {
	h := testRouter(&fakeService{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/2026-09-07/book", `{"group":3,"start_time":"late"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSetWindowEndpoint(t *testing.T) {
	var gotWindow domain.TimeWindow
	h := testRouter(&fakeService{
		setTimeWindowFn: func(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error) {
			gotWindow = w
			return testAppointment(t, domain.StateFree), nil
		},
	})

	rec := doRequest(t, h, http.MethodPut, "/api/v1/appointments/2026-09-07/window", `{"start_time":"08:00","end_time":"12:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotWindow.String() != "08:00-12:00" {
		t.Fatalf("window passed to service = %s, want 08:00-12:00", gotWindow)
	}
}

func TestSetWindowEndpoint_EndBeforeStart(t *testing.T) {
	h := testRouter(&fakeService{})

	rec := doRequest(t, h, http.MethodPut, "/api/v1/appointments/2026-09-07/window", `{"start_time":"12:00","end_time":"08:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSetNoteAndRoomEndpoints(t *testing.T) {
	var gotNote, gotRoom string
	svc := &fakeService{
		setNoteFn: func(ctx context.Context, date time.Time, note string) (domain.Appointment, error) {
			gotNote = note
			return testAppointment(t, domain.StateFree), nil
		},
		setBookingRoomFn: func(ctx context.Context, date time.Time, room string) (domain.Appointment, error) {
			gotRoom = room
			return testAppointment(t, domain.StateBooked), nil
		},
	}
	var logBuf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logBuf, nil))
	h := NewRouter(NewPlannerServer(svc, log), log, RouterConfig{RequestTimeout: 5 * time.Second})

	rec := doRequest(t, h, http.MethodPut, "/api/v1/appointments/2026-09-07/note", `{"note":"bring ID"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("note status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotNote != "bring ID" {
		t.Fatalf("note passed to service = %q, want %q", gotNote, "bring ID")
	}
	if !strings.Contains(logBuf.String(), `"note updated"`) {
		t.Fatalf("note update not logged, log output: %s", logBuf.String())
	}

	logBuf.Reset()
	rec = doRequest(t, h, http.MethodPut, "/api/v1/appointments/2026-09-07/booking/room", `{"room":"R 1.234"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("room status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotRoom != "R 1.234" {
		t.Fatalf("room passed to service = %q, want %q", gotRoom, "R 1.234")
	}
	if !strings.Contains(logBuf.String(), `"booking room updated"`) {
		t.Fatalf("room update not logged, log output: %s", logBuf.String())
	}
}

func TestGenerateScheduleEndpoint(t *testing.T) {
	h := testRouter(&fakeService{
		generateFn: func(ctx context.Context, startDate time.Time) ([]domain.Appointment, error) {
			return domain.GenerateSchedule(startDate)
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/appointments/generate", `{"start_date":"2026-09-07"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var got []appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 15 {
		t.Fatalf("len = %d, want 15", len(got))
	}
}

func TestGroupEndpoints(t *testing.T) {
	h := testRouter(&fakeService{
		groupsFn: func(ctx context.Context) ([]domain.Group, error) {
			return []domain.Group{{Number: 1}, {Number: 2}}, nil
		},
		createGroupFn: func(ctx context.Context) (domain.Group, error) {
			return domain.Group{Number: 3}, nil
		},
		deleteGroupFn: func(ctx context.Context, g domain.Group) error {
			if g.Number != 2 {
				t.Fatalf("delete group = %d, want 2", g.Number)
			}
			return nil
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/groups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var list []groupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Label != "Gruppe 1" {
		t.Fatalf("list = %+v", list)
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/groups", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/groups/2", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("delete body = %q, want empty", rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/groups/two", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete bad number status = %d, want 400", rec.Code)
	}
}

func TestGroupClaimEndpoint(t *testing.T) {
	h := testRouter(&fakeService{
		groupAppointmentFn: func(ctx context.Context, g domain.Group) (domain.Appointment, bool, error) {
			if g.Number == 3 {
				return testAppointment(t, domain.StateBooked), true, nil
			}
			return domain.Appointment{}, false, nil
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/groups/3/claim", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got claimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.HasBooking || got.HasReservation || got.Appointment == nil {
		t.Fatalf("claim = %+v, want booking claim", got)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/groups/4/claim", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got = claimResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.HasBooking || got.HasReservation || got.Appointment != nil {
		t.Fatalf("claim = %+v, want empty", got)
	}
}

func TestGenerateGroupsEndpoint(t *testing.T) {
	h := testRouter(&fakeService{
		generateGroupsFn: func(ctx context.Context, count int) ([]domain.Group, error) {
			out := make([]domain.Group, 0, count)
			for n := 1; n <= count; n++ {
				out = append(out, domain.Group{Number: n})
			}
			return out, nil
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/groups/generate", `{"count":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	var got []groupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := testRouter(&fakeService{
		groupsFn: func(ctx context.Context) ([]domain.Group, error) {
			return nil, nil
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/groups", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}
