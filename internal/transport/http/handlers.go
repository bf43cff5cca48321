package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"examplanner/internal/domain"
)

type plannerService interface {
	Appointments(ctx context.Context) ([]domain.Appointment, error)
	Generate(ctx context.Context, startDate time.Time) ([]domain.Appointment, error)
	Reserve(ctx context.Context, date time.Time, g domain.Group) (domain.Appointment, error)
	CancelReservation(ctx context.Context, date time.Time) (domain.Appointment, error)
	Book(ctx context.Context, date time.Time, g domain.Group, start domain.TimeOfDay) (domain.Appointment, error)
	SetFree(ctx context.Context, date time.Time) (domain.Appointment, error)
	Deactivate(ctx context.Context, date time.Time) (domain.Appointment, error)
	SetTimeWindow(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error)
	SetNote(ctx context.Context, date time.Time, note string) (domain.Appointment, error)
	SetBookingWindow(ctx context.Context, date time.Time, w domain.TimeWindow) (domain.Appointment, error)
	SetBookingRoom(ctx context.Context, date time.Time, room string) (domain.Appointment, error)

	Groups(ctx context.Context) ([]domain.Group, error)
	GenerateGroups(ctx context.Context, count int) ([]domain.Group, error)
	CreateGroup(ctx context.Context) (domain.Group, error)
	DeleteGroup(ctx context.Context, g domain.Group) error
	HasReservation(ctx context.Context, g domain.Group) (bool, error)
	HasBooking(ctx context.Context, g domain.Group) (bool, error)
	GroupAppointment(ctx context.Context, g domain.Group) (domain.Appointment, bool, error)
}

// PlannerServer exposes the lifecycle operations to the admin and student
// frontends as JSON. It renders state; it never decides it.
type PlannerServer struct {
	svc plannerService
	log *slog.Logger
	responder
}

func NewPlannerServer(svc plannerService, log *slog.Logger) *PlannerServer {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http.planner"))
	return &PlannerServer{svc: svc, log: log, responder: responder{log: log}}
}

func (s *PlannerServer) listAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := s.svc.Appointments(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponses(appts))
}

func (s *PlannerServer) generateSchedule(w http.ResponseWriter, r *http.Request) {
	var req generateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}
	startDate, err := time.Parse(domain.DateFormat, req.StartDate)
	if err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}

	appts, err := s.svc.Generate(r.Context(), startDate)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "schedule generated",
		slog.String("start_date", req.StartDate),
		slog.Int("slots", len(appts)),
	)
	s.writeJSON(r.Context(), w, http.StatusCreated, toAppointmentResponses(appts))
}

func (s *PlannerServer) reserve(w http.ResponseWriter, r *http.Request) {
	date, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	var req reserveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}

	appt, err := s.svc.Reserve(r.Context(), date, domain.Group{Number: req.Group})
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "appointment reserved",
		slog.String("date", appt.Date.Format(domain.DateFormat)),
		slog.Int("group", req.Group),
	)
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *PlannerServer) cancelReservation(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "reservation cancelled", s.svc.CancelReservation)
}

func (s *PlannerServer) book(w http.ResponseWriter, r *http.Request) {
	date, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "start_time must be HH:MM")
		return
	}

	appt, err := s.svc.Book(r.Context(), date, domain.Group{Number: req.Group}, start)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "appointment booked",
		slog.String("date", appt.Date.Format(domain.DateFormat)),
		slog.Int("group", req.Group),
		slog.String("start_time", start.String()),
	)
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *PlannerServer) setFree(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "appointment freed", s.svc.SetFree)
}

func (s *PlannerServer) deactivate(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "appointment deactivated", s.svc.Deactivate)
}

func (s *PlannerServer) transition(w http.ResponseWriter, r *http.Request, event string, op func(ctx context.Context, date time.Time) (domain.Appointment, error)) {
	date, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	appt, err := op(r.Context(), date)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), event, slog.String("date", appt.Date.Format(domain.DateFormat)))
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *PlannerServer) setWindow(w http.ResponseWriter, r *http.Request) {
	s.windowUpdate(w, r, "window updated", s.svc.SetTimeWindow)
}

func (s *PlannerServer) setBookingWindow(w http.ResponseWriter, r *http.Request) {
	s.windowUpdate(w, r, "booking window updated", s.svc.SetBookingWindow)
}

func (s *PlannerServer) windowUpdate(w http.ResponseWriter, r *http.Request, event string, op func(ctx context.Context, date time.Time, tw domain.TimeWindow) (domain.Appointment, error)) {
	date, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	var req windowRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}
	window, err := parseWindow(req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTimeWindow) {
			s.writeServiceError(r.Context(), w, err)
		} else {
			s.writeError(r.Context(), w, http.StatusBadRequest, "times must be HH:MM")
		}
		return
	}

	appt, err := op(r.Context(), date, window)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), event,
		slog.String("date", appt.Date.Format(domain.DateFormat)),
		slog.String("window", window.String()),
	)
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *PlannerServer) setNote(w http.ResponseWriter, r *http.Request) {
	date, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}

	appt, err := s.svc.SetNote(r.Context(), date, req.Note)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "note updated", slog.String("date", appt.Date.Format(domain.DateFormat)))
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *PlannerServer) setBookingRoom(w http.ResponseWriter, r *http.Request) {
	date, ok := s.pathDate(w, r)
	if !ok {
		return
	}
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}

	appt, err := s.svc.SetBookingRoom(r.Context(), date, req.Room)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "booking room updated",
		slog.String("date", appt.Date.Format(domain.DateFormat)),
		slog.String("room", req.Room),
	)
	s.writeJSON(r.Context(), w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *PlannerServer) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.Groups(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, http.StatusOK, toGroupResponses(groups))
}

func (s *PlannerServer) createGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.CreateGroup(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "group created", slog.Int("group", g.Number))
	s.writeJSON(r.Context(), w, http.StatusCreated, groupResponse{Number: g.Number, Label: g.String()})
}

func (s *PlannerServer) generateGroups(w http.ResponseWriter, r *http.Request) {
	var req generateGroupsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "malformed request body")
		return
	}

	groups, err := s.svc.GenerateGroups(r.Context(), req.Count)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "groups generated", slog.Int("count", len(groups)))
	s.writeJSON(r.Context(), w, http.StatusCreated, toGroupResponses(groups))
}

func (s *PlannerServer) deleteGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := s.pathGroup(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteGroup(r.Context(), g); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.log.InfoContext(r.Context(), "group deleted", slog.Int("group", g.Number))
	s.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (s *PlannerServer) groupClaim(w http.ResponseWriter, r *http.Request) {
	g, ok := s.pathGroup(w, r)
	if !ok {
		return
	}
	appt, held, err := s.svc.GroupAppointment(r.Context(), g)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	out := claimResponse{}
	if held {
		resp := toAppointmentResponse(appt)
		out.Appointment = &resp
		out.HasReservation = appt.State == domain.StateReserved
		out.HasBooking = appt.State == domain.StateBooked
	}
	s.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (s *PlannerServer) pathDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := time.Parse(domain.DateFormat, mux.Vars(r)["date"])
	if err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (s *PlannerServer) pathGroup(w http.ResponseWriter, r *http.Request) (domain.Group, bool) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "group number must be an integer")
		return domain.Group{}, false
	}
	return domain.Group{Number: number}, true
}
