package http

import (
	"examplanner/internal/domain"
)

type errorResponse struct {
	Message string `json:"message"`
}

type appointmentResponse struct {
	Date        string               `json:"date"`
	State       string               `json:"state"`
	StartTime   string               `json:"start_time"`
	EndTime     *string              `json:"end_time,omitempty"`
	Note        string               `json:"note,omitempty"`
	Reservation *reservationResponse `json:"reservation,omitempty"`
	Booking     *bookingResponse     `json:"booking,omitempty"`
}

type reservationResponse struct {
	Group int    `json:"group"`
	Label string `json:"label"`
}

type bookingResponse struct {
	Group     int     `json:"group"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time,omitempty"`
	Room      *string `json:"room,omitempty"`
}

type groupResponse struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
}

type claimResponse struct {
	HasReservation bool                 `json:"has_reservation"`
	HasBooking     bool                 `json:"has_booking"`
	Appointment    *appointmentResponse `json:"appointment,omitempty"`
}

type generateScheduleRequest struct {
	StartDate string `json:"start_date"`
}

type generateGroupsRequest struct {
	Count int `json:"count"`
}

type reserveRequest struct {
	Group int `json:"group"`
}

type bookRequest struct {
	Group     int    `json:"group"`
	StartTime string `json:"start_time"`
}

type windowRequest struct {
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type roomRequest struct {
	Room string `json:"room"`
}

func toAppointmentResponse(appt domain.Appointment) appointmentResponse {
	out := appointmentResponse{
		Date:      appt.Date.Format(domain.DateFormat),
		State:     string(appt.State),
		StartTime: appt.Window.Start().String(),
		Note:      appt.Note,
	}
	if end, ok := appt.Window.End(); ok {
		s := end.String()
		out.EndTime = &s
	}
	if appt.Reservation != nil {
		out.Reservation = &reservationResponse{
			Group: appt.Reservation.Group.Number,
			Label: appt.Reservation.Group.String(),
		}
	}
	if appt.Booking != nil {
		b := bookingResponse{
			Group:     appt.Booking.Group.Number,
			StartTime: appt.Booking.Window.Start().String(),
			Room:      appt.Booking.Room,
		}
		if end, ok := appt.Booking.Window.End(); ok {
			s := end.String()
			b.EndTime = &s
		}
		out.Booking = &b
	}
	return out
}

func toAppointmentResponses(appts []domain.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		out = append(out, toAppointmentResponse(appt))
	}
	return out
}

func toGroupResponses(groups []domain.Group) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{Number: g.Number, Label: g.String()})
	}
	return out
}

func parseWindow(req windowRequest) (domain.TimeWindow, error) {
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	if req.EndTime == nil {
		return domain.NewTimeWindow(start), nil
	}
	end, err := domain.ParseTimeOfDay(*req.EndTime)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	return domain.NewBoundedTimeWindow(start, end)
}
