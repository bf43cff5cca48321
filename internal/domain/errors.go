package domain

import "errors"

var (
	// ErrInvalidTimeWindow reports a time window whose end lies before its start.
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrInvalidAppointmentState reports an appointment whose state tag does not
	// match its attached reservation/booking, or a schedule generation request
	// that does not start on a Monday.
	ErrInvalidAppointmentState = errors.New("invalid appointment state")

	// ErrNotAllowed reports a lifecycle transition attempted from a state, or by
	// a claimant, for which it is not permitted.
	ErrNotAllowed = errors.New("operation not allowed")
)
