package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"examplanner/internal/domain"
	"examplanner/internal/service/planner"
	"examplanner/internal/store"
)

type responder struct {
	log *slog.Logger
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.log.ErrorContext(ctx, "response encode failed", slog.Any("err", err))
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeServiceError maps the planner error taxonomy onto HTTP statuses:
// validation and window problems are the caller's to fix, lifecycle
// rejections are conflicts, storage outages are retryable, and an invalid
// reconstructed state means corrupt data.
func (r responder) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *planner.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeError(ctx, w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, domain.ErrInvalidTimeWindow):
		r.log.WarnContext(ctx, "invalid time window", slog.Any("err", err))
		r.writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotAllowed):
		r.log.InfoContext(ctx, "operation rejected", slog.Any("err", err))
		r.writeError(ctx, w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, "appointment or group not found")
	case errors.Is(err, store.ErrUnavailable):
		r.log.ErrorContext(ctx, "storage unavailable", slog.Any("err", err))
		r.writeError(ctx, w, http.StatusServiceUnavailable, "storage unavailable, try again")
	case errors.Is(err, domain.ErrInvalidAppointmentState):
		r.log.ErrorContext(ctx, "inconsistent stored state", slog.Any("err", err))
		r.writeError(ctx, w, http.StatusInternalServerError, "stored appointment state is inconsistent")
	default:
		r.log.ErrorContext(ctx, "request failed", slog.Any("err", err))
		r.writeError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(req *http.Request, dst any) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
