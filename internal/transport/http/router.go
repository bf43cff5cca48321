package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MetricsEnabled bool
	MetricsPath    string
	// Registry defaults to the process-wide one when nil.
	Registry *prometheus.Registry
}

// NewRouter wires the collaborator-facing surface. Everything the frontends
// do goes through these routes.
func NewRouter(server *PlannerServer, log *slog.Logger, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(Timeout(cfg.RequestTimeout))

	if cfg.MetricsEnabled {
		var reg prometheus.Registerer = prometheus.DefaultRegisterer
		handler := promhttp.Handler()
		if cfg.Registry != nil {
			reg = cfg.Registry
			handler = promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
		}
		r.Use(Metrics(reg))

		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, handler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/appointments", server.listAppointments).Methods(http.MethodGet)
	api.HandleFunc("/appointments/generate", server.generateSchedule).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{date}/reserve", server.reserve).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{date}/cancel-reservation", server.cancelReservation).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{date}/book", server.book).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{date}/free", server.setFree).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{date}/deactivate", server.deactivate).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{date}/window", server.setWindow).Methods(http.MethodPut)
	api.HandleFunc("/appointments/{date}/note", server.setNote).Methods(http.MethodPut)
	api.HandleFunc("/appointments/{date}/booking/window", server.setBookingWindow).Methods(http.MethodPut)
	api.HandleFunc("/appointments/{date}/booking/room", server.setBookingRoom).Methods(http.MethodPut)

	api.HandleFunc("/groups", server.listGroups).Methods(http.MethodGet)
	api.HandleFunc("/groups", server.createGroup).Methods(http.MethodPost)
	api.HandleFunc("/groups/generate", server.generateGroups).Methods(http.MethodPost)
	api.HandleFunc("/groups/{number}", server.deleteGroup).Methods(http.MethodDelete)
	api.HandleFunc("/groups/{number}/claim", server.groupClaim).Methods(http.MethodGet)

	return r
}
