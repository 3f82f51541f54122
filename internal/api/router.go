package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Availability AvailabilityService
	Slots        SlotService
	Appointments AppointmentService
	History      HistoryService

	Postgres Pinger
	Redis    Pinger
	Gatherer prometheus.Gatherer

	Logger  *zap.Logger
	Env     string
	Version string
}

const requestTimeout = 10 * time.Second

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{
		availability: cfg.Availability,
		slots:        cfg.Slots,
		appointments: cfg.Appointments,
		history:      cfg.History,
		logger:       logger,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	// Health and metrics
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Doctor schedule
	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/slots", h.getSlots)

		r.Get("/availability", h.listWindows)
		r.Post("/availability", h.addWindows)
		r.Post("/availability/bulk-delete", h.bulkDeleteWindows)
		r.Patch("/availability/{windowID}", h.patchWindow)
		r.Delete("/availability/{windowID}", h.deleteWindow)

		r.Get("/appointments", h.listDoctorAppointments)
		r.Get("/appointments/today", h.todayAppointments)
	})

	// Appointments
	r.Post("/appointments", h.createAppointment)
	r.Get("/appointments", h.listPatientAppointments)
	r.Get("/appointments/upcoming", h.upcomingAppointments)
	r.Get("/appointments/{id}", h.getAppointment)
	r.Post("/appointments/{id}/confirm", h.confirmAppointment)
	r.Post("/appointments/{id}/cancel", h.cancelAppointment)
	r.Post("/appointments/{id}/complete", h.completeAppointment)
	r.Post("/appointments/{id}/no-show", h.noShowAppointment)

	// Medical history
	r.Get("/patients/{patientID}/history", h.getHistory)
	r.Put("/patients/{patientID}/history", h.putHistory)

	return r
}
