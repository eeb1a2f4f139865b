package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carebridge/telemed-platform/internal/appointments"
	"github.com/carebridge/telemed-platform/internal/assist"
	"github.com/carebridge/telemed-platform/internal/cleanup"
	httpmiddleware "github.com/carebridge/telemed-platform/internal/http/middleware"
	"github.com/carebridge/telemed-platform/internal/identity"
	"github.com/carebridge/telemed-platform/internal/sessions"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	SessionsHandler     *sessions.Handler
	CleanupHandler      *cleanup.Handler
	AssistHandler       *assist.Handler

	AuthSecret         string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MetricsHandler     http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated routes
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(cfg.AuthSecret))

		private.Route("/appointments", func(r chi.Router) {
			r.With(httpmiddleware.RequireRole(identity.RolePatient)).Post("/", cfg.AppointmentsHandler.Book)
			r.With(httpmiddleware.RequireRole(identity.RolePatient)).Get("/", cfg.AppointmentsHandler.Mine)
			r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Get("/schedule", cfg.AppointmentsHandler.Schedule)
			r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Get("/waiting", cfg.AppointmentsHandler.Waiting)

			r.Route("/{appointmentID}", func(r chi.Router) {
				r.With(httpmiddleware.RequireRole(identity.RolePatient)).Delete("/", cfg.AppointmentsHandler.Withdraw)
				r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Put("/confirm", cfg.AppointmentsHandler.Confirm)
				r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Put("/cancel", cfg.AppointmentsHandler.Cancel)
				r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Post("/consult", cfg.AppointmentsHandler.SubmitConsultNotes)
				r.With(httpmiddleware.RequireRole(identity.RolePatient)).Post("/rating", cfg.AppointmentsHandler.SubmitRating)

				r.Route("/session", func(r chi.Router) {
					r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Post("/start", cfg.SessionsHandler.Start)
					r.With(httpmiddleware.RequireRole(identity.RolePatient)).Get("/join", cfg.SessionsHandler.Join)
					r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Post("/end", cfg.SessionsHandler.End)
				})
			})
		})

		if cfg.AssistHandler != nil {
			private.Post("/assist/chat", cfg.AssistHandler.Chat)
		}

		private.Route("/admin", func(r chi.Router) {
			r.Use(httpmiddleware.RequireRole(identity.RoleAdmin))
			r.Post("/cleanup", cfg.CleanupHandler.Trigger)
			r.Get("/cleanup/logs", cfg.CleanupHandler.Logs)
		})
	})

	return r
}
