package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertops/internal/api/actions"
	"github.com/good-yellow-bee/alertops/internal/api/alerts"
	"github.com/good-yellow-bee/alertops/internal/api/auth"
	"github.com/good-yellow-bee/alertops/internal/api/history"
	"github.com/good-yellow-bee/alertops/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.TokenTTL)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	// API v1 routes (all protected)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtService))
		r.Use(middleware.RateLimitByUser(userLimiter))

		r.Route("/actions", func(r chi.Router) {
			actionHandler := actions.NewHandler(s.orch, s.actors)

			r.Post("/resolve", actionHandler.Resolve)
			r.Post("/snooze", actionHandler.Snooze)
			r.Post("/cancel-snooze", actionHandler.CancelSnooze)
			r.Post("/handle", actionHandler.Handle)
			r.Post("/cancel-handle", actionHandler.CancelHandle)
			r.Post("/acknowledge", actionHandler.Acknowledge)
			r.Post("/cancel-acknowledge", actionHandler.CancelAcknowledge)
			r.Post("/assign", actionHandler.Assign)
			r.Post("/cancel-assign", actionHandler.CancelAssign)
			r.Post("/add-comment", actionHandler.AddComment)
			r.Post("/add-description", actionHandler.AddDescription)
		})

		r.Route("/notifications", func(r chi.Router) {
			alertHandler := alerts.NewHandler(s.storage, s.procedures, alerts.Config{
				RetentionDays:  s.config.RetentionDays,
				CommentlessCap: s.config.CommentlessCap,
			})

			r.Get("/{id}", alertHandler.Details)
			r.Get("/{id}/main", alertHandler.Main)
			r.Get("/{id}/short", alertHandler.Short)
			r.Get("/{id}/history", alertHandler.History)
			r.Post("/assign-procedure", alertHandler.AssignProcedure)
			r.Get("/active/source/{source}", alertHandler.ActiveBySource)
			r.Get("/active/object/{object}", alertHandler.ActiveByObject)
		})

		r.Route("/history", func(r chi.Router) {
			historyHandler := history.NewHandler(s.storage, s.studios, history.Config{
				RetentionDays:  s.config.RetentionDays,
				CommentlessCap: s.config.CommentlessCap,
				SearchLimit:    s.config.SearchLimit,
			})

			r.Post("/", historyHandler.Search)
			r.Post("/timeline", historyHandler.Timeline)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
