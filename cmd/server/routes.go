package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/api"
	"github.com/dennisdiepolder/calldesk/internal/auth"
	"github.com/dennisdiepolder/calldesk/internal/config"
	"github.com/dennisdiepolder/calldesk/internal/metrics"
	"github.com/dennisdiepolder/calldesk/internal/storage"
	"github.com/dennisdiepolder/calldesk/internal/websocket"
	"github.com/dennisdiepolder/calldesk/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Store is what the HTTP layer needs from the call store
type Store interface {
	api.CallLister
	api.StatsSource
	api.SolutionSource
	Ping(ctx context.Context) error
}

type deps struct {
	store   Store
	archive storage.StatsArchive
	views   api.ViewSource
	coord   api.Mutator
	hub     *websocket.Hub
	auth    *auth.Authenticator
}

func newRouter(cfg *config.Config, d deps, logger zerolog.Logger) (http.Handler, error) {
	sentimentLimit, err := middleware.RateLimit(cfg.SentimentRateLimit)
	if err != nil {
		return nil, err
	}

	calls := api.NewCallHandler(d.coord, d.store, logger)
	views := api.NewViewHandler(d.views, d.store, logger)
	stats := api.NewStatsHandler(d.store, d.archive, logger)
	wsHandler := websocket.NewHandler(d.hub, d.views, cfg, logger)

	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler(d.store))
	r.Handle("/metrics", metrics.Get().Handler())

	r.Group(func(r chi.Router) {
		r.Use(d.auth.Middleware)

		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Get("/calls", calls.ListCalls)
			r.Get("/desk", views.Desk)
			r.Get("/incidents", views.Incidents)
			r.Get("/solutions", views.Solutions)
			r.Get("/solutions/{subject}", views.SolutionsBySubject)

			r.Route("/stats", func(r chi.Router) {
				r.Get("/today", stats.Today)
				r.Get("/average-duration", stats.AverageDuration)
				r.Get("/negative", stats.Negative)
				r.Get("/history", stats.History)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAgent, auth.RoleSupervisor, auth.RoleAdmin))

				r.Post("/calls", calls.CreateCall)
				r.Put("/calls/{id}", calls.UpdateCall)
				r.Delete("/calls/{id}", calls.DeleteCall)
				r.Post("/incidents", calls.CreateIncident)
				r.Post("/surveys", calls.CreateSurvey)

				r.With(sentimentLimit).Post("/calls/{id}/sentiment", calls.MergeSentiment)
				r.With(sentimentLimit).Post("/sentiment", calls.FetchSentiment)
			})
		})
	})

	return r, nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

// healthHandler reports liveness; a failed database ping degrades the status
func healthHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Service: "calldesk", Database: "ok"}
		status := http.StatusOK
		if err := store.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
