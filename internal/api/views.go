package api

import (
	"context"
	"net/http"

	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ViewSource builds the dashboard views
type ViewSource interface {
	DeskView(ctx context.Context) ([]types.DeskViewRow, error)
	IncidentView(ctx context.Context) ([]types.IncidentViewRow, error)
}

// SolutionSource reads the knowledge base
type SolutionSource interface {
	Solutions(ctx context.Context) ([]types.Solution, error)
	SolutionsBySubject(ctx context.Context, subject string) ([]types.Solution, error)
}

// ViewHandler serves the read-only dashboard and knowledge base endpoints
type ViewHandler struct {
	views     ViewSource
	solutions SolutionSource
	logger    zerolog.Logger
}

// NewViewHandler creates a new ViewHandler
func NewViewHandler(views ViewSource, solutions SolutionSource, logger zerolog.Logger) *ViewHandler {
	return &ViewHandler{
		views:     views,
		solutions: solutions,
		logger:    logger.With().Str("component", "view_handler").Logger(),
	}
}

// Desk handles GET /api/desk
func (h *ViewHandler) Desk(w http.ResponseWriter, r *http.Request) {
	rows, err := h.views.DeskView(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Incidents handles GET /api/incidents
func (h *ViewHandler) Incidents(w http.ResponseWriter, r *http.Request) {
	rows, err := h.views.IncidentView(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Solutions handles GET /api/solutions
func (h *ViewHandler) Solutions(w http.ResponseWriter, r *http.Request) {
	solutions, err := h.solutions.Solutions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, solutions)
}

// SolutionsBySubject handles GET /api/solutions/{subject}
func (h *ViewHandler) SolutionsBySubject(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	solutions, err := h.solutions.SolutionsBySubject(r.Context(), subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(solutions) == 0 {
		writeError(w, h.logger, types.NewNotFound("solutions for subject", subject))
		return
	}
	writeJSON(w, http.StatusOK, solutions)
}
