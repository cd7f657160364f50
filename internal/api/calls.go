package api

import (
	"context"
	"net/http"

	"github.com/dennisdiepolder/calldesk/internal/sentiment"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
)

// Mutator is the coordinator surface the handlers drive
type Mutator interface {
	CreateCall(ctx context.Context, call types.Call) (*types.Call, error)
	UpdateCall(ctx context.Context, id uint, patch types.CallPatch) (*types.Call, error)
	DeleteCall(ctx context.Context, id uint) error
	CreateIncident(ctx context.Context, incident types.Incident) (*types.Incident, error)
	CreateSurvey(ctx context.Context, survey types.Survey) (*types.Survey, error)
	MergeSentiment(ctx context.Context, callID uint, contactID string) (*types.SentimentResult, error)
	FetchTranscript(ctx context.Context, contactID string) ([]types.TranscriptSegment, error)
}

// CallLister reads calls without side effects
type CallLister interface {
	ListCalls(ctx context.Context) ([]types.Call, error)
}

// CallHandler serves call, incident, survey and sentiment mutations
type CallHandler struct {
	coord  Mutator
	calls  CallLister
	logger zerolog.Logger
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(coord Mutator, calls CallLister, logger zerolog.Logger) *CallHandler {
	return &CallHandler{
		coord:  coord,
		calls:  calls,
		logger: logger.With().Str("component", "call_handler").Logger(),
	}
}

// ListCalls handles GET /api/calls
func (h *CallHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := h.calls.ListCalls(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

// CreateCall handles POST /api/calls
func (h *CallHandler) CreateCall(w http.ResponseWriter, r *http.Request) {
	var call types.Call
	if err := decodeJSON(r, &call, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.coord.CreateCall(r.Context(), call)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCall handles PUT /api/calls/{id}
func (h *CallHandler) UpdateCall(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch types.CallPatch
	if err := decodeJSON(r, &patch, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.coord.UpdateCall(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCall handles DELETE /api/calls/{id}
func (h *CallHandler) DeleteCall(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.coord.DeleteCall(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateIncident handles POST /api/incidents
func (h *CallHandler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var incident types.Incident
	if err := decodeJSON(r, &incident, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.coord.CreateIncident(r.Context(), incident)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateSurvey handles POST /api/surveys
func (h *CallHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var survey types.Survey
	if err := decodeJSON(r, &survey, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.coord.CreateSurvey(r.Context(), survey)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type contactRequest struct {
	ContactID string `json:"contactId"`
}

// MergeSentiment handles POST /api/calls/{id}/sentiment
func (h *CallHandler) MergeSentiment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req contactRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.coord.MergeSentiment(r.Context(), id, req.ContactID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// transcriptResponse is the body of POST /api/sentiment
type transcriptResponse struct {
	ContactID string                    `json:"contactId"`
	Segments  []types.TranscriptSegment `json:"segments"`
	Sentiment *string                   `json:"sentiment"` // the customer's, nil when absent
}

// FetchSentiment handles POST /api/sentiment; nothing is stored
func (h *CallHandler) FetchSentiment(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	segments, err := h.coord.FetchTranscript(r.Context(), req.ContactID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := transcriptResponse{ContactID: req.ContactID, Segments: segments}
	if s, ok := sentiment.CustomerSentiment(segments); ok {
		resp.Sentiment = &s
	}
	writeJSON(w, http.StatusOK, resp)
}
