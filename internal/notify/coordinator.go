// Package notify runs every desk mutation through persist, view rebuild and
// broadcast, and merges transcript sentiment into calls.
package notify

import (
	"context"
	"errors"

	"github.com/dennisdiepolder/calldesk/internal/alerts"
	"github.com/dennisdiepolder/calldesk/internal/metrics"
	"github.com/dennisdiepolder/calldesk/internal/sentiment"
	"github.com/dennisdiepolder/calldesk/internal/storage"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/dennisdiepolder/calldesk/internal/websocket"
	"github.com/rs/zerolog"
)

// Views rebuilds the dashboard views
type Views interface {
	DeskView(ctx context.Context) ([]types.DeskViewRow, error)
	IncidentView(ctx context.Context) ([]types.IncidentViewRow, error)
}

// Broadcaster fans an event out to subscribers
type Broadcaster interface {
	Broadcast(event string, payload interface{}) websocket.Delivery
}

// TranscriptFetcher loads a contact's transcript
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, contactID string) ([]types.TranscriptSegment, error)
}

// AlertDispatcher delivers rule hits
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alerts []alerts.Alert)
}

// Coordinator is the single entry point for desk mutations. Once the store
// accepts a write the caller gets success; notification problems are logged
// and counted as BroadcastWarnings.
type Coordinator struct {
	store       storage.CallStore
	views       Views
	hub         Broadcaster
	transcripts TranscriptFetcher
	alerts      AlertDispatcher
	locks       *keyedMutex
	logger      zerolog.Logger
}

// NewCoordinator wires the coordinator; one per process
func NewCoordinator(store storage.CallStore, views Views, hub Broadcaster, transcripts TranscriptFetcher, dispatcher AlertDispatcher, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		views:       views,
		hub:         hub,
		transcripts: transcripts,
		alerts:      dispatcher,
		locks:       newKeyedMutex(),
		logger:      logger.With().Str("component", "coordinator").Logger(),
	}
}

// CreateCall persists a call and pushes the refreshed desk view
func (c *Coordinator) CreateCall(ctx context.Context, call types.Call) (*types.Call, error) {
	created, err := c.store.CreateCall(ctx, call)
	c.record("createCall", err)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Uint("call_id", created.ID).
		Uint("employee_id", created.EmployeeID).
		Str("subject", created.Subject).
		Msg("call created")

	c.publishDesk(ctx)
	return created, nil
}

// UpdateCall applies a patch and pushes the mutated call as newCall.
// Writes to the same call are serialized.
func (c *Coordinator) UpdateCall(ctx context.Context, id uint, patch types.CallPatch) (*types.Call, error) {
	if err := patch.Validate(); err != nil {
		c.record("updateCall", err)
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	previous, err := c.store.GetCall(ctx, id)
	if err != nil {
		c.record("updateCall", err)
		return nil, err
	}

	updated, err := c.store.UpdateCall(ctx, id, patch)
	c.record("updateCall", err)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Uint("call_id", updated.ID).
		Uint("employee_id", updated.EmployeeID).
		Msg("call updated")

	c.deliver(types.EventNewCall, updated)
	c.alerts.Dispatch(ctx, alerts.CheckCall(*previous, *updated))
	return updated, nil
}

// DeleteCall removes a call and pushes the refreshed desk view
func (c *Coordinator) DeleteCall(ctx context.Context, id uint) error {
	unlock := c.locks.Lock(id)
	defer unlock()

	err := c.store.DeleteCall(ctx, id)
	c.record("deleteCall", err)
	if err != nil {
		return err
	}

	c.logger.Info().Uint("call_id", id).Msg("call deleted")
	c.publishDesk(ctx)
	return nil
}

// CreateIncident persists an incident and pushes the incident view
func (c *Coordinator) CreateIncident(ctx context.Context, incident types.Incident) (*types.Incident, error) {
	created, err := c.store.CreateIncident(ctx, incident)
	c.record("createIncident", err)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Uint("incident_id", created.ID).Uint("zone_id", created.ZoneID).Msg("incident created")

	rows, err := c.views.IncidentView(context.WithoutCancel(ctx))
	if err != nil {
		c.warn(&types.BroadcastWarning{Event: types.EventNewIncidencia, Stage: "rebuild", Err: err})
		return created, nil
	}
	c.deliver(types.EventNewIncidencia, rows)
	return created, nil
}

// CreateSurvey persists a survey. No dashboard view shows surveys, so
// nothing is broadcast.
func (c *Coordinator) CreateSurvey(ctx context.Context, survey types.Survey) (*types.Survey, error) {
	created, err := c.store.CreateSurvey(ctx, survey)
	c.record("createSurvey", err)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Uint("survey_id", created.ID).Uint("call_id", created.CallID).Msg("survey created")
	return created, nil
}

// FetchTranscript returns the normalized transcript without touching any call
func (c *Coordinator) FetchTranscript(ctx context.Context, contactID string) ([]types.TranscriptSegment, error) {
	return c.transcripts.FetchTranscript(ctx, contactID)
}

// MergeSentiment fetches the contact's transcript and stores the customer's
// sentiment on the call when it is present and differs from the stored
// value. An empty contactID falls back to the call's own contact. The fetch
// runs without holding the call's lock.
func (c *Coordinator) MergeSentiment(ctx context.Context, callID uint, contactID string) (*types.SentimentResult, error) {
	call, err := c.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if contactID == "" {
		contactID = call.ContactID
	}
	if contactID == "" {
		return nil, &types.ValidationError{Field: "contactId", Reason: "call has no contact and none was given"}
	}

	segments, err := c.transcripts.FetchTranscript(ctx, contactID)
	if err != nil {
		c.record("mergeSentiment", err)
		return nil, err
	}

	result := &types.SentimentResult{
		CallID:    callID,
		ContactID: contactID,
		Segments:  segments,
		Sentiment: call.Sentiment,
	}

	value, ok := sentiment.CustomerSentiment(segments)
	if !ok {
		metrics.Get().RecordSentimentMerge("no_customer")
		c.logger.Debug().Uint("call_id", callID).Str("contact_id", contactID).Msg("no customer sentiment, call left unchanged")
		return result, nil
	}

	unlock := c.locks.Lock(callID)
	defer unlock()

	// Re-read under the lock; the call may have changed during the fetch
	current, err := c.store.GetCall(ctx, callID)
	if err != nil {
		c.record("mergeSentiment", err)
		return nil, err
	}
	if current.Sentiment != nil && *current.Sentiment == value {
		metrics.Get().RecordSentimentMerge("unchanged")
		result.Sentiment = current.Sentiment
		return result, nil
	}

	patch := types.CallPatch{Sentiment: &value}
	if current.ContactID != contactID {
		patch.ContactID = &contactID
	}
	updated, err := c.store.UpdateCall(ctx, callID, patch)
	c.record("mergeSentiment", err)
	if err != nil {
		return nil, err
	}

	metrics.Get().RecordSentimentMerge("changed")
	c.logger.Info().
		Uint("call_id", callID).
		Str("contact_id", contactID).
		Str("sentiment", value).
		Msg("call sentiment updated")

	result.Sentiment = updated.Sentiment
	result.Changed = true

	c.publishDesk(ctx)
	c.alerts.Dispatch(ctx, alerts.CheckCall(*current, *updated))
	return result, nil
}

// publishDesk rebuilds the desk view and broadcasts it as newPage. The
// write already committed, so a cancelled request must not stop it.
func (c *Coordinator) publishDesk(ctx context.Context) {
	rows, err := c.views.DeskView(context.WithoutCancel(ctx))
	if err != nil {
		c.warn(&types.BroadcastWarning{Event: types.EventNewPage, Stage: "rebuild", Err: err})
		return
	}
	c.deliver(types.EventNewPage, rows)
}

func (c *Coordinator) deliver(event string, payload interface{}) {
	d := c.hub.Broadcast(event, payload)
	if d.Err != nil || len(d.Failed) > 0 {
		c.warn(&types.BroadcastWarning{Event: event, Stage: "deliver", Failed: d.Failed, Err: d.Err})
		return
	}
	c.logger.Debug().Str("event", event).Int("delivered", d.Delivered).Msg("event broadcast")
}

func (c *Coordinator) warn(w *types.BroadcastWarning) {
	metrics.Get().RecordBroadcastWarning(w.Event, w.Stage)
	c.logger.Warn().Err(w).Strs("failed", w.Failed).Msg("broadcast warning")
}

func (c *Coordinator) record(op string, err error) {
	metrics.Get().RecordMutation(op, errorClass(err))
}

// errorClass labels an error for metrics
func errorClass(err error) string {
	var (
		validation *types.ValidationError
		notFound   *types.NotFoundError
		persist    *types.PersistenceError
		fetch      *types.TranscriptFetchError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &persist):
		return "persistence"
	case errors.As(err, &fetch):
		return "transcript"
	default:
		return "error"
	}
}
