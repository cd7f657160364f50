package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/metrics"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
)

// Subscriber receives broadcast events. Send must not block.
type Subscriber interface {
	ID() string
	Send(message []byte) error
}

// closer is implemented by subscribers that hold a connection
type closer interface {
	Close()
}

// Delivery reports the outcome of one broadcast
type Delivery struct {
	Event     string
	Delivered int
	Failed    []string // ids of subscribers that could not be reached
	Err       error    // set when the event could not be encoded
}

// SnapshotFunc produces the event a new subscriber starts from
type SnapshotFunc func() (event string, payload interface{}, err error)

// Hub maintains the set of active subscribers and broadcasts events to them
type Hub struct {
	subscribers map[string]Subscriber

	// Protects subscribers
	mu sync.RWMutex

	// Serializes broadcasts so every subscriber sees events in emission order
	sendMu sync.Mutex

	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
		logger:      logger.With().Str("component", "hub").Logger(),
	}
}

// Register adds a subscriber; registering the same id twice is a no-op
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	_, exists := h.subscribers[s.ID()]
	if !exists {
		h.subscribers[s.ID()] = s
	}
	total := len(h.subscribers)
	h.mu.Unlock()

	if exists {
		return
	}
	metrics.Get().RecordWebSocketConnect()
	h.logger.Info().
		Str("client_id", s.ID()).
		Int("total_clients", total).
		Msg("client connected")
}

// RegisterWithSnapshot sends the snapshot event to s and then registers it.
// No broadcast can interleave, so s never receives an event older than its
// snapshot.
func (h *Hub) RegisterWithSnapshot(s Subscriber, snapshot SnapshotFunc) error {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	event, payload, err := snapshot()
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}
	message, err := encode(event, payload)
	if err != nil {
		return err
	}
	if err := safeSend(s, message); err != nil {
		return fmt.Errorf("failed to send snapshot: %w", err)
	}

	h.Register(s)
	return nil
}

// Unregister removes a subscriber and closes its connection
func (h *Hub) Unregister(s Subscriber) {
	h.remove(s.ID(), "client disconnected")
}

func (h *Hub) remove(id, reason string) {
	h.mu.Lock()
	s, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	total := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c, ok := s.(closer); ok {
		c.Close()
	}
	metrics.Get().RecordWebSocketDisconnect()
	h.logger.Info().
		Str("client_id", id).
		Int("total_clients", total).
		Msg(reason)
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast delivers the event to every registered subscriber. A failing
// subscriber is skipped and dropped; the rest still receive the event.
func (h *Hub) Broadcast(event string, payload interface{}) Delivery {
	d := Delivery{Event: event}

	message, err := encode(event, payload)
	if err != nil {
		d.Err = err
		return d
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := safeSend(s, message); err != nil {
			d.Failed = append(d.Failed, s.ID())
			metrics.Get().RecordWebSocketError()
			h.logger.Warn().
				Err(err).
				Str("client_id", s.ID()).
				Str("event", event).
				Msg("delivery failed")
			continue
		}
		d.Delivered++
	}

	for _, id := range d.Failed {
		h.remove(id, "client dropped after failed delivery")
	}

	metrics.Get().RecordBroadcast(event, len(d.Failed))
	return d
}

func encode(event string, payload interface{}) ([]byte, error) {
	message, err := json.Marshal(types.Event{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return message, nil
}

// safeSend turns a panicking subscriber into an error
func safeSend(s Subscriber, message []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return s.Send(message)
}
