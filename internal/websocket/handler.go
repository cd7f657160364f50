package websocket

import (
	"context"
	"net/http"

	"github.com/dennisdiepolder/calldesk/internal/auth"
	"github.com/dennisdiepolder/calldesk/internal/config"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DeskSource provides the snapshot a new dashboard starts from
type DeskSource interface {
	DeskView(ctx context.Context) ([]types.DeskViewRow, error)
}

// Handler handles WebSocket upgrade requests
type Handler struct {
	hub      *Hub
	desk     DeskSource
	config   *config.Config
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, desk DeskSource, cfg *config.Config, logger zerolog.Logger) *Handler {
	h := &Handler{
		hub:    hub,
		desk:   desk,
		config: cfg,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.OriginAllowed(r.Header.Get("Origin"))
		},
	}
	return h
}

// ServeHTTP upgrades the connection, sends the current desk view and
// subscribes the client to further events
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	claims, _ := auth.GetUserFromContext(r.Context())
	client := NewClient(h.hub, conn, h.config, h.logger, claims)

	// The request context ends with the upgrade handshake
	ctx := context.WithoutCancel(r.Context())
	err = h.hub.RegisterWithSnapshot(client, func() (string, interface{}, error) {
		rows, err := h.desk.DeskView(ctx)
		return types.EventNewPage, rows, err
	})
	if err != nil {
		// Subscribe anyway; the next broadcast brings the client up to date
		h.logger.Warn().Err(err).Str("client_id", client.ID()).Msg("initial snapshot failed")
		h.hub.Register(client)
	}

	client.Start()
}
