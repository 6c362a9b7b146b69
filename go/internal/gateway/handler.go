// Package gateway owns the WebSocket edge: connection lifecycle, wire
// framing, and routing of inbound events into the domain components.
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/auth"
)

// Handler serves the WebSocket endpoint
type Handler struct {
	manager  *ConnectionManager
	verifier *auth.Verifier
}

// NewHandler creates the gateway HTTP handler. A nil verifier disables token
// checks; connections then identify themselves via user-online alone.
func NewHandler(manager *ConnectionManager, verifier *auth.Verifier) *Handler {
	return &Handler{manager: manager, verifier: verifier}
}

// RegisterRoutes mounts the gateway endpoints on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.serveWS)
}

// serveWS authenticates and upgrades a client connection. With auth enabled
// the token pins the connection to its player before any event is processed.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	var identity auth.Identity
	if h.verifier != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		var err error
		identity, err = h.verifier.Verify(token)
		if err != nil {
			log.Warn().Err(err).Msg("rejected connection with invalid token")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	} else if id := r.URL.Query().Get("player_id"); id != "" {
		// Dev mode: an unverified player_id pins the connection's identity
		identity = auth.Identity{PlayerID: id}
	}

	c, err := h.manager.Upgrade(w, r)
	if err != nil {
		// Upgrade has already written the error response
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if identity.PlayerID != "" {
		c.playerID.Store(identity.PlayerID)
		log.Info().
			Str("connection_id", c.ID).
			Str("player_id", identity.PlayerID).
			Msg("connection authenticated")
	}
}
