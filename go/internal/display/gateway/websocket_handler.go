package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests from screens
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	display           DisplayProvider
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, display DisplayProvider) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		display:           display,
	}
}

// HandleDisplayConnection upgrades a screen and sends it the current view first
func (h *WebSocketHandler) HandleDisplayConnection(w http.ResponseWriter, r *http.Request) {
	screenID := r.URL.Query().Get("screen_id")
	if screenID == "" {
		screenID = "anonymous"
	}

	initial, err := json.Marshal(snapshotEvent(h.display))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal initial snapshot")
		initial = nil
	}

	// On failure the upgrader has already replied to the client
	if err := h.connectionManager.UpgradeConnection(w, r, screenID, initial); err != nil {
		log.Error().
			Err(err).
			Str("screen_id", screenID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}
