package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mcdev12/sumrush/go/internal/round"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for rounds
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	defaults          round.Config
	limits            Limits
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, defaults round.Config, limits Limits) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		defaults:          defaults,
		limits:            limits,
	}
}

// HandleRoundConnection handles GET /ws/round. The number_count and
// countdown_seconds query parameters override the configured defaults within
// the gateway limits.
func (h *WebSocketHandler) HandleRoundConnection(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.roundConfigFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, cfg); err != nil {
		// The upgrader has already replied to the client
		log.Error().Err(err).Msg("failed to open round connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/round", h.HandleRoundConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}

func (h *WebSocketHandler) roundConfigFromQuery(r *http.Request) (round.Config, error) {
	cfg := h.defaults
	query := r.URL.Query()

	if v := query.Get("number_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid number_count %q", v)
		}
		cfg.NumberCount = n
	}
	if v := query.Get("countdown_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid countdown_seconds %q", v)
		}
		cfg.CountdownSeconds = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := h.limits.Check(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
