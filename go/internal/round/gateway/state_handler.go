package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateHandler handles HTTP requests for round state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetRoundState handles GET /api/rounds/{id}/state
func (h *StateHandler) HandleGetRoundState(w http.ResponseWriter, r *http.Request) {
	roundIDStr := r.PathValue("id")
	if roundIDStr == "" {
		http.Error(w, "Round ID is required", http.StatusBadRequest)
		return
	}

	roundID, err := uuid.Parse(roundIDStr)
	if err != nil {
		http.Error(w, "Invalid round ID format", http.StatusBadRequest)
		return
	}

	state, err := h.stateProvider.GetRoundState(r.Context(), roundID)
	if errors.Is(err, ErrRoundNotFound) {
		http.Error(w, "Round not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to get round state")
		http.Error(w, "Failed to get round state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode round state response")
	}
}

// HandleGetActiveRounds handles GET /api/rounds
func (h *StateHandler) HandleGetActiveRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.stateProvider.GetActiveRounds(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get active rounds")
		http.Error(w, "Failed to get active rounds", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rounds); err != nil {
		log.Error().Err(err).Msg("failed to encode active rounds response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rounds", h.HandleGetActiveRounds)
	mux.HandleFunc("GET /api/rounds/{id}/state", h.HandleGetRoundState)
}
