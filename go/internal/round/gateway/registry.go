package gateway

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/round"
)

// ErrRoundNotFound is returned when no live round has the requested ID
var ErrRoundNotFound = errors.New("round not found")

// StateProvider interface defines methods for retrieving round state
type StateProvider interface {
	GetRoundState(ctx context.Context, roundID uuid.UUID) (*round.Snapshot, error)
	GetActiveRounds(ctx context.Context) ([]RoundSummary, error)
}

// RoundSummary represents a summary of a live round
type RoundSummary struct {
	RoundID          string       `json:"round_id"`
	Status           round.Status `json:"status"`
	Target           int          `json:"target"`
	NumberCount      int          `json:"number_count"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Selected         int          `json:"selected"`
}

// Registry tracks the rounds currently owned by connected sessions
type Registry struct {
	rounds map[uuid.UUID]*round.Engine
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rounds: make(map[uuid.UUID]*round.Engine),
	}
}

// Add registers a round
func (r *Registry) Add(engine *round.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds[engine.ID()] = engine
}

// Remove forgets a round
func (r *Registry) Remove(roundID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rounds, roundID)
}

// Get returns the round with the given ID
func (r *Registry) Get(roundID uuid.UUID) (*round.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.rounds[roundID]
	return engine, ok
}

// Len returns the number of live rounds
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rounds)
}

// GetRoundState implements StateProvider
func (r *Registry) GetRoundState(ctx context.Context, roundID uuid.UUID) (*round.Snapshot, error) {
	engine, ok := r.Get(roundID)
	if !ok {
		return nil, ErrRoundNotFound
	}
	snap := engine.Snapshot()
	return &snap, nil
}

// GetActiveRounds implements StateProvider
func (r *Registry) GetActiveRounds(ctx context.Context) ([]RoundSummary, error) {
	r.mu.RLock()
	engines := make([]*round.Engine, 0, len(r.rounds))
	for _, engine := range r.rounds {
		engines = append(engines, engine)
	}
	r.mu.RUnlock()

	summaries := make([]RoundSummary, 0, len(engines))
	for _, engine := range engines {
		snap := engine.Snapshot()
		summaries = append(summaries, RoundSummary{
			RoundID:          snap.RoundID.String(),
			Status:           snap.Status,
			Target:           snap.Target,
			NumberCount:      len(snap.Numbers),
			RemainingSeconds: snap.RemainingSeconds,
			Selected:         len(snap.Selection),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RoundID < summaries[j].RoundID
	})
	return summaries, nil
}
