package gateway

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sumrush/go/internal/round"
	"github.com/mcdev12/sumrush/go/internal/round/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session plays rounds for one player. It builds a round, starts it, forwards
// commands into it and turns every state change into events. Replay discards
// the finished round and builds a new one.
type Session struct {
	id       string
	cfg      round.Config
	clock    clockwork.Clock
	registry *Registry
	out      func([]byte) bool
	logger   zerolog.Logger

	mu     sync.Mutex
	engine *round.Engine
	closed bool
}

// NewSession creates a session that writes encoded events to out
func NewSession(id string, cfg round.Config, clock clockwork.Clock, registry *Registry, out func([]byte) bool) *Session {
	return &Session{
		id:       id,
		cfg:      cfg,
		clock:    clock,
		registry: registry,
		out:      out,
		logger:   log.With().Str("session_id", id).Logger(),
	}
}

// Begin starts the first round
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil || s.closed {
		return nil
	}
	ActiveSessions.Inc()
	return s.startRoundLocked()
}

// Current returns the round being played, nil before Begin
func (s *Session) Current() *round.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// HandleCommand applies a player command
func (s *Session) HandleCommand(cmd ClientCommand) {
	s.mu.Lock()
	engine, closed := s.engine, s.closed
	s.mu.Unlock()
	if engine == nil || closed {
		return
	}

	switch cmd.Type {
	case CommandSelect:
		engine.Select(cmd.Index)
	case CommandPlayAgain:
		if err := s.PlayAgain(); err != nil {
			s.logger.Error().Err(err).Msg("failed to start new round")
		}
	case CommandSync:
		s.emit(engine.ID(), EventTypeRoundState, engine.Snapshot())
	default:
		s.logger.Warn().Str("command", string(cmd.Type)).Msg("ignoring unknown command")
	}
}

// PlayAgain replaces a finished round with a new one. It does nothing while
// the current round is still being played.
func (s *Session) PlayAgain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.engine == nil {
		return nil
	}
	if !s.engine.Status().IsTerminal() {
		s.logger.Debug().
			Str("round_id", s.engine.ID().String()).
			Msg("ignoring play again while round in progress")
		return nil
	}

	s.releaseLocked()
	return s.startRoundLocked()
}

// Close stops the current round and drops it from the registry. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.engine != nil {
		s.releaseLocked()
		ActiveSessions.Dec()
	}
	s.logger.Debug().Msg("session closed")
}

func (s *Session) startRoundLocked() error {
	tracker := &roundTracker{session: s}
	engine, err := round.New(s.cfg,
		round.WithClock(s.clock),
		round.WithObserver(tracker.observe),
	)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}

	initial := engine.Snapshot()
	tracker.prev = &initial

	s.engine = engine
	s.registry.Add(engine)
	RoundsStarted.Inc()

	s.emit(engine.ID(), EventTypeRoundStarted, events.RoundStartedPayload{
		RoundID:          engine.ID().String(),
		Numbers:          engine.DisplayNumbers(),
		Target:           engine.Target(),
		CountdownSeconds: s.cfg.CountdownSeconds,
		StartedAt:        s.clock.Now(),
	})

	s.logger.Info().
		Str("round_id", engine.ID().String()).
		Int("target", engine.Target()).
		Msg("round started")

	engine.Start()
	return nil
}

func (s *Session) releaseLocked() {
	s.engine.Stop()
	s.registry.Remove(s.engine.ID())
}

func (s *Session) emit(roundID uuid.UUID, eventType EventType, payload interface{}) {
	event, err := NewRoundEvent(roundID, eventType, s.clock.Now(), payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}
	s.out(data)
}

// roundTracker diffs consecutive snapshots of one round into events
type roundTracker struct {
	session *Session
	prev    *round.Snapshot
}

func (t *roundTracker) observe(snap round.Snapshot) {
	s := t.session
	now := s.clock.Now()
	roundID := snap.RoundID.String()

	if t.prev != nil {
		if snap.RemainingSeconds < t.prev.RemainingSeconds {
			s.emit(snap.RoundID, EventTypeTimerTick, events.TimerTickPayload{
				RoundID:          roundID,
				TimeRemainingSec: snap.RemainingSeconds,
				TickedAt:         now,
			})
		}

		sum := t.prev.SumSelected
		for _, idx := range snap.Selection[len(t.prev.Selection):] {
			value := snap.Numbers[idx].Value
			sum += value
			Selections.Inc()
			s.emit(snap.RoundID, EventTypeNumberSelected, events.NumberSelectedPayload{
				RoundID:     roundID,
				Index:       idx,
				Value:       value,
				SumSelected: sum,
				SelectedAt:  now,
			})
		}

		if !t.prev.Status.IsTerminal() && snap.Status.IsTerminal() {
			RoundsFinished.WithLabelValues(snap.Status.String()).Inc()
			s.emit(snap.RoundID, EventTypeRoundFinished, events.RoundFinishedPayload{
				RoundID:          roundID,
				Status:           snap.Status,
				Target:           snap.Target,
				SumSelected:      snap.SumSelected,
				TimeRemainingSec: snap.RemainingSeconds,
				FinishedAt:       now,
			})
		}
	}

	s.emit(snap.RoundID, EventTypeRoundState, snap)
	t.prev = &snap
}
