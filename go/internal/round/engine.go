package round

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// tickInterval is the countdown resolution
const tickInterval = time.Second

// Observer is called after every state change with a consistent snapshot.
// Observers run in mutation order outside the state lock. They may call the
// query methods but must not issue commands on the engine.
type Observer func(Snapshot)

// Option configures an Engine
type Option func(*Engine)

// WithClock swaps the clock driving the countdown. Tests pass a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithSource swaps the random source used to generate the puzzle
func WithSource(src Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithObserver registers a callback for state changes
func WithObserver(fn Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, fn)
	}
}

// WithID sets the round ID instead of generating one
func WithID(id uuid.UUID) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// Engine runs a single round: puzzle, selection, countdown and outcome.
// An Engine is built fresh for every round and never reused.
type Engine struct {
	id        uuid.UUID
	cfg       Config
	clock     clockwork.Clock
	source    Source
	observers []Observer
	logger    zerolog.Logger

	puzzle

	mu        sync.Mutex
	selection []int
	selected  []bool
	sum       int
	remaining int
	status    Status
	version   uint64

	// countdown; both nil while not ticking
	ticker clockwork.Ticker
	done   chan struct{}

	// observers get snapshots in version order; delivered is the last version handed out
	notifyMu   sync.Mutex
	notifyTurn *sync.Cond
	delivered  uint64
}

// New generates a puzzle for cfg. The countdown does not run until Start is called.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		source: globalSource{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.notifyTurn = sync.NewCond(&e.notifyMu)
	if e.id == uuid.Nil {
		e.id = uuid.New()
	}

	e.puzzle = generatePuzzle(cfg.NumberCount, e.source)
	e.selected = make([]bool, cfg.NumberCount)
	e.remaining = cfg.CountdownSeconds
	e.status = StatusPlaying
	e.logger = log.With().Str("round_id", e.id.String()).Logger()

	e.logger.Debug().
		Int("number_count", cfg.NumberCount).
		Int("countdown_seconds", cfg.CountdownSeconds).
		Int("target", e.target).
		Msg("round created")

	return e, nil
}

// ID returns the round ID
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Config returns the config the round was built from
func (e *Engine) Config() Config {
	return e.cfg
}

// Start begins the one-second countdown. It is a no-op while already ticking
// or once the round is over.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.ticker != nil || e.status.IsTerminal() {
		e.mu.Unlock()
		return
	}

	e.ticker = e.clock.NewTicker(tickInterval)
	e.done = make(chan struct{})
	go e.run(e.ticker, e.done)

	e.logger.Debug().Int("remaining_seconds", e.remaining).Msg("countdown started")
	e.commitLocked()
}

// Stop halts the countdown. Safe to call any number of times.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.stopLocked() {
		e.mu.Unlock()
		return
	}
	e.commitLocked()
}

// Tick advances the countdown by one second
func (e *Engine) Tick() {
	e.mu.Lock()
	if !e.tickLocked() {
		e.mu.Unlock()
		return
	}
	e.commitLocked()
}

// Select adds a display index to the selection. Selecting while the round is
// over, selecting twice or selecting an unknown index does nothing.
func (e *Engine) Select(displayIndex int) {
	e.mu.Lock()
	if !e.isSelectableLocked(displayIndex) {
		e.logger.Debug().
			Int("index", displayIndex).
			Str("status", e.status.String()).
			Msg("ignoring selection")
		e.mu.Unlock()
		return
	}

	e.selected[displayIndex] = true
	e.selection = append(e.selection, displayIndex)
	e.sum += e.numbers[displayIndex].Value
	e.reevaluateLocked()

	e.logger.Debug().
		Int("index", displayIndex).
		Int("value", e.numbers[displayIndex].Value).
		Int("sum_selected", e.sum).
		Msg("number selected")
	e.commitLocked()
}

// DisplayNumbers returns the numbers in display order
func (e *Engine) DisplayNumbers() []PuzzleNumber {
	out := make([]PuzzleNumber, len(e.numbers))
	copy(out, e.numbers)
	return out
}

// Target returns the sum the player has to hit
func (e *Engine) Target() int {
	return e.target
}

// RemainingSeconds returns the seconds left on the countdown
func (e *Engine) RemainingSeconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Status returns PLAYING until the round is won or lost
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Selection returns the selected display indices in the order they were picked
func (e *Engine) Selection() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, len(e.selection))
	copy(out, e.selection)
	return out
}

// SumSelected returns the sum of the selected display values
func (e *Engine) SumSelected() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sum
}

// IsSelected reports whether the display index has been picked
func (e *Engine) IsSelected(displayIndex int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSelectedLocked(displayIndex)
}

// IsSelectable reports whether Select(displayIndex) would be accepted
func (e *Engine) IsSelectable(displayIndex int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSelectableLocked(displayIndex)
}

// Ticking reports whether the countdown is running
func (e *Engine) Ticking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticker != nil
}

// Snapshot returns the whole observable state at once
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// run forwards ticker fires to the engine until done is closed. A fire that
// races with Stop is dropped because done no longer matches.
func (e *Engine) run(ticker clockwork.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			e.mu.Lock()
			if e.done != done {
				e.mu.Unlock()
				return
			}
			if !e.tickLocked() {
				e.mu.Unlock()
				continue
			}
			e.commitLocked()
		}
	}
}

func (e *Engine) tickLocked() bool {
	if e.status.IsTerminal() {
		e.logger.Debug().Msg("ignoring tick after round ended")
		return false
	}

	if e.remaining > 0 {
		e.remaining--
	}
	e.reevaluateLocked()
	if e.remaining == 0 {
		e.stopLocked()
	}

	e.logger.Debug().Int("remaining_seconds", e.remaining).Msg("tick")
	return true
}

// reevaluateLocked is the only writer of status
func (e *Engine) reevaluateLocked() {
	if e.status.IsTerminal() {
		return
	}
	next := evaluate(e.remaining, e.sum, e.target)
	if next == e.status {
		return
	}
	e.status = next
	if next.IsTerminal() {
		e.stopLocked()
		e.logger.Info().
			Str("status", next.String()).
			Int("target", e.target).
			Int("sum_selected", e.sum).
			Int("remaining_seconds", e.remaining).
			Msg("round finished")
	}
}

func (e *Engine) stopLocked() bool {
	if e.ticker == nil {
		return false
	}
	e.ticker.Stop()
	close(e.done)
	e.ticker = nil
	e.done = nil
	e.logger.Debug().Int("remaining_seconds", e.remaining).Msg("countdown stopped")
	return true
}

func (e *Engine) isSelectedLocked(displayIndex int) bool {
	if displayIndex < 0 || displayIndex >= len(e.selected) {
		return false
	}
	return e.selected[displayIndex]
}

func (e *Engine) isSelectableLocked(displayIndex int) bool {
	if displayIndex < 0 || displayIndex >= len(e.selected) {
		return false
	}
	return e.status == StatusPlaying && !e.selected[displayIndex]
}

// commitLocked publishes the current state. It must be called with e.mu held
// and releases it. The snapshot version is the delivery ticket: the caller
// waits for its turn only after e.mu is released, so observers may query the
// engine while another mutation is queued behind them.
func (e *Engine) commitLocked() {
	e.version++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	for e.delivered != snap.Version-1 {
		e.notifyTurn.Wait()
	}

	for _, fn := range e.observers {
		fn(snap)
	}

	e.delivered = snap.Version
	e.notifyTurn.Broadcast()
}
