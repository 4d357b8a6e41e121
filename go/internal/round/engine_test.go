package round

import (
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// scriptedSource replays fixed draws and reverses on shuffle
type scriptedSource struct {
	draws []int
	pos   int
}

func (s *scriptedSource) IntN(n int) int {
	v := s.draws[s.pos]
	s.pos++
	return v - MinValue
}

func (s *scriptedSource) Shuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

// newScripted builds the [4,9,2,1,7,3] round: target 16, display [3,7,1,2,9,4]
func newScripted(t *testing.T, countdown int, opts ...Option) *Engine {
	t.Helper()
	src := &scriptedSource{draws: []int{4, 9, 2, 1, 7, 3}}
	opts = append([]Option{WithSource(src), WithClock(clockwork.NewFakeClock())}, opts...)
	e, err := New(Config{NumberCount: 6, CountdownSeconds: countdown}, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"two numbers", Config{NumberCount: 2, CountdownSeconds: 10}},
		{"no numbers", Config{NumberCount: 0, CountdownSeconds: 10}},
		{"zero countdown", Config{NumberCount: 6, CountdownSeconds: 0}},
		{"negative countdown", Config{NumberCount: 6, CountdownSeconds: -3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := New(tc.cfg)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("New(%+v) error = %v; want ErrInvalidConfiguration", tc.cfg, err)
			}
			if e != nil {
				t.Fatalf("New(%+v) returned an engine alongside an error", tc.cfg)
			}
		})
	}
}

func TestNewMinimumConfig(t *testing.T) {
	e, err := New(Config{NumberCount: MinNumberCount, CountdownSeconds: MinCountdownSeconds})
	if err != nil {
		t.Fatalf("New failed for minimum config: %v", err)
	}
	if e.Target() != e.generation[0] {
		t.Fatalf("target = %d; want first generation value %d", e.Target(), e.generation[0])
	}
}

func TestGenerationProperties(t *testing.T) {
	for _, count := range []int{3, 4, 6, 10, 25} {
		for i := 0; i < 50; i++ {
			e, err := New(Config{NumberCount: count, CountdownSeconds: 5})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			want := 0
			for _, v := range e.generation[:count-2] {
				want += v
			}
			if e.Target() != want {
				t.Fatalf("target = %d; want prefix sum %d of %v", e.Target(), want, e.generation)
			}

			numbers := e.DisplayNumbers()
			if len(numbers) != count {
				t.Fatalf("got %d display numbers; want %d", len(numbers), count)
			}
			display := make([]int, count)
			for idx, n := range numbers {
				if n.Index != idx {
					t.Fatalf("display number %d has index %d", idx, n.Index)
				}
				if n.Value < MinValue || n.Value > MaxValue {
					t.Fatalf("value %d out of range", n.Value)
				}
				display[idx] = n.Value
			}

			generation := append([]int(nil), e.generation...)
			sort.Ints(generation)
			sort.Ints(display)
			if !reflect.DeepEqual(generation, display) {
				t.Fatalf("display values %v are not a permutation of %v", display, generation)
			}
		}
	}
}

func TestNewDoesNotStartCountdown(t *testing.T) {
	e := newScripted(t, 10)

	if e.Ticking() {
		t.Fatalf("countdown running before Start")
	}
	if e.Status() != StatusPlaying {
		t.Fatalf("status = %s; want PLAYING", e.Status())
	}
	if e.RemainingSeconds() != 10 {
		t.Fatalf("remaining = %d; want 10", e.RemainingSeconds())
	}
}

func TestScriptedPuzzle(t *testing.T) {
	e := newScripted(t, 10)

	if e.Target() != 16 {
		t.Fatalf("target = %d; want 16", e.Target())
	}
	want := []PuzzleNumber{{0, 3}, {1, 7}, {2, 1}, {3, 2}, {4, 9}, {5, 4}}
	if got := e.DisplayNumbers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("display = %v; want %v", got, want)
	}
}

func TestExactMatchWins(t *testing.T) {
	e := newScripted(t, 10)
	e.Start()
	e.Tick()

	e.Select(1) // 7
	if e.Status() != StatusPlaying {
		t.Fatalf("status after 7 = %s; want PLAYING", e.Status())
	}
	e.Select(4) // 9

	if e.Status() != StatusWon {
		t.Fatalf("status = %s; want WON", e.Status())
	}
	if e.Ticking() {
		t.Fatalf("countdown still running after win")
	}
	if e.RemainingSeconds() != 9 {
		t.Fatalf("remaining = %d; want 9", e.RemainingSeconds())
	}

	e.Tick()
	if e.RemainingSeconds() != 9 {
		t.Fatalf("tick after win changed remaining to %d", e.RemainingSeconds())
	}
}

func TestOvershootLosesImmediately(t *testing.T) {
	e := newScripted(t, 10)
	e.Start()

	for _, idx := range []int{4, 5, 2} { // 9, 4, 1
		e.Select(idx)
		if e.Status() != StatusPlaying {
			t.Fatalf("status after selecting %d = %s; want PLAYING", idx, e.Status())
		}
	}
	e.Select(0) // 3, sum 17

	if e.SumSelected() != 17 {
		t.Fatalf("sum = %d; want 17", e.SumSelected())
	}
	if e.Status() != StatusLost {
		t.Fatalf("status = %s; want LOST", e.Status())
	}
	if e.RemainingSeconds() != 10 {
		t.Fatalf("remaining = %d; want 10", e.RemainingSeconds())
	}
	if e.Ticking() {
		t.Fatalf("countdown still running after overshoot")
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	once := newScripted(t, 10)
	twice := newScripted(t, 10)

	once.Select(1)
	twice.Select(1)
	twice.Select(1)

	if !reflect.DeepEqual(once.Selection(), twice.Selection()) {
		t.Fatalf("selection %v != %v", once.Selection(), twice.Selection())
	}
	if once.SumSelected() != twice.SumSelected() || once.Status() != twice.Status() {
		t.Fatalf("double select diverged: sum %d/%d status %s/%s",
			once.SumSelected(), twice.SumSelected(), once.Status(), twice.Status())
	}
}

func TestSelectIgnoresUnknownIndex(t *testing.T) {
	e := newScripted(t, 10)

	for _, idx := range []int{-1, 6, 100} {
		e.Select(idx)
		if e.IsSelectable(idx) || e.IsSelected(idx) {
			t.Fatalf("index %d reported as selectable or selected", idx)
		}
	}
	if len(e.Selection()) != 0 {
		t.Fatalf("selection = %v; want empty", e.Selection())
	}
}

func TestSelectAfterWinIsNoop(t *testing.T) {
	e := newScripted(t, 10)
	e.Select(1)
	e.Select(4)
	if e.Status() != StatusWon {
		t.Fatalf("status = %s; want WON", e.Status())
	}
	before := e.Snapshot()

	e.Select(0)
	e.Select(2)

	if after := e.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot changed after terminal selects:\nbefore %+v\nafter  %+v", before, after)
	}
	for i := 0; i < 6; i++ {
		if e.IsSelectable(i) {
			t.Fatalf("index %d selectable after win", i)
		}
	}
}

func TestSelectionOrderPreserved(t *testing.T) {
	e := newScripted(t, 10)
	e.Select(3)
	e.Select(0)
	e.Select(2)

	if got, want := e.Selection(), []int{3, 0, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("selection = %v; want %v", got, want)
	}
	if !e.IsSelected(0) || e.IsSelected(1) {
		t.Fatalf("IsSelected disagrees with selection")
	}
	if e.IsSelectable(0) || !e.IsSelectable(1) {
		t.Fatalf("IsSelectable disagrees with selection")
	}
}

func TestTimeoutLoses(t *testing.T) {
	e := newScripted(t, 3)
	e.Start()
	e.Select(1)

	prev := e.RemainingSeconds()
	for i := 0; i < 5; i++ {
		e.Tick()
		got := e.RemainingSeconds()
		if got > prev || got < 0 {
			t.Fatalf("remaining went from %d to %d", prev, got)
		}
		prev = got
	}

	if prev != 0 {
		t.Fatalf("remaining = %d; want 0", prev)
	}
	if e.Status() != StatusLost {
		t.Fatalf("status = %s; want LOST", e.Status())
	}
	if e.Ticking() {
		t.Fatalf("countdown still running after timeout")
	}
	if got := e.Selection(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("selection = %v; want [1]", got)
	}
}

func TestEvaluateTimeoutTakesPrecedence(t *testing.T) {
	cases := []struct {
		remaining, sum, target int
		want                   Status
	}{
		{0, 16, 16, StatusLost},
		{0, 3, 16, StatusLost},
		{0, 20, 16, StatusLost},
		{1, 3, 16, StatusPlaying},
		{1, 16, 16, StatusWon},
		{1, 17, 16, StatusLost},
	}

	for _, tc := range cases {
		if got := evaluate(tc.remaining, tc.sum, tc.target); got != tc.want {
			t.Fatalf("evaluate(%d,%d,%d) = %s; want %s", tc.remaining, tc.sum, tc.target, got, tc.want)
		}
	}
}

func TestStatusNeverLeavesTerminal(t *testing.T) {
	e := newScripted(t, 2)
	e.Select(1)
	e.Select(4)
	if e.Status() != StatusWon {
		t.Fatalf("status = %s; want WON", e.Status())
	}

	e.Start()
	e.Tick()
	e.Tick()
	e.Select(0)

	if e.Status() != StatusWon {
		t.Fatalf("status changed to %s after terminal", e.Status())
	}
	if e.Ticking() {
		t.Fatalf("Start restarted the countdown after the round ended")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var versions []uint64
	e := newScripted(t, 10, WithClock(clock), WithObserver(func(s Snapshot) {
		versions = append(versions, s.Version)
	}))

	e.Start()
	e.Start()
	e.Start()

	if len(versions) != 1 {
		t.Fatalf("observed %d start notifications; want 1", len(versions))
	}
	e.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	e := newScripted(t, 10)
	e.Stop()

	e.Start()
	e.Tick()
	e.Stop()
	after := e.Snapshot()

	e.Stop()
	e.Stop()

	if again := e.Snapshot(); !reflect.DeepEqual(after, again) {
		t.Fatalf("repeated Stop changed state:\nafter %+v\nagain %+v", after, again)
	}
	if after.Ticking {
		t.Fatalf("still ticking after Stop")
	}
	if after.Status != StatusPlaying {
		t.Fatalf("Stop changed status to %s", after.Status)
	}
}

func TestObserverSeesEveryChange(t *testing.T) {
	var seen []Snapshot
	e := newScripted(t, 10, WithObserver(func(s Snapshot) {
		seen = append(seen, s)
	}))

	e.Start()
	e.Tick()
	e.Select(1)
	e.Select(1)
	e.Select(4)
	e.Stop()

	if len(seen) != 4 {
		t.Fatalf("got %d notifications; want 4", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Version <= seen[i-1].Version {
			t.Fatalf("versions not increasing: %d then %d", seen[i-1].Version, seen[i].Version)
		}
	}
	last := seen[len(seen)-1]
	if last.Status != StatusWon || last.Ticking {
		t.Fatalf("last snapshot = %+v; want WON and not ticking", last)
	}
	if !last.Numbers[1].Selected || last.Numbers[0].Selectable {
		t.Fatalf("number flags wrong in final snapshot: %+v", last.Numbers)
	}
}

func TestObserverCanQueryWhileTickQueued(t *testing.T) {
	var e *Engine
	queried := make(chan Status, 1)
	notified := make(chan uint64, 2)
	e = newScripted(t, 10, WithObserver(func(s Snapshot) {
		if s.Version == 1 {
			// the tick takes the state lock and queues behind this delivery
			go e.Tick()
			time.Sleep(20 * time.Millisecond)
			queried <- e.Status()
		}
		notified <- s.Version
	}))

	go e.Start()

	timeout := time.After(2 * time.Second)
	select {
	case status := <-queried:
		if status != StatusPlaying {
			t.Fatalf("status from observer = %s; want PLAYING", status)
		}
	case <-timeout:
		t.Fatalf("observer query blocked behind queued tick")
	}
	for want := uint64(1); want <= 2; want++ {
		select {
		case got := <-notified:
			if got != want {
				t.Fatalf("notification version = %d; want %d", got, want)
			}
		case <-timeout:
			t.Fatalf("notification %d never delivered", want)
		}
	}
	if got := e.RemainingSeconds(); got != 9 {
		t.Fatalf("remaining = %d; want 9", got)
	}
	e.Stop()
}

func TestFakeClockDrivesCountdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	snaps := make(chan Snapshot, 16)
	e := newScripted(t, 3, WithClock(clock), WithObserver(func(s Snapshot) {
		snaps <- s
	}))

	e.Start()
	if s := <-snaps; !s.Ticking || s.RemainingSeconds != 3 {
		t.Fatalf("start snapshot = %+v", s)
	}

	for want := 2; want >= 0; want-- {
		clock.Advance(time.Second)
		select {
		case s := <-snaps:
			if s.RemainingSeconds != want {
				t.Fatalf("remaining = %d; want %d", s.RemainingSeconds, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no tick observed for remaining %d", want)
		}
	}

	if e.Status() != StatusLost {
		t.Fatalf("status = %s; want LOST", e.Status())
	}
	if e.Ticking() {
		t.Fatalf("countdown still running after reaching zero")
	}

	clock.Advance(5 * time.Second)
	select {
	case s := <-snaps:
		t.Fatalf("unexpected notification after timeout: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
	if e.RemainingSeconds() != 0 {
		t.Fatalf("remaining = %d; want 0", e.RemainingSeconds())
	}
}

func TestFakeClockStopHaltsTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	snaps := make(chan Snapshot, 16)
	e := newScripted(t, 10, WithClock(clock), WithObserver(func(s Snapshot) {
		snaps <- s
	}))

	e.Start()
	<-snaps
	clock.Advance(time.Second)
	if s := <-snaps; s.RemainingSeconds != 9 {
		t.Fatalf("remaining = %d; want 9", s.RemainingSeconds)
	}

	e.Stop()
	if s := <-snaps; s.Ticking {
		t.Fatalf("stop snapshot still ticking")
	}

	clock.Advance(3 * time.Second)
	select {
	case s := <-snaps:
		t.Fatalf("unexpected notification after Stop: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
	if e.RemainingSeconds() != 9 {
		t.Fatalf("remaining = %d; want 9", e.RemainingSeconds())
	}
}
