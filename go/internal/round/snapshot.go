package round

import "github.com/google/uuid"

// Snapshot is everything a renderer needs for one frame
type Snapshot struct {
	RoundID          uuid.UUID    `json:"round_id"`
	Version          uint64       `json:"version"`
	Numbers          []NumberView `json:"numbers"`
	Target           int          `json:"target"`
	SumSelected      int          `json:"sum_selected"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Status           Status       `json:"status"`
	Selection        []int        `json:"selection"`
	Ticking          bool         `json:"ticking"`
}

// NumberView is a display number with its per-frame flags
type NumberView struct {
	PuzzleNumber
	Selected   bool `json:"selected"`
	Selectable bool `json:"selectable"`
}

func (e *Engine) snapshotLocked() Snapshot {
	numbers := make([]NumberView, len(e.numbers))
	for i, n := range e.numbers {
		numbers[i] = NumberView{
			PuzzleNumber: n,
			Selected:     e.selected[i],
			Selectable:   e.isSelectableLocked(i),
		}
	}

	selection := make([]int, len(e.selection))
	copy(selection, e.selection)

	return Snapshot{
		RoundID:          e.id,
		Version:          e.version,
		Numbers:          numbers,
		Target:           e.target,
		SumSelected:      e.sum,
		RemainingSeconds: e.remaining,
		Status:           e.status,
		Selection:        selection,
		Ticking:          e.ticker != nil,
	}
}
