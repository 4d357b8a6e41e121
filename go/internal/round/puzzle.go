package round

import "math/rand/v2"

// PuzzleNumber is one number as shown to the player. Index is its display position.
type PuzzleNumber struct {
	Index int `json:"index"`
	Value int `json:"value"`
}

// Source is the randomness a round draws from. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalSource uses the auto-seeded top-level math/rand/v2 generator
type globalSource struct{}

func (globalSource) IntN(n int) int                     { return rand.IntN(n) }
func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// puzzle is the immutable part of a round
type puzzle struct {
	generation []int
	numbers    []PuzzleNumber
	target     int
}

// generatePuzzle draws count values in [MinValue, MaxValue], sums the generation
// prefix into the target and shuffles a copy into display order.
func generatePuzzle(count int, src Source) puzzle {
	generation := make([]int, count)
	for i := range generation {
		generation[i] = MinValue + src.IntN(MaxValue-MinValue+1)
	}

	target := 0
	for _, v := range generation[:count-decoyCount] {
		target += v
	}

	shuffled := make([]int, count)
	copy(shuffled, generation)
	src.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	numbers := make([]PuzzleNumber, count)
	for i, v := range shuffled {
		numbers[i] = PuzzleNumber{Index: i, Value: v}
	}

	return puzzle{
		generation: generation,
		numbers:    numbers,
		target:     target,
	}
}
