package round

// Status is the outcome state of a round
type Status string

const (
	StatusPlaying Status = "PLAYING"
	StatusWon     Status = "WON"
	StatusLost    Status = "LOST"
)

// IsTerminal reports whether the round is over
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

func (s Status) String() string {
	return string(s)
}

// evaluate derives the status from the clock and the selected sum.
// Time-out is checked first so a round that hits zero seconds is lost
// even if the selection matches the target.
func evaluate(remainingSeconds, sumSelected, target int) Status {
	switch {
	case remainingSeconds == 0:
		return StatusLost
	case sumSelected < target:
		return StatusPlaying
	case sumSelected == target:
		return StatusWon
	default:
		return StatusLost
	}
}
