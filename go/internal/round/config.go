package round

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a round cannot be built from the given Config
var ErrInvalidConfiguration = errors.New("invalid round configuration")

const (
	// MinNumberCount leaves at least one number in the target prefix after the two decoys
	MinNumberCount = 3
	// MinCountdownSeconds is the shortest countdown a round accepts
	MinCountdownSeconds = 1

	// MinValue and MaxValue bound every drawn number
	MinValue = 1
	MaxValue = 10

	// decoyCount is how many trailing generation slots are left out of the target
	decoyCount = 2
)

// Config holds the two knobs a round is built from
type Config struct {
	NumberCount      int `yaml:"number_count" json:"number_count"`
	CountdownSeconds int `yaml:"countdown_seconds" json:"countdown_seconds"`
}

// DefaultConfig returns six numbers against a ten second clock
func DefaultConfig() Config {
	return Config{
		NumberCount:      6,
		CountdownSeconds: 10,
	}
}

// Validate reports ErrInvalidConfiguration for configs that cannot form a puzzle
func (c Config) Validate() error {
	if c.NumberCount < MinNumberCount {
		return fmt.Errorf("%w: number count %d is below minimum %d", ErrInvalidConfiguration, c.NumberCount, MinNumberCount)
	}
	if c.CountdownSeconds < MinCountdownSeconds {
		return fmt.Errorf("%w: countdown %ds is below minimum %ds", ErrInvalidConfiguration, c.CountdownSeconds, MinCountdownSeconds)
	}
	return nil
}
