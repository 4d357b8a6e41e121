package events

import (
	"time"

	"github.com/mcdev12/sumrush/go/internal/round"
)

// Event payload types shared between the round engine adapters and the gateway

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	RoundID          string               `json:"round_id"`
	Numbers          []round.PuzzleNumber `json:"numbers"`
	Target           int                  `json:"target"`
	CountdownSeconds int                  `json:"countdown_seconds"`
	StartedAt        time.Time            `json:"started_at"`
}

// TimerTickPayload is the payload for a TimerTick event
type TimerTickPayload struct {
	RoundID          string    `json:"round_id"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	TickedAt         time.Time `json:"ticked_at"`
}

// NumberSelectedPayload is the payload for a NumberSelected event
type NumberSelectedPayload struct {
	RoundID     string    `json:"round_id"`
	Index       int       `json:"index"`
	Value       int       `json:"value"`
	SumSelected int       `json:"sum_selected"`
	SelectedAt  time.Time `json:"selected_at"`
}

// RoundFinishedPayload is the payload for a RoundFinished event
type RoundFinishedPayload struct {
	RoundID          string       `json:"round_id"`
	Status           round.Status `json:"status"`
	Target           int          `json:"target"`
	SumSelected      int          `json:"sum_selected"`
	TimeRemainingSec int          `json:"time_remaining_sec"`
	FinishedAt       time.Time    `json:"finished_at"`
}
