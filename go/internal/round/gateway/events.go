package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/round"
	"github.com/mcdev12/sumrush/go/internal/round/events"
)

// RoundEvent is the envelope for every server to client message
type RoundEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoundID   string          `json:"round_id"`  // Round UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of round event
type EventType string

const (
	EventTypeRoundStarted   EventType = "RoundStarted"
	EventTypeTimerTick      EventType = "TimerTick"
	EventTypeNumberSelected EventType = "NumberSelected"
	EventTypeRoundFinished  EventType = "RoundFinished"
	EventTypeRoundState     EventType = "RoundState"
)

// NewRoundEvent wraps payload in an envelope
func NewRoundEvent(roundID uuid.UUID, eventType EventType, at time.Time, payload interface{}) (*RoundEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &RoundEvent{
		ID:        uuid.New().String(),
		RoundID:   roundID.String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *RoundEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeRoundStarted:
		var payload events.RoundStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTimerTick:
		var payload events.TimerTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeNumberSelected:
		var payload events.NumberSelectedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundFinished:
		var payload events.RoundFinishedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundState:
		var payload round.Snapshot
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}

// ClientCommand is a message sent by the player
type ClientCommand struct {
	Type  CommandType `json:"type"`
	Index int         `json:"index"`
}

// CommandType represents the type of client command
type CommandType string

const (
	CommandSelect    CommandType = "select"
	CommandPlayAgain CommandType = "play_again"
	CommandSync      CommandType = "sync"
)
