package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sumrush/go/internal/round"
	"github.com/rs/zerolog/log"
)

// Service is the round gateway: WebSocket play plus read-only state routes
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	registry          *Registry
}

// ErrRoundTooLarge is returned when a round config is above the gateway limits
var ErrRoundTooLarge = errors.New("round exceeds gateway limits")

// Limits caps the round size a client may request. Every round holds its
// numbers in memory and a ticker for the whole countdown.
type Limits struct {
	MaxNumberCount      int
	MaxCountdownSeconds int
}

// DefaultLimits returns the limits used when none are configured
func DefaultLimits() Limits {
	return Limits{
		MaxNumberCount:      100,
		MaxCountdownSeconds: 3600,
	}
}

// Check rejects configs above the limits
func (l Limits) Check(cfg round.Config) error {
	if cfg.NumberCount > l.MaxNumberCount {
		return fmt.Errorf("%w: number_count %d is above %d", ErrRoundTooLarge, cfg.NumberCount, l.MaxNumberCount)
	}
	if cfg.CountdownSeconds > l.MaxCountdownSeconds {
		return fmt.Errorf("%w: countdown_seconds %d is above %d", ErrRoundTooLarge, cfg.CountdownSeconds, l.MaxCountdownSeconds)
	}
	return nil
}

// Config holds configuration for the round gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	Round            round.Config
	// Limits bounds query overrides. Zero fields fall back to DefaultLimits.
	Limits Limits
	// Clock drives every round's countdown. Nil means the real clock.
	Clock clockwork.Clock
}

// DefaultConfig returns default configuration for the round gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Round:            round.DefaultConfig(),
		Limits:           DefaultLimits(),
	}
}

// NewService creates a new round gateway service
func NewService(config Config) (*Service, error) {
	if err := config.Round.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}
	if config.Limits.MaxNumberCount <= 0 {
		config.Limits.MaxNumberCount = DefaultLimits().MaxNumberCount
	}
	if config.Limits.MaxCountdownSeconds <= 0 {
		config.Limits.MaxCountdownSeconds = DefaultLimits().MaxCountdownSeconds
	}
	if err := config.Limits.Check(config.Round); err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	registry := NewRegistry()
	connectionManager := NewConnectionManager(config.ConnectionConfig, registry, config.Clock)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, config.Round, config.Limits),
		stateHandler:      NewStateHandler(registry),
		registry:          registry,
	}, nil
}

// Start blocks until ctx is cancelled, then drops every connection
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting round gateway service")

	<-ctx.Done()

	log.Info().Msg("round gateway service shutting down")
	return s.Stop()
}

// Stop closes all connections, which stops their rounds
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()
	log.Info().Msg("round gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("round gateway routes registered")
}

// Registry exposes the live rounds
func (s *Service) Registry() *Registry {
	return s.registry
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "round_gateway"
	stats["status"] = "running"
	return stats
}
