package gamecfg

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/sumrush/go/internal/round"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when the loaded settings cannot run the server
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full server configuration
type Config struct {
	Round     round.Config    `yaml:"round"`
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Limits    LimitsConfig    `yaml:"limits"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// WebSocketConfig tunes the gateway connections
type WebSocketConfig struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	SendBufferSize  int           `yaml:"send_buffer_size"`
}

// LimitsConfig bounds the round size a client may request over the gateway
type LimitsConfig struct {
	MaxNumberCount      int `yaml:"max_number_count"`
	MaxCountdownSeconds int `yaml:"max_countdown_seconds"`
}

// Default returns the settings used when no file or env override is given
func Default() Config {
	return Config{
		Round: round.DefaultConfig(),
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
		},
		WebSocket: WebSocketConfig{
			WriteTimeout:    10 * time.Second,
			ReadTimeout:     60 * time.Second,
			PingInterval:    30 * time.Second,
			MaxMessageSize:  1024,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendBufferSize:  64,
		},
		Limits: LimitsConfig{
			MaxNumberCount:      100,
			MaxCountdownSeconds: 3600,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies env overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads the file named by SUMRUSH_CONFIG, if any
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("SUMRUSH_CONFIG"))
}

// Validate checks the round settings against the limits, the log level and
// the websocket tuning
func (c Config) Validate() error {
	if err := c.Round.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Limits.MaxNumberCount < round.MinNumberCount {
		return fmt.Errorf("%w: max_number_count must be at least %d", ErrInvalidConfig, round.MinNumberCount)
	}
	if c.Limits.MaxCountdownSeconds < round.MinCountdownSeconds {
		return fmt.Errorf("%w: max_countdown_seconds must be at least %d", ErrInvalidConfig, round.MinCountdownSeconds)
	}
	if c.Round.NumberCount > c.Limits.MaxNumberCount || c.Round.CountdownSeconds > c.Limits.MaxCountdownSeconds {
		return fmt.Errorf("%w: round %+v is above limits %+v", ErrInvalidConfig, c.Round, c.Limits)
	}
	if err := c.WebSocket.validate(); err != nil {
		return fmt.Errorf("%w: websocket: %w", ErrInvalidConfig, err)
	}
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q: %w", ErrInvalidConfig, c.Server.LogLevel, err)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("%w: server port is empty", ErrInvalidConfig)
	}
	return nil
}

func (w WebSocketConfig) validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"write_timeout", w.WriteTimeout},
		{"read_timeout", w.ReadTimeout},
		{"ping_interval", w.PingInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.value)
		}
	}
	if w.PingInterval >= w.ReadTimeout {
		return fmt.Errorf("ping_interval %v must be shorter than read_timeout %v", w.PingInterval, w.ReadTimeout)
	}
	if w.MaxMessageSize <= 0 || w.SendBufferSize <= 0 {
		return errors.New("max_message_size and send_buffer_size must be positive")
	}
	if w.ReadBufferSize < 0 || w.WriteBufferSize < 0 {
		return errors.New("buffer sizes cannot be negative")
	}
	return nil
}

// Level returns the parsed log level. Validate has already rejected bad values.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Round.NumberCount = getEnvAsInt("ROUND_NUMBER_COUNT", c.Round.NumberCount)
	c.Round.CountdownSeconds = getEnvAsInt("ROUND_COUNTDOWN_SECONDS", c.Round.CountdownSeconds)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
