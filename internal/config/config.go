package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Playback modes for remote agent audio.
const (
	PlaybackFFplay  = "ffplay"
	PlaybackFile    = "file"
	PlaybackDiscard = "discard"
)

// Config holds all configuration for the voicecall client.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"voicecall"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Token backend
	TokenEndpoint     string        `env:"TOKEN_ENDPOINT" envDefault:"http://localhost:8000/get-livekit-token"`
	TokenFetchTimeout time.Duration `env:"TOKEN_FETCH_TIMEOUT" envDefault:"10s"`

	// LiveKit
	LiveKitURL     string `env:"LIVEKIT_URL" envDefault:"wss://friday-1-few4r3qf.livekit.cloud"`
	RoomName       string `env:"ROOM_NAME" envDefault:"client-demo-room"`
	IdentityPrefix string `env:"IDENTITY_PREFIX" envDefault:"client-user"`

	// Audio devices
	FFmpegPath     string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	MicInputFormat string        `env:"MIC_INPUT_FORMAT"`
	MicInputDevice string        `env:"MIC_INPUT_DEVICE"`
	FrameDuration  time.Duration `env:"MIC_FRAME_DURATION" envDefault:"20ms"`
	PlaybackMode   string        `env:"PLAYBACK_MODE" envDefault:"ffplay"`
	FFplayPath     string        `env:"FFPLAY_PATH" envDefault:"ffplay"`
	PlaybackDir    string        `env:"PLAYBACK_DIR" envDefault:"recordings"`
}

// Load parses environment variables into Config. It does not validate, so
// CLI flags can still override a bad value; call Validate afterwards.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that the join flow depends on.
func (c *Config) Validate() error {
	endpoint, err := url.Parse(strings.TrimSpace(c.TokenEndpoint))
	if err != nil || endpoint.Host == "" || (endpoint.Scheme != "http" && endpoint.Scheme != "https") {
		return fmt.Errorf("TOKEN_ENDPOINT must be an absolute http(s) URL, got %q", c.TokenEndpoint)
	}

	lk, err := url.Parse(strings.TrimSpace(c.LiveKitURL))
	if err != nil || lk.Host == "" {
		return fmt.Errorf("LIVEKIT_URL must be an absolute URL, got %q", c.LiveKitURL)
	}
	switch lk.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("LIVEKIT_URL scheme must be ws, wss, http or https, got %q", lk.Scheme)
	}

	if strings.TrimSpace(c.RoomName) == "" {
		return fmt.Errorf("ROOM_NAME is required")
	}
	if strings.TrimSpace(c.IdentityPrefix) == "" {
		return fmt.Errorf("IDENTITY_PREFIX is required")
	}
	if c.TokenFetchTimeout <= 0 {
		return fmt.Errorf("TOKEN_FETCH_TIMEOUT must be positive")
	}

	switch c.PlaybackMode {
	case PlaybackFFplay, PlaybackDiscard:
	case PlaybackFile:
		if strings.TrimSpace(c.PlaybackDir) == "" {
			return fmt.Errorf("PLAYBACK_DIR is required when PLAYBACK_MODE is file")
		}
	default:
		return fmt.Errorf("PLAYBACK_MODE must be one of ffplay, file, discard, got %q", c.PlaybackMode)
	}

	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
