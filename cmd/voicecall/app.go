package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/janhq/voicecall/internal/config"
	"github.com/janhq/voicecall/internal/domain/call"
	"github.com/janhq/voicecall/internal/domain/join"
	"github.com/janhq/voicecall/internal/infrastructure/audio"
	"github.com/janhq/voicecall/internal/infrastructure/livekit"
	"github.com/janhq/voicecall/internal/infrastructure/logger"
	"github.com/janhq/voicecall/internal/infrastructure/metrics"
	"github.com/janhq/voicecall/internal/infrastructure/observability"
	"github.com/janhq/voicecall/internal/infrastructure/store"
	"github.com/janhq/voicecall/internal/infrastructure/tokenclient"
)

// Application holds the wired components shared by serve and join.
type Application struct {
	cfg       *config.Config
	log       zerolog.Logger
	service   *call.Service
	playback  *audio.Sink
	telemetry observability.Shutdown
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := map[string]*string{
		"token-endpoint": &cfg.TokenEndpoint,
		"livekit-url":    &cfg.LiveKitURL,
		"room":           &cfg.RoomName,
		"playback":       &cfg.PlaybackMode,
		"log-level":      &cfg.LogLevel,
	}
	for name, dst := range overrides {
		if !cmd.Flags().Changed(name) {
			continue
		}
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return nil, err
		}
		*dst = value
	}
	if cmd.Flags().Lookup("port") != nil && cmd.Flags().Changed("port") {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return nil, err
		}
		cfg.HTTPPort = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewApplication wires the join flow, the voice session adapters and the
// call store.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log = log.With().Str("service", cfg.ServiceName).Logger()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	tokens := tokenclient.NewClient(cfg.TokenEndpoint, cfg.TokenFetchTimeout, log)
	initiator := join.NewInitiator(tokens, join.NewIdentityGenerator(cfg.IdentityPrefix), cfg.RoomName, log)

	capture := audio.NewMicCapture(audio.CaptureConfig{
		FFmpegPath:    cfg.FFmpegPath,
		InputFormat:   cfg.MicInputFormat,
		InputDevice:   cfg.MicInputDevice,
		FrameDuration: cfg.FrameDuration,
	}, log)
	playback := audio.NewSink(audio.PlaybackConfig{
		Mode:       cfg.PlaybackMode,
		FFplayPath: cfg.FFplayPath,
		Dir:        cfg.PlaybackDir,
	}, log)

	callStore := store.NewMemoryStore(store.DefaultLimit, log)
	service := call.NewService(initiator, call.Media{
		Connector: livekit.NewConnector(log),
		Capture:   capture,
		Playback:  playback,
	}, callStore, cfg.LiveKitURL, metrics.CallRecorder{}, log)

	return &Application{
		cfg:       cfg,
		log:       log,
		service:   service,
		playback:  playback,
		telemetry: shutdownTelemetry,
	}, nil
}

// Close ends the current call, waits for playback to drain and flushes
// telemetry.
func (a *Application) Close() {
	a.service.Close()
	a.playback.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.telemetry(ctx); err != nil {
		a.log.Error().Err(err).Msg("failed to shutdown telemetry")
	}
	a.log.Info().Msg("application exited cleanly")
}
