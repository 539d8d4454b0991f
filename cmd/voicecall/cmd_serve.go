package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janhq/voicecall/internal/interfaces/httpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the call page and API",
	Long:  `Start the HTTP server with the join page, the state/join API, health checks and metrics.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides HTTP_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	server := httpserver.New(cfg, app.log, app.service)

	app.log.Info().
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("room", cfg.RoomName).
		Str("livekit_url", cfg.LiveKitURL).
		Msg("starting application")

	return server.Run(ctx)
}
