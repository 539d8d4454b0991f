package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	loadEnvFiles()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "voicecall",
	Short: "Voice call client for a LiveKit-hosted AI agent",
	Long: `voicecall joins a LiveKit room with a token from the backend, publishes the
microphone and plays the agent's audio.

Examples:
  # Serve the call page on http://localhost:8190
  voicecall serve

  # Join straight from the terminal and record the agent to ./recordings
  voicecall join --playback file`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(joinCmd)

	rootCmd.PersistentFlags().String("token-endpoint", "", "Token endpoint URL (overrides TOKEN_ENDPOINT)")
	rootCmd.PersistentFlags().String("livekit-url", "", "LiveKit server URL (overrides LIVEKIT_URL)")
	rootCmd.PersistentFlags().String("room", "", "Room to join (overrides ROOM_NAME)")
	rootCmd.PersistentFlags().String("playback", "", "Playback mode: ffplay, file or discard (overrides PLAYBACK_MODE)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
