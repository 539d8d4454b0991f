package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/janhq/voicecall/internal/domain/call"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the room from the terminal",
	Long: `Fetch a token, join the room and talk to the agent until interrupted.
State changes are printed as they happen.`,
	RunE: runJoin,
}

func init() {
	joinCmd.Flags().Duration("poll", 250*time.Millisecond, "State polling interval")
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	poll, err := cmd.Flags().GetDuration("poll")
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

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "AI Agent Voice Demo: joining %s\n", cfg.RoomName)

	snap, err := app.service.Join(ctx)
	if err != nil {
		printSnapshot(cmd, snap)
		return fmt.Errorf("join failed: %w", err)
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := call.View("")
	for {
		snap := app.service.Snapshot()
		if snap.View != last {
			printSnapshot(cmd, snap)
			last = snap.View
		}
		switch snap.View {
		case call.ViewFailed:
			return fmt.Errorf("call failed: %s", snap.Message)
		case call.ViewEnded:
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "leaving call")
			return nil
		case <-ticker.C:
		}
	}
}

func printSnapshot(cmd *cobra.Command, snap call.Snapshot) {
	out := cmd.OutOrStdout()
	switch snap.View {
	case call.ViewConnected:
		fmt.Fprintf(out, "Talking to the AI agent... (call %s, identity %s)\n", snap.CallID, snap.Identity)
	case call.ViewFailed:
		retry := ""
		if snap.Retryable {
			retry = ", run join again to retry"
		}
		fmt.Fprintf(out, "failed: %s%s\n", snap.Message, retry)
	case call.ViewEnded:
		fmt.Fprintln(out, "call ended")
	default:
		fmt.Fprintf(out, "%s...\n", snap.View)
	}
}
