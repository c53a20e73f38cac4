package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var waitCmd = &cobra.Command{
	Use:   "wait <snapshot-id>",
	Short: "Wait for an already triggered discovery and handle the matching profiles",
	Args:  cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindSearchFlags(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		waitSnapshot(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)

	addMatchFlags(waitCmd)
	addWaitFlags(waitCmd)
}

func waitSnapshot(cmd *cobra.Command, snapshotID string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := newSession(true)
	matcher := s.matcher()

	s.logger.Info("resuming the discovery",
		zap.String("snapshot_id", snapshotID),
		zap.String("pattern", matcher.String()),
	)

	s.handle(cmd, s.wait(ctx, matcher, snapshotID))
}
