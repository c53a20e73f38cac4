package cmd

import (
	"context"
	"time"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/quality"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const statusTimeout = time.Minute

var statusCmd = &cobra.Command{
	Use:   "status <snapshot-id>...",
	Short: "Check one or more discovery snapshots once",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		status(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Int("concurrency", brightdata.DefaultConcurrency, "how many snapshots to check at once")
}

func status(cmd *cobra.Command, snapshotIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	s := newSession(true)

	concurrency, _ := cmd.Flags().GetInt("concurrency")

	snapshots, err := s.client.Snapshots(ctx, snapshotIDs, concurrency)
	if err != nil {
		s.logger.Fatal("checking snapshots", zap.Strings("snapshot_ids", snapshotIDs), zap.Error(err))
	}

	for _, snapshot := range snapshots {
		s.logger.Info("snapshot status",
			zap.String("snapshot_id", snapshot.ID),
			zap.Stringer("state", snapshot.State),
			zap.Int("status_code", snapshot.StatusCode),
			zap.Int("profiles", len(snapshot.Profiles)),
			zap.Int("skipped", snapshot.Skipped),
		)

		for _, p := range snapshot.Profiles {
			s.logger.Debug("profile",
				zap.String("snapshot_id", snapshot.ID),
				zap.String("name", p.Name),
				zap.String("company", p.CompanyName()),
				zap.String("url", p.URL),
				zap.Int("quality_score", quality.Score(p)),
			)
		}
	}
}
