package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/filtering"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var filterCmd = &cobra.Command{
	Use:   "filter <file>",
	Short: "Filter profiles from a saved snapshot or results file",
	Args:  cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindSearchFlags(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		filterFile(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)

	addMatchFlags(filterCmd)
}

func filterFile(cmd *cobra.Command, path string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := newSession(false)
	matcher := s.matcher()

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Fatal("reading profiles file", zap.String("filename", path), zap.Error(err))
	}

	profiles, skipped, err := brightdata.ParseProfiles(data)
	if err != nil {
		s.logger.Fatal("parsing profiles file", zap.String("filename", path), zap.Error(err))
	}

	s.logger.Info("reading profiles",
		zap.String("filename", path),
		zap.Int("count", len(profiles)),
		zap.Int("skipped", skipped),
	)

	results, err := runFilters(ctx, s.logger, matcher, s.config.Match.MinQualityScore, profiles)
	if err != nil {
		s.logger.Fatal("filtering failed", zap.Error(err))
	}

	s.handle(cmd, results)
}

// runFilters keeps matching profiles above the quality threshold. When none
// reach it, every matching profile is returned best first.
func runFilters(ctx context.Context, logger *zap.Logger, matcher *filtering.CompanyMatcher, minScore int, profiles []*brightdata.Profile) ([]*filtering.Candidate, error) {
	steps := []filtering.Filter{
		filtering.NewCompany(matcher),
		filtering.NewQuality(minScore),
	}

	for _, st := range filtering.Describe(steps) {
		logger.Debug("filter configured", zap.String("name", st.Name), zap.Any("details", st.Details))
	}

	kept, rejected, err := filtering.Run(ctx, logger, steps, filtering.NewCandidates(profiles))
	if err != nil {
		return nil, err
	}

	if kept.Len() > 0 {
		return kept.Items, nil
	}

	filtering.SortByScore(rejected)
	return rejected, nil
}
