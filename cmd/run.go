package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/filtering"
	"github.com/spigell/li-finder/internal/logger"
	"github.com/spigell/li-finder/internal/poller"
	"github.com/spigell/li-finder/internal/report"
	"github.com/spigell/li-finder/internal/secrets"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptSave   = "Save results to file"
	PromptReport = "Print report"
	PromptExit   = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptSave, PromptReport, PromptExit},
}

// searchFlags maps config keys to the flags overriding them.
var searchFlags = map[string]string{
	"match.company-pattern":   "pattern",
	"match.case-sensitive":    "case-sensitive",
	"match.min-quality-score": "min-score",
	"poll.max-wait":           "max-wait",
	"output.dir":              "output-dir",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a discovery by name and wait for profiles matching the company",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindSearchFlags(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addMatchFlags(runCmd)
	addWaitFlags(runCmd)
}

func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("pattern", "p", "", "company name regular expression (overrides match.company-pattern)")
	cmd.Flags().Bool("case-sensitive", false, "match the company pattern case sensitively")
	cmd.Flags().Int("min-score", poller.DefaultMinQualityScore, "minimal profile quality score, from 0 to 10")
	cmd.Flags().StringP("output-dir", "o", ".", "directory for the results file")
	cmd.Flags().BoolP("auto-approve", "y", false, "save results without asking")
}

func addWaitFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("max-wait", poller.DefaultMaxWait, "maximum time to wait for the discovery results")
}

// bindSearchFlags binds flags of the executed command only, so commands sharing flag names do not shadow each other.
func bindSearchFlags(cmd *cobra.Command) {
	for key, name := range searchFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			log.Fatalf("binding %s flag: %v", name, err)
		}
	}
}

// session holds what every command needs to talk to the vendor and handle results.
type session struct {
	config *Config
	runID  string
	logger *zap.Logger
	client *brightdata.Client
}

// newSession builds the logger and the config. Pass withClient to resolve the API token and build the vendor client.
func newSession(withClient bool) *session {
	base, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), viper.GetString("log-file"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		base.Fatal("getting a config", zap.Error(err))
	}

	s := &session{
		config: config,
		runID:  uuid.NewString(),
	}
	s.logger = logger.WithCommonFields(base, s.runID, config.DatasetID, "")

	s.logger.Info("starting the li-finder", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	s.logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if !withClient {
		return s
	}

	token, err := resolveToken(config)
	if err != nil {
		s.logger.Fatal(
			"loading bright data api token",
			zap.Error(err),
			zap.String("hint", "set BRIGHTDATA_TOKEN_FILE or BRIGHTDATA_API_TOKEN environment variable or the 'token-file' key in the configuration file"),
		)
	}

	s.client = newClient(config, token, s.logger)

	return s
}

func resolveToken(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	return secrets.Load(secrets.Source{
		Name:  "bright data api token",
		File:  config.TokenFile,
		Env:   tokenEnv,
		Value: config.APIToken,
	})
}

func newClient(config *Config, token string, logger *zap.Logger) *brightdata.Client {
	client := brightdata.New(logger, token, config.DatasetID)

	if config.APIURL != "" {
		client.APIURL = config.APIURL
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}
	if config.Trigger.Attempts > 0 {
		client.TriggerAttempts = config.Trigger.Attempts
	}
	if config.Trigger.Delay > 0 {
		client.TriggerDelay = config.Trigger.Delay
	}

	return client
}

// matcher compiles the company pattern or stops the program before anything is sent to the vendor.
func (s *session) matcher() *filtering.CompanyMatcher {
	matcher, err := filtering.NewCompanyMatcher(s.config.Match.CompanyPattern, s.config.Match.CaseSensitive)
	if err != nil {
		s.logger.Fatal("compiling the company pattern",
			zap.Error(err),
			zap.String("hint", "set match.company-pattern in the configuration file or use --pattern"),
		)
	}
	return matcher
}

// wait polls the snapshot and returns whatever was found. An interrupted wait still returns the best matches.
func (s *session) wait(ctx context.Context, matcher *filtering.CompanyMatcher, snapshotID string) []*filtering.Candidate {
	p := poller.New(s.client, matcher, s.config.pollerConfig(), poller.WithLogger(s.logger))

	outcome, err := p.Wait(ctx, snapshotID)
	if err != nil {
		s.logger.Warn("waiting interrupted", zap.Error(err))
	}

	s.logger.Info("waiting finished",
		zap.String("snapshot_id", snapshotID),
		zap.Stringer("state", outcome.State),
		zap.String("reason", string(outcome.Reason)),
		zap.Int("ticks", outcome.Ticks),
		zap.Duration("elapsed", outcome.Elapsed),
		zap.Int("matches", len(outcome.Results)),
	)

	return outcome.Results
}

// handle shows the action menu for the found profiles until the user exits.
func (s *session) handle(cmd *cobra.Command, results []*filtering.Candidate) {
	if len(results) == 0 {
		s.logger.Info("exiting", zap.String("reason", "no matching profiles found"))
		return
	}

	autoApprove := cmd.Flag("auto-approve").Value.String() == "true"
	if autoApprove {
		s.logReport(results)
	}

	for {
		action := PromptSave
		if !autoApprove {
			var err error
			_, action, err = prompt.Run()
			if err != nil {
				s.logger.Fatal("exiting", zap.Error(err))
			}
		}

		s.logger.Info("current list of profiles", zap.Int("count", len(results)))

		if err := s.handleAction(action, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			s.logger.Fatal("exiting", zap.Error(err))
		}

		if autoApprove {
			return
		}
	}
}

func (s *session) handleAction(action string, results []*filtering.Candidate) error {
	switch action {
	case PromptSave:
		_, err := s.save(time.Now(), results)
		return err
	case PromptReport:
		s.logReport(results)
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// save writes only the profiles reaching the minimal quality score. Nothing is
// written when there are none, and the returned path is empty.
func (s *session) save(now time.Time, results []*filtering.Candidate) (string, error) {
	high, low := filtering.Partition(results, s.config.Match.MinQualityScore)
	if len(high) == 0 {
		s.logger.Warn("no high quality profiles to save",
			zap.Int("low_quality", len(low)),
			zap.Int("min_quality_score", s.config.Match.MinQualityScore),
			zap.String("hint", "consider lowering --min-score"),
		)
		return "", nil
	}

	filename, err := report.Save(s.config.Output.Dir, now, high)
	if err != nil {
		return "", fmt.Errorf("save results to file: %w", err)
	}
	s.logger.Info("results saved", zap.String("filename", filename), zap.Int("profiles count", len(high)))

	return filename, nil
}

func (s *session) logReport(results []*filtering.Candidate) {
	high, low := filtering.Partition(results, s.config.Match.MinQualityScore)
	pretty, _ := json.MarshalIndent(report.Build(high, low), "", "  ")
	s.logger.Info(string(pretty), zap.Int("profiles count", len(results)))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := newSession(true)
	matcher := s.matcher()

	if err := brightdata.ValidatePeople(s.config.People); err != nil {
		s.logger.Fatal("checking people to discover",
			zap.Error(err),
			zap.String("hint", "list first-name and last-name of every person under the people key"),
		)
	}

	s.logger.Info("starting the discovery",
		zap.Int("people", len(s.config.People)),
		zap.String("pattern", matcher.String()),
		zap.Bool("case_sensitive", matcher.CaseSensitive()),
	)

	triggered, err := s.client.Trigger(ctx, s.config.People, s.config.Search.Params)
	if err != nil {
		var httpErr *brightdata.HTTPError
		if errors.As(err, &httpErr) {
			s.logger.Fatal("triggering the discovery",
				zap.Error(err),
				zap.String("body", logger.TruncateForLog(httpErr.Body, 500)),
			)
		}
		s.logger.Fatal("triggering the discovery", zap.Error(err))
	}

	s.logger.Info("discovery triggered",
		zap.String("snapshot_id", triggered.SnapshotID),
		zap.String("hint", "use the wait command with this snapshot id to resume"),
	)

	s.handle(cmd, s.wait(ctx, matcher, triggered.SnapshotID))
}
