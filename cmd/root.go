package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/poller"
	"github.com/spigell/li-finder/internal/quality"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "li-finder"

	tokenFileEnv = "BRIGHTDATA_TOKEN_FILE"
	tokenEnv     = "BRIGHTDATA_API_TOKEN"
)

type Config struct {
	TokenFile string              `mapstructure:"token-file"`
	APIToken  string              `mapstructure:"api-token" json:"-"`
	DatasetID string              `mapstructure:"dataset-id"`
	APIURL    string              `mapstructure:"api-url"`
	UserAgent string              `mapstructure:"user-agent"`
	People    []brightdata.Person `mapstructure:"people"`
	Search    *SearchConfig       `mapstructure:"search"`
	Match     *MatchConfig        `mapstructure:"match"`
	Poll      *PollConfig         `mapstructure:"poll"`
	Trigger   *TriggerConfig      `mapstructure:"trigger"`
	Output    *OutputConfig       `mapstructure:"output"`
}

type SearchConfig struct {
	Params map[string]string `mapstructure:"params"`
}

type MatchConfig struct {
	CompanyPattern  string `mapstructure:"company-pattern"`
	CaseSensitive   bool   `mapstructure:"case-sensitive"`
	MinQualityScore int    `mapstructure:"min-quality-score"`
}

type PollConfig struct {
	MaxWait      time.Duration `mapstructure:"max-wait"`
	Interval     time.Duration `mapstructure:"interval"`
	FastInterval time.Duration `mapstructure:"fast-interval"`
	FastPhase    time.Duration `mapstructure:"fast-phase"`
}

type TriggerConfig struct {
	Attempts uint          `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "li-finder discovers LinkedIn profiles by name via Bright Data and keeps the ones matching a company",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("token-file", tokenFileEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", tokenFileEnv, err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is li-finder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func setDefaults() {
	viper.SetDefault("dataset-id", brightdata.DefaultDatasetID)
	viper.SetDefault("match.min-quality-score", poller.DefaultMinQualityScore)
	viper.SetDefault("poll.max-wait", poller.DefaultMaxWait)
	viper.SetDefault("poll.interval", poller.DefaultInterval)
	viper.SetDefault("poll.fast-interval", poller.DefaultFastInterval)
	viper.SetDefault("poll.fast-phase", poller.DefaultFastPhase)
	viper.SetDefault("trigger.attempts", 3)
	viper.SetDefault("trigger.delay", 2*time.Second)
	viper.SetDefault("output.dir", ".")
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Only run needs the config file. Other commands can work on env variables and flags.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && runCmd.CalledAs() == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	config.normalize()

	return config, nil
}

func (c *Config) normalize() {
	if c.Search == nil {
		c.Search = &SearchConfig{}
	}
	if c.Match == nil {
		c.Match = &MatchConfig{MinQualityScore: poller.DefaultMinQualityScore}
	}
	if c.Poll == nil {
		c.Poll = &PollConfig{MaxWait: poller.DefaultMaxWait}
	}
	if c.Trigger == nil {
		c.Trigger = &TriggerConfig{}
	}
	if c.Output == nil {
		c.Output = &OutputConfig{}
	}

	c.Match.MinQualityScore = clampScore(c.Match.MinQualityScore)
	if c.Poll.MaxWait < 0 {
		c.Poll.MaxWait = 0
	}
}

func (c *Config) pollerConfig() poller.Config {
	cfg := poller.DefaultConfig()
	cfg.MinQualityScore = c.Match.MinQualityScore
	cfg.MaxWait = c.Poll.MaxWait

	if c.Poll.Interval > 0 {
		cfg.Interval = c.Poll.Interval
	}
	if c.Poll.FastInterval > 0 {
		cfg.FastInterval = c.Poll.FastInterval
	}
	if c.Poll.FastPhase > 0 {
		cfg.FastPhase = c.Poll.FastPhase
	}

	return cfg
}

func clampScore(score int) int {
	return max(0, min(score, quality.MaxScore))
}
