package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/filtering"
	"github.com/spigell/li-finder/internal/poller"
)

func TestClampScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want int
	}{
		{in: -3, want: 0},
		{in: 0, want: 0},
		{in: 4, want: 4},
		{in: 10, want: 10},
		{in: 42, want: 10},
	}

	for _, tt := range tests {
		if got := clampScore(tt.in); got != tt.want {
			t.Fatalf("clampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestConfigNormalizeFillsSections(t *testing.T) {
	cfg := &Config{Match: &MatchConfig{MinQualityScore: 15}, Poll: &PollConfig{MaxWait: -time.Second}}
	cfg.normalize()

	if cfg.Search == nil || cfg.Trigger == nil || cfg.Output == nil {
		t.Fatalf("expected every section to be set: %+v", cfg)
	}
	if cfg.Match.MinQualityScore != 10 {
		t.Fatalf("expected clamped score, got %d", cfg.Match.MinQualityScore)
	}
	if cfg.Poll.MaxWait != 0 {
		t.Fatalf("expected negative max wait to become 0, got %s", cfg.Poll.MaxWait)
	}

	empty := &Config{}
	empty.normalize()
	if empty.Match.MinQualityScore != poller.DefaultMinQualityScore || empty.Poll.MaxWait != poller.DefaultMaxWait {
		t.Fatalf("unexpected defaults: %+v %+v", empty.Match, empty.Poll)
	}
}

func TestPollerConfig(t *testing.T) {
	cfg := &Config{
		Match: &MatchConfig{MinQualityScore: 6},
		Poll:  &PollConfig{MaxWait: 0, FastInterval: time.Second},
	}
	cfg.normalize()

	expected := poller.Config{
		MinQualityScore: 6,
		MaxWait:         0,
		Interval:        poller.DefaultInterval,
		FastInterval:    time.Second,
		FastPhase:       poller.DefaultFastPhase,
	}
	if diff := cmp.Diff(expected, cfg.pollerConfig()); diff != "" {
		t.Fatalf("poller config mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveToken(t *testing.T) {
	file := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(file, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}

	token, err := resolveToken(&Config{TokenFile: file, APIToken: "inline"})
	if err != nil || token != "from-file" {
		t.Fatalf("expected token from file, got %q (%v)", token, err)
	}

	t.Setenv(tokenEnv, " from-env ")
	token, err = resolveToken(&Config{APIToken: "inline"})
	if err != nil || token != "from-env" {
		t.Fatalf("expected token from env, got %q (%v)", token, err)
	}

	t.Setenv(tokenEnv, "")
	token, err = resolveToken(&Config{APIToken: " inline "})
	if err != nil || token != "inline" {
		t.Fatalf("expected inline token, got %q (%v)", token, err)
	}

	if _, err := resolveToken(&Config{}); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestNewClientAppliesConfig(t *testing.T) {
	cfg := &Config{
		DatasetID: "ds_1",
		APIURL:    "http://localhost:1234",
		UserAgent: "tester",
		Trigger:   &TriggerConfig{Attempts: 5, Delay: time.Second},
	}

	client := newClient(cfg, "token", zap.NewNop())

	if client.DatasetID != "ds_1" || client.APIURL != cfg.APIURL || client.UserAgent != "tester" {
		t.Fatalf("unexpected client: %+v", client)
	}
	if client.TriggerAttempts != 5 || client.TriggerDelay != time.Second {
		t.Fatalf("unexpected trigger settings: %d %s", client.TriggerAttempts, client.TriggerDelay)
	}
}

func TestRunFilters(t *testing.T) {
	matcher, err := filtering.NewCompanyMatcher("grant", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profiles := []*brightdata.Profile{
		{Name: "Weak Match", CurrentCompanyName: "Grant Thornton"},
		{Name: "Other Company", CurrentCompanyName: "Globex", Headline: "Manager"},
		{Name: "Good Match", CurrentCompanyName: "Grant Thornton", Headline: "Auditor"},
	}

	got, err := runFilters(context.Background(), zap.NewNop(), matcher, 4, profiles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Good Match"}, (&filtering.Candidates{Items: got}).Names()); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}

	// Nobody reaches the threshold: every matching profile comes back, best first.
	got, err = runFilters(context.Background(), zap.NewNop(), matcher, 9, profiles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Good Match", "Weak Match"}, (&filtering.Candidates{Items: got}).Names()); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}
}
