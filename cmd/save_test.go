package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/filtering"
)

func newTestSession(t *testing.T, minScore int) (*session, *observer.ObservedLogs) {
	t.Helper()

	core, observed := observer.New(zapcore.InfoLevel)
	cfg := &Config{
		Match:  &MatchConfig{MinQualityScore: minScore},
		Output: &OutputConfig{Dir: t.TempDir()},
	}
	cfg.normalize()

	return &session{config: cfg, logger: zap.New(core)}, observed
}

func candidate(name, company, headline string) *filtering.Candidate {
	return &filtering.Candidate{
		Profile: &brightdata.Profile{
			Name:               name,
			CurrentCompanyName: company,
			Headline:           headline,
			Raw:                map[string]any{"name": name},
		},
		Matches: []filtering.CompanyMatch{{Field: filtering.FieldCurrent, Index: -1, Company: company}},
	}
}

func savedNames(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("decode results: %v", err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item["name"].(string))
	}
	return names
}

func TestSaveKeepsOnlyHighQualityProfiles(t *testing.T) {
	s, _ := newTestSession(t, 4)
	results := []*filtering.Candidate{
		candidate("Only Weak", "Grant Thornton", ""),
		candidate("Good Match", "Grant Thornton", "Auditor"),
	}

	path, err := s.save(time.Now(), results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"Good Match"}, savedNames(t, path)); diff != "" {
		t.Fatalf("saved profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveWithoutHighQualityWritesNothing(t *testing.T) {
	s, observed := newTestSession(t, 4)

	profiles := []*brightdata.Profile{{Name: "Only Weak", CurrentCompanyName: "Grant Thornton"}}
	matcher, err := filtering.NewCompanyMatcher("grant", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results, err := runFilters(t.Context(), zap.NewNop(), matcher, 4, profiles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the weak match as fallback, got %d results", len(results))
	}

	if err := s.handleAction(PromptSave, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(s.config.Output.Dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no results file, found %s", entries[0].Name())
	}

	warnings := observed.FilterMessage("no high quality profiles to save").All()
	if len(warnings) != 1 || warnings[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected a single warning, got %v", warnings)
	}
}

func TestHandleAutoApproveLogsReportBeforeSaving(t *testing.T) {
	s, observed := newTestSession(t, 4)

	cmd := &cobra.Command{}
	addMatchFlags(cmd)
	if err := cmd.Flags().Set("auto-approve", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	s.handle(cmd, []*filtering.Candidate{candidate("Good Match", "Grant Thornton", "Auditor")})

	entries := observed.All()
	reportAt, savedAt := -1, -1
	for i, entry := range entries {
		switch {
		case strings.Contains(entry.Message, `"high_quality": 1`):
			reportAt = i
		case entry.Message == "results saved":
			savedAt = i
		}
	}
	if reportAt < 0 || savedAt < 0 || reportAt > savedAt {
		t.Fatalf("expected report before save, got report=%d save=%d", reportAt, savedAt)
	}

	files, err := filepath.Glob(filepath.Join(s.config.Output.Dir, "linkedin_quality_results_*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one results file, got %v (%v)", files, err)
	}
}
