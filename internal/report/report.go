// Package report summarizes discovered candidates and writes the results file.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/li-finder/internal/filtering"
	"github.com/spigell/li-finder/internal/quality"
)

const (
	filePrefix = "linkedin_quality_results_"
	timeLayout = "20060102_150405"
	notSet     = "N/A"
)

type Report struct {
	Total       int       `json:"total"`
	HighQuality int       `json:"high_quality"`
	LowQuality  int       `json:"low_quality"`
	Profiles    []Entry   `json:"profiles,omitempty"`
	FilteredOut []Skipped `json:"filtered_out,omitempty"`
}

// Entry describes a high quality candidate.
type Entry struct {
	Name       string            `json:"name"`
	Score      int               `json:"quality_score"`
	Company    string            `json:"current_company"`
	Position   string            `json:"position"`
	AboutChars int               `json:"about_chars"`
	Experience int               `json:"experience_entries"`
	Network    int               `json:"network"`
	URL        string            `json:"url"`
	Matches    []string          `json:"company_matches,omitempty"`
	Breakdown  quality.Breakdown `json:"breakdown"`
}

// Skipped is a short line about a candidate below the quality threshold.
type Skipped struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Score int    `json:"quality_score"`
}

// Build summarizes both lists. Candidates are expected to be scored already.
func Build(high, low []*filtering.Candidate) *Report {
	r := &Report{
		Total:       len(high) + len(low),
		HighQuality: len(high),
		LowQuality:  len(low),
	}

	for _, c := range high {
		p := c.Profile
		network := int(p.Followers)
		if network == 0 {
			network = int(p.Connections)
		}

		matches := make([]string, 0, len(c.Matches))
		for _, m := range c.Matches {
			matches = append(matches, m.String())
		}

		r.Profiles = append(r.Profiles, Entry{
			Name:       orNotSet(p.Name),
			Score:      c.Score,
			Company:    orNotSet(p.CompanyName()),
			Position:   orNotSet(p.Title()),
			AboutChars: utf8.RuneCountInString(p.About),
			Experience: len(p.Experience),
			Network:    network,
			URL:        orNotSet(p.URL),
			Matches:    matches,
			Breakdown:  quality.Explain(p),
		})
	}

	for _, c := range low {
		name := c.Profile.Name
		if name == "" {
			name = "Unknown"
		}
		r.FilteredOut = append(r.FilteredOut, Skipped{
			Name:  name,
			ID:    profileID(c.Profile.URL),
			Score: c.Score,
		})
	}

	return r
}

// Filename returns the results file name for the given moment.
func Filename(now time.Time) string {
	return filePrefix + now.Format(timeLayout) + ".json"
}

// Save writes candidates as an indented JSON array into dir and returns the file path.
func Save(dir string, now time.Time, items []*filtering.Candidate) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, Filename(now))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if items == nil {
		items = []*filtering.Candidate{}
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("encode results: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close results file %s: %w", path, err)
	}

	return path, nil
}

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSet
	}
	return s
}

func profileID(url string) string {
	url = strings.TrimRight(url, "/")
	if url == "" {
		return notSet
	}
	return url[strings.LastIndex(url, "/")+1:]
}
