package filtering

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/quality"
)

const (
	// Keys added to the vendor object when a candidate is written out.
	QualityScoreKey   = "_quality_score"
	CompanyMatchesKey = "_company_matches"
)

// MatchField names the profile field a company pattern matched in.
type MatchField string

const (
	FieldCurrent    MatchField = "current"
	FieldExperience MatchField = "experience"
)

// CompanyMatch records one field that matched the company pattern.
type CompanyMatch struct {
	Field MatchField
	// Index is the experience entry index; it is -1 for the current company.
	Index   int
	Company string
}

func (m CompanyMatch) String() string {
	switch m.Field {
	case FieldCurrent:
		return fmt.Sprintf("Current: %s", m.Company)
	default:
		return fmt.Sprintf("Experience: %s", m.Company)
	}
}

// Candidate pairs a profile with everything derived from it.
// The profile itself is never modified.
type Candidate struct {
	Profile *brightdata.Profile
	Score   int
	Scored  bool
	Matches []CompanyMatch
}

// WithScore returns a copy of the candidate carrying its quality score.
func (c *Candidate) WithScore() *Candidate {
	scored := *c
	scored.Score = quality.Score(c.Profile)
	scored.Scored = true
	return &scored
}

// MarshalJSON writes the vendor object with the derived annotations added.
func (c *Candidate) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if c.Profile != nil {
		for k, v := range c.Profile.Raw {
			out[k] = v
		}
	}

	if c.Scored {
		out[QualityScoreKey] = c.Score
	}

	if len(c.Matches) > 0 {
		matches := make([]string, 0, len(c.Matches))
		for _, m := range c.Matches {
			matches = append(matches, m.String())
		}
		out[CompanyMatchesKey] = matches
	}

	return json.Marshal(out)
}

type Candidates struct {
	Items []*Candidate
}

// NewCandidates wraps profiles that have not been matched or scored yet.
func NewCandidates(profiles []*brightdata.Profile) *Candidates {
	items := make([]*Candidate, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, &Candidate{Profile: p})
	}
	return &Candidates{Items: items}
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Names returns profile names in the current order.
func (c *Candidates) Names() []string {
	names := make([]string, 0, c.Len())
	for _, item := range c.Items {
		names = append(names, item.Profile.Name)
	}
	return names
}

// Partition scores every candidate and splits them by minScore.
// The high list is sorted by descending score; ties keep their input order.
func Partition(items []*Candidate, minScore int) (high, low []*Candidate) {
	for _, item := range items {
		scored := item.WithScore()
		if scored.Score >= minScore {
			high = append(high, scored)
		} else {
			low = append(low, scored)
		}
	}

	SortByScore(high)
	return high, low
}

// SortByScore orders candidates by descending score, keeping ties stable.
func SortByScore(items []*Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}
