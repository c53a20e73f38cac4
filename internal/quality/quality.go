// Package quality scores how complete a discovered profile is.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/spigell/li-finder/internal/brightdata"
)

const (
	// MaxScore is the upper bound of Score.
	MaxScore = 10

	minNameRunes     = 5
	substantialAbout = 50
	minimalAbout     = 10
	networkPresence  = 50
)

var placeholders = map[string]struct{}{
	"n/a":     {},
	"unknown": {},
	"-":       {},
}

// Breakdown holds the points awarded by each check.
type Breakdown struct {
	Name       int `json:"name"`
	Company    int `json:"company"`
	Position   int `json:"position"`
	About      int `json:"about"`
	Experience int `json:"experience"`
	Education  int `json:"education"`
	Network    int `json:"network"`
}

// Total returns the capped sum of all checks.
func (b Breakdown) Total() int {
	total := b.Name + b.Company + b.Position + b.About + b.Experience + b.Education + b.Network
	return min(total, MaxScore)
}

// Score returns a completeness score in [0, MaxScore].
func Score(p *brightdata.Profile) int {
	return Explain(p).Total()
}

// Explain evaluates every check separately.
func Explain(p *brightdata.Profile) Breakdown {
	var b Breakdown
	if p == nil {
		return b
	}

	// A full name has at least two words.
	name := strings.TrimSpace(p.Name)
	if utf8.RuneCountInString(name) > minNameRunes && strings.Contains(name, " ") {
		b.Name = 1
	}

	if meaningful(p.CompanyName()) {
		b.Company = 2
	}

	if meaningful(p.Title()) {
		b.Position = 2
	}

	about := utf8.RuneCountInString(strings.TrimSpace(p.About))
	switch {
	case about > substantialAbout:
		b.About = 2
	case about > minimalAbout:
		b.About = 1
	}

	for _, exp := range p.Experience {
		if strings.TrimSpace(exp.Company) != "" && strings.TrimSpace(exp.Title) != "" {
			b.Experience = 1
			break
		}
	}

	for _, edu := range p.Education {
		if strings.TrimSpace(edu.School) != "" || strings.TrimSpace(edu.Degree) != "" {
			b.Education = 1
			break
		}
	}

	if p.Followers > networkPresence || p.Connections > networkPresence {
		b.Network = 1
	}

	return b
}

func meaningful(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	_, placeholder := placeholders[s]
	return !placeholder
}
