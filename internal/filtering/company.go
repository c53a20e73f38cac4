package filtering

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spigell/li-finder/internal/brightdata"
)

var ErrInvalidPattern = errors.New("invalid company pattern")

// CompanyMatcher finds profiles whose current or past employer matches a pattern.
type CompanyMatcher struct {
	pattern       *regexp.Regexp
	source        string
	caseSensitive bool
}

// NewCompanyMatcher compiles the pattern. Matching is case-insensitive unless caseSensitive is set.
func NewCompanyMatcher(pattern string, caseSensitive bool) (*CompanyMatcher, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: pattern is empty", ErrInvalidPattern)
	}

	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}

	return &CompanyMatcher{pattern: re, source: pattern, caseSensitive: caseSensitive}, nil
}

func (m *CompanyMatcher) String() string {
	return m.source
}

func (m *CompanyMatcher) CaseSensitive() bool {
	return m.caseSensitive
}

// MatchProfile returns every field of the profile that matches the pattern.
func (m *CompanyMatcher) MatchProfile(p *brightdata.Profile) []CompanyMatch {
	if p == nil {
		return nil
	}

	var matches []CompanyMatch

	if current := p.CompanyName(); current != "" && m.pattern.MatchString(current) {
		matches = append(matches, CompanyMatch{Field: FieldCurrent, Index: -1, Company: current})
	}

	for i, exp := range p.Experience {
		if exp.Company != "" && m.pattern.MatchString(exp.Company) {
			matches = append(matches, CompanyMatch{Field: FieldExperience, Index: i, Company: exp.Company})
		}
	}

	return matches
}

// Match keeps the profiles with at least one matching field, in input order.
func (m *CompanyMatcher) Match(profiles []*brightdata.Profile) []*Candidate {
	var matched []*Candidate
	for _, p := range profiles {
		if found := m.MatchProfile(p); len(found) > 0 {
			matched = append(matched, &Candidate{Profile: p, Matches: found})
		}
	}
	return matched
}
