package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to candidates.
type Filter interface {
	Name() string
	Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// rejectionCollector is implemented by steps whose dropped candidates are still worth reporting.
type rejectionCollector interface {
	Rejected() []*Candidate
}

// Run executes the supplied filters sequentially and returns what is left
// together with candidates that collecting steps rejected.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, c *Candidates) (*Candidates, []*Candidate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var rejected []*Candidate
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		next, info, err := step.Apply(ctx, c)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		c = next

		if collector, ok := step.(rejectionCollector); ok {
			rejected = append(rejected, collector.Rejected()...)
		}
	}

	return c, rejected, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: step.Name()})
	}
	return statuses
}

type companyFilter struct {
	matcher *CompanyMatcher
}

// NewCompany creates a step that keeps candidates employed (now or before) by a matching company.
func NewCompany(matcher *CompanyMatcher) Filter {
	return &companyFilter{matcher: matcher}
}

func (f *companyFilter) Name() string { return "company" }

func (f *companyFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if f.matcher == nil {
		return c, Step{}, fmt.Errorf("company matcher is required")
	}

	kept := make([]*Candidate, 0, initial)
	for _, item := range c.Items {
		found := f.matcher.MatchProfile(item.Profile)
		if len(found) == 0 {
			continue
		}
		matched := *item
		matched.Matches = found
		kept = append(kept, &matched)
	}

	return &Candidates{Items: kept}, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *companyFilter) Status() Status {
	details := map[string]string{}
	if f.matcher != nil {
		details["pattern"] = f.matcher.String()
		details["case_sensitive"] = strconv.FormatBool(f.matcher.CaseSensitive())
	}
	return Status{Name: f.Name(), Details: details}
}

type qualityFilter struct {
	minScore int
	rejected []*Candidate
}

// NewQuality creates a step that keeps candidates scoring at least minScore, best first.
func NewQuality(minScore int) Filter {
	return &qualityFilter{minScore: minScore}
}

func (f *qualityFilter) Name() string { return "quality" }

func (f *qualityFilter) Apply(_ context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	high, low := Partition(c.Items, f.minScore)
	f.rejected = low

	return &Candidates{Items: high}, Step{Initial: initial, Dropped: len(low), Left: len(high)}, nil
}

func (f *qualityFilter) Rejected() []*Candidate {
	return f.rejected
}

func (f *qualityFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"min_score": strconv.Itoa(f.minScore)}}
}
