// Package poller waits for a discovery job and returns as soon as a good
// enough company match shows up in partial or final results.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/li-finder/internal/brightdata"
	"github.com/spigell/li-finder/internal/filtering"
)

const (
	DefaultMinQualityScore = 4
	DefaultMaxWait         = 600 * time.Second
	DefaultInterval        = 15 * time.Second
	DefaultFastInterval    = 5 * time.Second
	DefaultFastPhase       = 60 * time.Second
)

// State of a single wait.
type State int

const (
	FastPolling State = iota
	SlowPolling
	Done
	TimedOut
)

func (s State) String() string {
	switch s {
	case FastPolling:
		return "fast_polling"
	case SlowPolling:
		return "slow_polling"
	case Done:
		return "done"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Reason explains why a wait ended.
type Reason string

const (
	ReasonEarlyMatch  Reason = "early_match"
	ReasonJobComplete Reason = "job_complete"
	ReasonTimeout     Reason = "timeout"
	ReasonCancelled   Reason = "cancelled"
)

// Fetcher returns the current state of a discovery job.
type Fetcher interface {
	Snapshot(ctx context.Context, id string) (*brightdata.Snapshot, error)
}

type Config struct {
	// MinQualityScore is the score a matched profile needs to end the wait early.
	MinQualityScore int
	MaxWait         time.Duration
	// Interval is used once FastPhase has elapsed.
	Interval     time.Duration
	FastInterval time.Duration
	FastPhase    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinQualityScore: DefaultMinQualityScore,
		MaxWait:         DefaultMaxWait,
		Interval:        DefaultInterval,
		FastInterval:    DefaultFastInterval,
		FastPhase:       DefaultFastPhase,
	}
}

type Poller struct {
	fetcher Fetcher
	matcher *filtering.CompanyMatcher
	cfg     Config
	clock   Clock
	logger  *zap.Logger
}

type Option func(*Poller)

func WithClock(clock Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// New builds a poller. Non-positive intervals fall back to the defaults so a
// wait never spins against the vendor.
func New(fetcher Fetcher, matcher *filtering.CompanyMatcher, cfg Config, opts ...Option) *Poller {
	if cfg.FastInterval <= 0 {
		cfg.FastInterval = DefaultFastInterval
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	p := &Poller{
		fetcher: fetcher,
		matcher: matcher,
		cfg:     cfg,
		clock:   RealClock(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome is what a wait produced. Results may be empty; that is not an error.
type Outcome struct {
	State   State
	Reason  Reason
	Results []*filtering.Candidate
	Ticks   int
	Elapsed time.Duration
}

// Found reports whether any matching profile was returned.
func (o *Outcome) Found() bool {
	return o != nil && len(o.Results) > 0
}

// Wait polls the snapshot until a high quality match appears, the job
// completes or MaxWait elapses. Poll errors are logged and retried on the
// next tick. A cancelled context ends the wait with the best effort outcome
// and the context error.
func (p *Poller) Wait(ctx context.Context, snapshotID string) (*Outcome, error) {
	r := &run{
		Poller: p,
		id:     snapshotID,
		state:  FastPolling,
		start:  p.clock.Now(),
		logger: p.logger.With(zap.String("snapshot_id", snapshotID)),
	}

	r.logger.Info("waiting with early termination",
		zap.String("pattern", p.matcher.String()),
		zap.Int("min_quality_score", p.cfg.MinQualityScore),
		zap.Duration("fast_interval", p.cfg.FastInterval),
		zap.Duration("max_wait", p.cfg.MaxWait),
	)

	for {
		elapsed := r.elapsed()
		if elapsed >= p.cfg.MaxWait {
			r.logger.Info("timeout reached, returning best matches found so far", zap.Int("matches", len(r.best)))
			return r.finish(TimedOut, ReasonTimeout, r.final()), nil
		}

		if r.state == FastPolling && elapsed >= p.cfg.FastPhase {
			r.state = SlowPolling
			r.logger.Info("switching to normal polling",
				zap.Int("matches", len(r.best)),
				zap.Duration("interval", p.cfg.Interval),
			)
		}

		if out := r.tick(ctx); out != nil {
			return out, nil
		}

		if err := p.clock.Sleep(ctx, r.interval()); err != nil {
			return r.finish(TimedOut, ReasonCancelled, r.final()), err
		}
	}
}

type run struct {
	*Poller

	id     string
	state  State
	start  time.Time
	ticks  int
	best   []*filtering.Candidate
	logger *zap.Logger
}

func (r *run) elapsed() time.Duration {
	return r.clock.Now().Sub(r.start)
}

func (r *run) interval() time.Duration {
	if r.state == FastPolling {
		return r.cfg.FastInterval
	}
	return r.cfg.Interval
}

// tick performs one status check. It returns a non-nil outcome when the wait is over.
func (r *run) tick(ctx context.Context) *Outcome {
	r.ticks++
	logger := r.logger.With(
		zap.Int("tick", r.ticks),
		zap.Stringer("state", r.state),
		zap.Duration("elapsed", r.elapsed().Truncate(time.Second)),
	)

	snapshot, err := r.fetcher.Snapshot(ctx, r.id)
	if err != nil {
		logger.Warn("checking snapshot failed", zap.Error(err))
		return nil
	}

	if snapshot.State == brightdata.JobUnknown {
		logger.Warn("unexpected snapshot status, treating as no data", zap.Int("status", snapshot.StatusCode))
	}

	if len(snapshot.Profiles) == 0 {
		logger.Debug("no profiles yet", zap.Stringer("job", snapshot.State))
	} else {
		logger.Info("profiles available",
			zap.Int("count", len(snapshot.Profiles)),
			zap.Int("skipped", snapshot.Skipped),
			zap.Stringer("job", snapshot.State),
		)

		if matched := r.matcher.Match(snapshot.Profiles); len(matched) > 0 {
			high, low := filtering.Partition(matched, r.cfg.MinQualityScore)
			logger.Info("quality analysis", zap.Int("high_quality", len(high)), zap.Int("low_quality", len(low)))

			if len(high) > 0 {
				best := high[0]
				logger.Info("high quality match found, terminating early",
					zap.String("name", best.Profile.Name),
					zap.Int("quality_score", best.Score),
					zap.String("company", best.Profile.CompanyName()),
					zap.Duration("time_saved", (r.cfg.MaxWait-r.elapsed()).Truncate(time.Second)),
				)

				reason := ReasonEarlyMatch
				if snapshot.Complete() {
					reason = ReasonJobComplete
				}
				return r.finish(Done, reason, high)
			}

			r.best = matched
		}
	}

	if snapshot.Complete() {
		logger.Info("discovery job completed", zap.Int("matches", len(r.best)))
		return r.finish(Done, ReasonJobComplete, r.final())
	}

	return nil
}

// final re-scores accumulated matches: high quality ones if any, otherwise all of them by score.
func (r *run) final() []*filtering.Candidate {
	if len(r.best) == 0 {
		return nil
	}

	high, low := filtering.Partition(r.best, r.cfg.MinQualityScore)
	if len(high) > 0 {
		return high
	}

	filtering.SortByScore(low)
	return low
}

func (r *run) finish(state State, reason Reason, results []*filtering.Candidate) *Outcome {
	r.state = state
	return &Outcome{
		State:   state,
		Reason:  reason,
		Results: results,
		Ticks:   r.ticks,
		Elapsed: r.elapsed(),
	}
}
