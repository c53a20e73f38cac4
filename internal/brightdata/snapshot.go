package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

const (
	apiSnapshotPath = "/snapshot"
	// DefaultConcurrency limits parallel snapshot checks.
	DefaultConcurrency = 4
)

// JobState is inferred from the snapshot HTTP status and payload shape.
type JobState int

const (
	JobUnknown JobState = iota
	JobRunning
	JobComplete
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Snapshot is the result of one status check of a discovery job.
type Snapshot struct {
	ID         string
	StatusCode int
	State      JobState
	// Profiles holds complete or partial results. It is empty when nothing is available yet.
	Profiles []*Profile
	// Skipped counts payload items that were not usable profile objects.
	Skipped int
}

// Complete reports whether the vendor considers the job finished.
func (s *Snapshot) Complete() bool {
	return s != nil && s.State == JobComplete
}

// Snapshot fetches the current results of a discovery job.
// Statuses other than 200 and 202 yield an unknown state without data, not an error.
func (c *Client) Snapshot(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrNoSnapshotID
	}

	endpoint := fmt.Sprintf("%s%s/%s", c.APIURL, apiSnapshotPath, url.PathEscape(id))

	q := url.Values{}
	q.Set("format", "json")

	resp, err := c.get(ctx, endpoint, q)
	if err != nil {
		return nil, err
	}

	snapshot, err := parseSnapshot(resp.StatusCode, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	snapshot.ID = id

	return snapshot, nil
}

func parseSnapshot(status int, body []byte) (*Snapshot, error) {
	snapshot := &Snapshot{StatusCode: status}

	switch status {
	case http.StatusOK:
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode snapshot payload: %w", err)
		}

		items, complete := readyItems(payload)
		snapshot.State = JobRunning
		if complete {
			snapshot.State = JobComplete
		}
		snapshot.Profiles, snapshot.Skipped = DecodeProfiles(items)

	case http.StatusAccepted:
		snapshot.State = JobRunning

		// A running job may expose partial results. A body we cannot read just means no data yet.
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return snapshot, nil
		}
		for _, key := range []string{"partial_results", "current_results"} {
			if v, ok := payload[key]; ok {
				snapshot.Profiles, snapshot.Skipped = DecodeProfiles(asList(v))
				break
			}
		}
	}

	return snapshot, nil
}

// readyItems extracts the profile list from a 200 payload, which is either a
// bare list, a wrapper object or a single profile object.
func readyItems(payload any) ([]any, bool) {
	switch v := payload.(type) {
	case []any:
		return v, true
	case map[string]any:
		if data, ok := v["data"]; ok {
			return asList(data), true
		}
		if results, ok := v["results"]; ok {
			return asList(results), true
		}
		if partial, ok := v["partial_data"]; ok {
			return asList(partial), false
		}
		return []any{v}, true
	default:
		return nil, true
	}
}

func asList(v any) []any {
	switch typed := v.(type) {
	case []any:
		return typed
	case map[string]any:
		return []any{typed}
	default:
		return nil
	}
}

// ParseProfiles reads profiles from a saved snapshot or results file. Any
// payload shape accepted from a finished snapshot is accepted here.
func ParseProfiles(data []byte) ([]*Profile, int, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, 0, fmt.Errorf("decode profiles: %w", err)
	}

	items, _ := readyItems(payload)
	profiles, skipped := DecodeProfiles(items)

	return profiles, skipped, nil
}

// Snapshots checks several jobs concurrently, at most limit at a time.
// Results keep the order of ids. The first failed check cancels the rest.
func (c *Client) Snapshots(ctx context.Context, ids []string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]*Snapshot, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, id := range ids {
		g.Go(func() error {
			snapshot, err := c.Snapshot(ctx, id)
			if err != nil {
				return err
			}
			results[i] = snapshot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
