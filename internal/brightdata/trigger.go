package brightdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

const (
	apiTriggerPath = "/trigger"
	// companyParam is never sent to the vendor: company filtering is done locally by pattern.
	companyParam = "company"
)

var (
	ErrNoPeople      = errors.New("empty people list provided")
	ErrInvalidPerson = errors.New("each person must have first_name and last_name")
	ErrNoSnapshotID  = errors.New("no snapshot id received")
)

// Person is a single discovery input.
type Person struct {
	FirstName string `json:"first_name" mapstructure:"first-name"`
	LastName  string `json:"last_name" mapstructure:"last-name"`
	Company   string `json:"company,omitempty" mapstructure:"company"`
	Location  string `json:"location,omitempty" mapstructure:"location"`
}

func (p Person) String() string {
	s := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if p.Company != "" {
		s += fmt.Sprintf(" (Company: %s)", p.Company)
	}
	if p.Location != "" {
		s += fmt.Sprintf(" (Location: %s)", p.Location)
	}
	return s
}

// TriggerResult is the vendor answer to a discovery trigger.
type TriggerResult struct {
	SnapshotID string `json:"snapshot_id"`
}

// ValidatePeople checks the discovery input before anything is sent.
func ValidatePeople(people []Person) error {
	if len(people) == 0 {
		return ErrNoPeople
	}

	for i, p := range people {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return fmt.Errorf("person #%d: %w", i+1, ErrInvalidPerson)
		}
	}

	return nil
}

// Trigger starts a name based discovery job and returns its snapshot id.
// Extra params are added to the query string, except "company".
func (c *Client) Trigger(ctx context.Context, people []Person, params map[string]string) (*TriggerResult, error) {
	if err := ValidatePeople(people); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("dataset_id", c.DatasetID)
	q.Set("include_errors", "true")
	q.Set("type", "discover_new")
	q.Set("discover_by", "name")

	for key, value := range params {
		if strings.EqualFold(key, companyParam) {
			c.logger.Debug("dropping search parameter", zap.String("param", key), zap.String("reason", "company is matched locally"))
			continue
		}
		q.Set(key, value)
	}

	for i, p := range people {
		c.logger.Info("discovery target", zap.Int("n", i+1), zap.String("person", p.String()))
	}

	endpoint := fmt.Sprintf("%s%s", c.APIURL, apiTriggerPath)

	attempts := c.TriggerAttempts
	if attempts == 0 {
		attempts = 1
	}

	resp, err := retry.DoWithData(
		func() (*response, error) {
			resp, err := c.postJSON(ctx, endpoint, q, people)
			if err != nil {
				return nil, err
			}

			switch resp.StatusCode {
			case http.StatusOK, http.StatusCreated, http.StatusAccepted:
				return resp, nil
			default:
				return nil, &HTTPError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(resp.Body)}
			}
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.TriggerDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying trigger request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("trigger discovery: %w", err)
	}

	var result TriggerResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode trigger response: %w", err)
	}

	if strings.TrimSpace(result.SnapshotID) == "" {
		return nil, ErrNoSnapshotID
	}

	return &result, nil
}

// isRetryableError returns true for network errors, 429 and 5xx answers.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
