// Package brightdata is a small client for the Bright Data datasets API used to
// discover LinkedIn profiles by name.
package brightdata

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL = "https://api.brightdata.com/datasets/v3"
	// DefaultDatasetID is the LinkedIn people dataset.
	DefaultDatasetID = "gd_l1viktl72bvl7bjuj0"
	userAgent        = "spigell/li-finder"

	defaultTriggerAttempts = 3
	defaultTriggerDelay    = 2 * time.Second
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	DatasetID  string

	// TriggerAttempts and TriggerDelay control the fixed-delay retry of the trigger call.
	TriggerAttempts uint
	TriggerDelay    time.Duration
}

func New(logger *zap.Logger, token, datasetID string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}

	return &Client{
		token:     token,
		APIURL:    apiURL,
		DatasetID: datasetID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:          logger,
		UserAgent:       userAgent,
		TriggerAttempts: defaultTriggerAttempts,
		TriggerDelay:    defaultTriggerDelay,
	}
}
