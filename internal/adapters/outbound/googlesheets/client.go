// Package googlesheets stores the sign-up sheet in a Google Sheets worksheet
// via the Sheets API v4 values endpoints. It provides:
//   - Service account authentication via golang.org/x/oauth2
//   - Automatic retry logic with exponential backoff for transient failures
//   - Rate limiting to stay within API quotas
package googlesheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/raneja-ux/potluck-app/internal/pkg/retry"
)

// sheetsScope is the OAuth scope required to read and write spreadsheets.
const sheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// ClientConfig holds configuration for the Sheets API client.
type ClientConfig struct {
	// SpreadsheetID identifies the spreadsheet document.
	SpreadsheetID string

	// CredentialsJSON is a service account key file used for authentication.
	// Not required when a custom HTTPClient is provided.
	CredentialsJSON []byte

	// BaseURL is the Sheets API base URL.
	// Defaults to https://sheets.googleapis.com/v4
	BaseURL string

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each retry.
	BackoffFactor float64

	// RateLimitPerMin is the rate limit in requests per minute.
	// Defaults to 50 to stay safely under the per-user 60/min quota.
	RateLimitPerMin int

	// Logger is the structured logger for the client.
	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client. When set it is used
	// as-is and CredentialsJSON is ignored.
	HTTPClient *http.Client
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:         "https://sheets.googleapis.com/v4",
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      10 * time.Second,
		BackoffFactor:   2.0,
		RateLimitPerMin: 50,
		Logger:          slog.Default(),
	}
}

// Client is a thin Sheets API v4 values client.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	limiter     *rate.Limiter
	retryConfig retry.Config
}

// NewClient creates a new Sheets API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.SpreadsheetID == "" {
		return nil, errors.New("SpreadsheetID is required")
	}
	if config.HTTPClient == nil && len(config.CredentialsJSON) == 0 {
		return nil, errors.New("CredentialsJSON is required")
	}

	defaults := ClientConfigDefaults()
	applyDefaults(&config, defaults)

	httpClient := config.HTTPClient
	if httpClient == nil {
		jwtConfig, err := google.JWTConfigFromJSON(config.CredentialsJSON, sheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account credentials: %w", err)
		}
		httpClient = jwtConfig.Client(context.Background())
		httpClient.Timeout = config.Timeout
	}

	// Calculate rate limiter: requests per second from requests per minute
	rps := float64(config.RateLimitPerMin) / 60.0
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     config.Logger.With("component", "sheets-client"),
		limiter:    limiter,
		retryConfig: retry.Config{
			MaxRetries:     config.MaxRetries,
			InitialBackoff: config.InitialBackoff,
			MaxBackoff:     config.MaxBackoff,
			BackoffFactor:  config.BackoffFactor,
			Jitter:         false, // Keep deterministic for API rate limiting
		},
	}, nil
}

func applyDefaults(config *ClientConfig, defaults ClientConfig) {
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = defaults.BackoffFactor
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
}

// getValues fetches cell values for the given A1 range.
func (c *Client) getValues(ctx context.Context, rangeA1 string) (*valueRange, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.config.BaseURL, c.config.SpreadsheetID, url.PathEscape(rangeA1))

	var result valueRange
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// updateValues writes rows starting at the anchor cell of the given A1 range.
func (c *Client) updateValues(ctx context.Context, rangeA1 string, values [][]any) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=RAW",
		c.config.BaseURL, c.config.SpreadsheetID, url.PathEscape(rangeA1))

	body := valueRange{
		Range:          rangeA1,
		MajorDimension: "ROWS",
		Values:         values,
	}
	return c.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// clearValues empties all cells in the given A1 range.
func (c *Client) clearValues(ctx context.Context, rangeA1 string) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:clear",
		c.config.BaseURL, c.config.SpreadsheetID, url.PathEscape(rangeA1))

	return c.doRequest(ctx, http.MethodPost, endpoint, clearRequest{}, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	isRetryable := func(err error) bool {
		var nonRetryable *nonRetryableError
		return !errors.As(err, &nonRetryable)
	}

	onRetry := func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"maxRetries", c.retryConfig.MaxRetries,
			"backoff", backoff,
			"error", err,
		)
	}

	return retry.DoVoid(ctx, c.retryConfig, isRetryable, onRetry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &nonRetryableError{err: fmt.Errorf("rate limiter: %w", err)}
		}
		return c.doSingleRequest(ctx, method, endpoint, body, result)
	})
}

func (c *Client) doSingleRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &nonRetryableError{err: fmt.Errorf("encoding request body: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return &nonRetryableError{err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (HTTP 429)")
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return &nonRetryableError{err: fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, apiErr.Error.Message)}
		}
		return &nonRetryableError{err: fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &nonRetryableError{err: fmt.Errorf("parsing response: %w", err)}
		}
	}

	return nil
}

// nonRetryableError wraps errors that should not be retried.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string {
	return e.err.Error()
}

func (e *nonRetryableError) Unwrap() error {
	return e.err
}
