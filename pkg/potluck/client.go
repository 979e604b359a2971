// Package potluck provides a typed Go client for the sign-up sheet API.
package potluck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Error codes returned by the API.
const (
	ErrCodeValidation       = "validation"
	ErrCodeDuplicateDish    = "duplicate_dish"
	ErrCodeStoreUnavailable = "store_unavailable"
)

// APIError is a non-2xx response from the server. Code holds one of the
// ErrCode constants; Field is set for validation errors only.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("API error (HTTP %d): %s: %s", e.StatusCode, e.Field, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Entry is one row of the sheet as served by the API.
type Entry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Dish     string `json:"dish"`
	Note     string `json:"note"`
}

// Bucket is one display section of the menu.
type Bucket struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Menu is the bucketed sheet. Transient marks a snapshot served while the
// backing store was unreachable; clients should refetch.
type Menu struct {
	Buckets   []Bucket `json:"buckets"`
	Transient bool     `json:"transient"`
}

// Sheet is the raw sheet in stored row order.
type Sheet struct {
	Entries   []Entry `json:"entries"`
	Transient bool    `json:"transient"`
}

// SubmitRequest is the body of a submit call. PartnerName is optional; when
// set the server stores the contributor as "Name & PartnerName".
type SubmitRequest struct {
	Name        string `json:"name"`
	PartnerName string `json:"partnerName,omitempty"`
	Category    string `json:"category"`
	Dish        string `json:"dish"`
	Note        string `json:"note,omitempty"`
}

// ClientConfig holds configuration for the API client.
type ClientConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string

	// Timeout for each request. Defaults to 10 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client
}

// Client calls the sign-up sheet REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the server at config.BaseURL.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Menu returns the sheet grouped into display buckets.
func (c *Client) Menu(ctx context.Context) (Menu, error) {
	var out Menu
	err := c.get(ctx, "/api/menu", &out)
	return out, err
}

// Entries returns the raw sheet in stored row order.
func (c *Client) Entries(ctx context.Context) (Sheet, error) {
	var out Sheet
	err := c.get(ctx, "/api/entries", &out)
	return out, err
}

// Categories returns the fixed category set in display order.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	err := c.get(ctx, "/api/categories", &out)
	return out.Categories, err
}

// Submit adds one entry to the sheet and returns the server's confirmation
// message. Rejections come back as a *APIError whose Code distinguishes
// validation failures, duplicate dishes and an unavailable store.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/entries", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", decodeAPIError(resp)
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Message, nil
}

// Health reports whether the server can reach its table store.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
