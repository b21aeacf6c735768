// Package analytics fetches player insights from the analytics service.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

const (
	insightsPath = "/insights/"
	cachePrefix  = "analytics:player:"

	// DefaultCacheTTL is how long cached insights stay readable
	DefaultCacheTTL = time.Hour
)

// ErrInvalidPayload is returned when the service answers 2xx with something that is not JSON
var ErrInvalidPayload = errors.New("analytics service returned invalid JSON")

// Fetcher returns the raw insights document of one player
type Fetcher interface {
	Insights(ctx context.Context, playerID int64) (string, error)
}

// Cache stores insights documents for readers outside the job system
type Cache interface {
	Put(ctx context.Context, playerID int64, payload string, ttl time.Duration) error
}

// CacheKey is the key under which a player's insights are cached
func CacheKey(playerID int64) string {
	return cachePrefix + strconv.FormatInt(playerID, 10)
}

// Config configures the analytics client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls GET /insights/{player_id} on the analytics service
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at cfg.BaseURL
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analytics service base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = jobs.DefaultCallTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

var _ Fetcher = (*Client)(nil)

func (c *Client) Insights(ctx context.Context, playerID int64) (string, error) {
	url := c.baseURL + insightsPath + strconv.FormatInt(playerID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", jobs.Permanent(fmt.Errorf("build insights request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read analytics response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("analytics service: player %d: %w", playerID, jobs.ErrNotFound)
	case permanentStatus(resp.StatusCode):
		return "", jobs.Permanent(fmt.Errorf("analytics service returned %d: %s", resp.StatusCode, snippet(payload)))
	case resp.StatusCode >= 300:
		return "", fmt.Errorf("analytics service returned %d: %s", resp.StatusCode, snippet(payload))
	}

	if !json.Valid(payload) {
		return "", fmt.Errorf("player %d: %w", playerID, ErrInvalidPayload)
	}
	return string(payload), nil
}

// 408 and 429 are worth another attempt
func permanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
