package scout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

const generatePath = "/generate"

// ServiceConfig configures the AI service generator
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Service calls an AI report service over HTTP: POST /generate
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates a generator for the service at cfg.BaseURL
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ai service base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = jobs.DefaultCallTimeout
	}
	return &Service{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

var _ Generator = (*Service)(nil)

type generateRequest struct {
	PlayerName string         `json:"player_name"`
	Position   string         `json:"position"`
	Age        int            `json:"age"`
	Stats      map[string]any `json:"stats"`
}

type generateResponse struct {
	Report string `json:"report"`
}

func (s *Service) Generate(ctx context.Context, p Profile) (string, error) {
	stats := map[string]any{
		"country": p.Country,
		"status":  p.Status,
		"team":    p.Team,
		"league":  p.League,
	}
	if p.MarketValue != nil {
		stats["market_value"] = *p.MarketValue
	}

	body, err := json.Marshal(generateRequest{
		PlayerName: p.Name,
		Position:   "Football Player",
		Age:        p.Age,
		Stats:      stats,
	})
	if err != nil {
		return "", jobs.Permanent(fmt.Errorf("marshal generate request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", jobs.Permanent(fmt.Errorf("build generate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai service request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read ai service response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("ai service: player %d: %w", p.PlayerID, jobs.ErrNotFound)
	case isPermanentStatus(resp.StatusCode):
		return "", jobs.Permanent(fmt.Errorf("ai service returned %d: %s", resp.StatusCode, snippet(payload)))
	case resp.StatusCode >= 300:
		return "", fmt.Errorf("ai service returned %d: %s", resp.StatusCode, snippet(payload))
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode ai service response: %w", err)
	}
	report := strings.TrimSpace(out.Report)
	if report == "" {
		return "", fmt.Errorf("ai service: %w", ErrEmptyReport)
	}
	return report, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
