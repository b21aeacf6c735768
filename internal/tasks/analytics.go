package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/analytics"
	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

// AnalyticsBatch fetches one player's insights and caches them for readers of
// analytics:player:<id>
type AnalyticsBatch struct {
	logger   *slog.Logger
	insights analytics.Fetcher
	cache    analytics.Cache
	ttl      time.Duration
}

// NewAnalyticsBatch creates the analytics_batch unit of work
func NewAnalyticsBatch(logger *slog.Logger, insights analytics.Fetcher, cache analytics.Cache, ttl time.Duration) *AnalyticsBatch {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = analytics.DefaultCacheTTL
	}
	return &AnalyticsBatch{logger: logger, insights: insights, cache: cache, ttl: ttl}
}

var (
	_ jobs.Unit  = (*AnalyticsBatch)(nil)
	_ jobs.Gated = (*AnalyticsBatch)(nil)
)

// Gated is false: the cache outlives a run by only its TTL, so every delivery re-fetches
func (a *AnalyticsBatch) Gated() bool { return false }

func (a *AnalyticsBatch) Run(ctx context.Context, item jobs.WorkItem) (string, error) {
	payload, err := a.insights.Insights(ctx, item.PlayerID)
	if err != nil {
		return "", fmt.Errorf("fetch insights for player %d: %w", item.PlayerID, err)
	}

	if err := a.cache.Put(ctx, item.PlayerID, payload, a.ttl); err != nil {
		return "", fmt.Errorf("cache insights for player %d: %w", item.PlayerID, err)
	}

	a.logger.Debug("Player insights cached",
		slog.Int64("player_id", item.PlayerID),
		slog.Int("bytes", len(payload)),
	)

	return "insights cached under " + analytics.CacheKey(item.PlayerID), nil
}
