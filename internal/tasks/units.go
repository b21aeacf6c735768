package tasks

import (
	"log/slog"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/analytics"
	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/market"
	"github.com/cuongbtq/scout-jobs/internal/players"
	"github.com/cuongbtq/scout-jobs/internal/scout"
)

// Deps are the collaborators of the units of work
type Deps struct {
	Logger    *slog.Logger
	Players   players.Store
	Pricer    market.Pricer
	Generator scout.Generator

	// Insights and InsightCache are optional. Without both, analytics_batch has no unit
	// and its items fail with jobs.ErrNoUnit.
	Insights     analytics.Fetcher
	InsightCache analytics.Cache
	InsightTTL   time.Duration
}

// Units maps every job kind to its unit of work
func Units(d Deps) map[jobs.Kind]jobs.Unit {
	units := map[jobs.Kind]jobs.Unit{
		jobs.KindMarketRefresh: NewMarketRefresh(d.Logger, d.Players, d.Pricer),
		jobs.KindScoutReport:   NewScoutReport(d.Logger, d.Players, d.Generator),
	}
	if d.Insights != nil && d.InsightCache != nil {
		units[jobs.KindAnalytics] = NewAnalyticsBatch(d.Logger, d.Insights, d.InsightCache, d.InsightTTL)
	}
	return units
}
