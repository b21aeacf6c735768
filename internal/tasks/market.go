package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/market"
	"github.com/cuongbtq/scout-jobs/internal/players"
)

// MarketRefresh recomputes and stores one player's market value
type MarketRefresh struct {
	logger  *slog.Logger
	players players.Store
	pricer  market.Pricer
}

// NewMarketRefresh creates the market_refresh unit of work
func NewMarketRefresh(logger *slog.Logger, store players.Store, pricer market.Pricer) *MarketRefresh {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketRefresh{logger: logger, players: store, pricer: pricer}
}

var _ jobs.Unit = (*MarketRefresh)(nil)

// Run prices the player from its current value. A player without a value starts at 0.
func (m *MarketRefresh) Run(ctx context.Context, item jobs.WorkItem) (string, error) {
	player, err := m.players.Get(ctx, item.PlayerID)
	if err != nil {
		return "", fmt.Errorf("load player %d: %w", item.PlayerID, err)
	}

	current := player.MarketValue.Int64
	next, err := m.pricer.Price(ctx, player.ID, current)
	if err != nil {
		return "", fmt.Errorf("price player %d: %w", player.ID, err)
	}

	if _, err := m.players.Update(ctx, player.ID, players.Update{MarketValue: &next}); err != nil {
		return "", fmt.Errorf("update market value of player %d: %w", player.ID, err)
	}

	m.logger.Debug("Market value refreshed",
		slog.Int64("player_id", player.ID),
		slog.Int64("old_value", current),
		slog.Int64("new_value", next),
	)

	return fmt.Sprintf("market_value %d -> %d", current, next), nil
}
