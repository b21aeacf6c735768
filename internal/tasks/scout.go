package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/players"
	"github.com/cuongbtq/scout-jobs/internal/scout"
)

// ScoutReport generates and stores a scouting report for one player
type ScoutReport struct {
	logger    *slog.Logger
	players   players.Store
	generator scout.Generator
}

// NewScoutReport creates the scout_report unit of work
func NewScoutReport(logger *slog.Logger, store players.Store, generator scout.Generator) *ScoutReport {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoutReport{logger: logger, players: store, generator: generator}
}

var (
	_ jobs.Unit     = (*ScoutReport)(nil)
	_ jobs.Recaller = (*ScoutReport)(nil)
)

func (s *ScoutReport) Run(ctx context.Context, item jobs.WorkItem) (string, error) {
	player, err := s.players.Get(ctx, item.PlayerID)
	if err != nil {
		return "", fmt.Errorf("load player %d: %w", item.PlayerID, err)
	}

	report, err := s.generator.Generate(ctx, scout.ProfileOf(player))
	if err != nil {
		return "", fmt.Errorf("generate report for player %d: %w", player.ID, err)
	}

	if _, err := s.players.Update(ctx, player.ID, players.Update{ScoutingReport: &report}); err != nil {
		return "", fmt.Errorf("save report of player %d: %w", player.ID, err)
	}

	s.logger.Debug("Scouting report saved",
		slog.Int64("player_id", player.ID),
		slog.Int("length", len(report)),
	)

	return report, nil
}

// Recall returns the report saved by an earlier run
func (s *ScoutReport) Recall(ctx context.Context, item jobs.WorkItem) (string, error) {
	player, err := s.players.Get(ctx, item.PlayerID)
	if err != nil {
		return "", fmt.Errorf("load player %d: %w", item.PlayerID, err)
	}
	if !player.ScoutingReport.Valid {
		return "", fmt.Errorf("player %d has no saved report", item.PlayerID)
	}
	return player.ScoutingReport.String, nil
}
