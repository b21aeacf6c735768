package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cuongbtq/scout-jobs/internal/batch"
	"github.com/cuongbtq/scout-jobs/internal/bootstrap"
	"github.com/cuongbtq/scout-jobs/internal/config"
	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/players"
	"github.com/cuongbtq/scout-jobs/internal/scout"
	"github.com/cuongbtq/scout-jobs/internal/store/redisstore"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

var (
	errNoSelector = errors.New("either --all or --player-ids is required")
	errNoJobID    = errors.New("a job id is required")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	defaultConfigPath := os.Getenv("REFRESH_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/refresh/config.yaml"
	}

	return &cli.Command{
		Name:  "refresh",
		Usage: "Refresh player market values and wait for the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to configuration file",
				Value: defaultConfigPath,
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Refresh every player",
			},
			&cli.StringFlag{
				Name:  "player-ids",
				Usage: "Comma separated player ids, e.g. 1,2,3",
			},
		},
		Action: refreshAction,
		Commands: []*cli.Command{
			{
				Name:      "wait",
				Usage:     "Poll a job record until it finishes",
				ArgsUsage: "<job-id>",
				Action:    waitAction,
			},
		},
	}
}

func refreshAction(ctx context.Context, cmd *cli.Command) error {
	playerIDs, err := selectPlayers(cmd.Bool("all"), cmd.String("player-ids"))
	if err != nil {
		return err
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateRefreshConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	dbClient, err := bootstrap.PostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	redisClient, err := bootstrap.Redis(&cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	playerStore := players.NewPostgres(dbClient.GetDB())

	runner := batch.NewRunner(&batch.Config{
		Logger: appLogger.Component("refresh"),
		Executor: bootstrap.Executor(cfg, bootstrap.ExecutorDeps{
			Logger:    appLogger.Component("executor"),
			Markers:   redisstore.NewMarkers(redisClient.GetClient()),
			Players:   playerStore,
			Generator: scout.Mock{},
		}),
		Targets:     playerStore,
		Concurrency: cfg.Worker.Concurrency,
	})

	report, err := runner.RefreshMarketValues(ctx, playerIDs)
	if report != nil {
		appLogger.Info("Market value refresh finished",
			slog.String("job_id", report.JobID),
			slog.String("status", string(report.Status)),
			slog.Int64("total", report.Summary.Total),
			slog.Int64("successful", report.Summary.Successful),
			slog.Int64("failed", report.Summary.Failed),
			slog.Int64("skipped", report.Summary.Skipped),
			slog.Int64("not_found", report.Summary.NotFound),
			slog.Duration("duration", report.Duration),
		)
	}
	return err
}

func waitAction(ctx context.Context, cmd *cli.Command) error {
	jobID := strings.TrimSpace(cmd.Args().First())
	if jobID == "" {
		return errNoJobID
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateRefreshConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	redisClient, err := bootstrap.Redis(&cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	svc := jobs.NewService(&jobs.ServiceConfig{
		Logger:  appLogger.Component("jobs"),
		Records: redisstore.NewRecords(redisClient.GetClient()),
	})

	job, err := svc.Wait(ctx, jobID, cfg.Jobs.PollInterval, cfg.Jobs.MaxPolls)
	if job != nil {
		summary := job.Summary()
		appLogger.Info("Job status",
			slog.String("job_id", job.ID),
			slog.String("kind", string(job.Kind)),
			slog.String("status", string(job.Status)),
			slog.Int64("total", summary.Total),
			slog.Int64("processed", job.Processed),
			slog.String("error", job.Error),
		)
	}
	return err
}

// selectPlayers returns nil for --all and the parsed ids otherwise
func selectPlayers(all bool, raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case all && raw != "":
		return nil, errors.New("--all and --player-ids are mutually exclusive")
	case all:
		return nil, nil
	case raw == "":
		return nil, errNoSelector
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid player id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errNoSelector
	}
	return ids, nil
}
