package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/threadbridge/internal/audit"
	"github.com/threadbridge/internal/batch"
	"github.com/threadbridge/internal/config"
	"github.com/threadbridge/internal/cord"
	"github.com/threadbridge/internal/liveblocks"
	"github.com/threadbridge/internal/migrate"
	"github.com/threadbridge/pkg/models"
)

// MigrateCommand returns the CLI command for running one migration from
// the terminal.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run one full migration and print the report",
		Action: func(c *cli.Context) error {
			cfg, err := loadValidatedConfig(c)
			if err != nil {
				return err
			}

			report := runMigration(c.Context, cfg)
			printReport(report)

			if !report.Success {
				return fmt.Errorf("migration failed: %s", report.Error)
			}
			return nil
		},
	}
}

// loadValidatedConfig loads and validates configuration for any command
// that talks to the source database or the destination API.
func loadValidatedConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runMigration wires one full run from configuration: source snapshot,
// destination client, audit log, reconciler. Setup failures produce a
// failed report rather than a crash so the API trigger can return them.
func runMigration(ctx context.Context, cfg *config.Config) models.Report {
	started := time.Now()
	fail := func(err error) models.Report {
		log.Error().Err(err).Msg("migration setup failed")
		return models.Report{
			RunID:      uuid.NewString(),
			Error:      err.Error(),
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
	}

	db, err := cord.Open(cfg.Source.DatabaseURL)
	if err != nil {
		return fail(fmt.Errorf("connecting to source database: %w", err))
	}
	defer db.Close()

	snap, err := cord.NewStore(db).LoadSnapshot(ctx, cfg.Source.AppID)
	if err != nil {
		return fail(fmt.Errorf("loading source snapshot: %w", err))
	}

	client := liveblocks.NewClient(cfg.Liveblocks.BaseURL, cfg.Liveblocks.SecretKey)

	auditLog, err := audit.Start(uuid.NewString())
	if err != nil {
		log.Warn().Err(err).Msg("audit log unavailable, continuing without it")
		auditLog = nil
	}
	defer auditLog.Close()

	delay := time.Duration(cfg.Migration.BatchDelayMs) * time.Millisecond
	opts := migrate.Options{
		InternalGroupID:        cfg.Migration.InternalGroupID,
		MigrateResolvedThreads: cfg.Migration.MigrateResolvedThreads,
		RoomBatch:              batch.Options{Width: cfg.Migration.RoomWidth, Delay: delay},
		ThreadBatch:            batch.Options{Width: cfg.Migration.ThreadWidth, Delay: delay},
		CommentBatch:           batch.Options{Width: cfg.Migration.CommentWidth, Delay: delay},
	}

	return migrate.New(client, snap, auditLog, opts).Run(ctx)
}

func printReport(report models.Report) {
	fmt.Printf("Run %s: success=%v in %v\n",
		report.RunID, report.Success, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Error != "" {
		fmt.Printf("  error: %s\n", report.Error)
	}
	s := report.Stats
	fmt.Printf("  rooms:     %d total, %d created, %d updated, %d skipped, %d failed\n",
		s.RoomsTotal, s.RoomsCreated, s.RoomsUpdated, s.RoomsSkipped, s.RoomsFailed)
	fmt.Printf("  threads:   %d total, %d created, %d reused, %d skipped, %d failed\n",
		s.ThreadsTotal, s.ThreadsCreated, s.ThreadsReused, s.ThreadsSkipped, s.ThreadsFailed)
	fmt.Printf("  comments:  %d total, %d created, %d skipped, %d failed\n",
		s.CommentsTotal, s.CommentsCreated, s.CommentsSkipped, s.CommentsFailed)
	fmt.Printf("  reactions: %d created, %d dropped\n",
		s.ReactionsCreated, s.ReactionsDropped)
}
