package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/threadbridge/pkg/models"
)

// Run executes one full migration: list what already exists, reconcile
// rooms, then every room's threads and comments, and fold the per-step
// stats into a single report. All remote failures are absorbed at the
// smallest enclosing unit; only programming errors and a failed initial
// room listing surface as a job-level failure. Nothing is rolled back —
// the run is designed to be repeated, not undone.
func (m *Migrator) Run(ctx context.Context) (report models.Report) {
	report.RunID = m.audit.RunID()
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	report.StartedAt = time.Now()

	defer func() {
		report.FinishedAt = time.Now()
		if r := recover(); r != nil {
			report.Success = false
			report.Error = fmt.Sprintf("unexpected error: %v", r)
			log.Error().Str("run_id", report.RunID).Interface("panic", r).Msg("migration aborted")
		}
		m.audit.Printf("run finished: success=%v stats=%+v", report.Success, report.Stats)
	}()

	log.Info().
		Str("run_id", report.RunID).
		Int("source_threads", len(m.snap.Threads)).
		Int("source_messages", len(m.snap.Messages)).
		Msg("migration run starting")
	m.audit.Printf("run %s: %d source threads, %d source messages",
		report.RunID, len(m.snap.Threads), len(m.snap.Messages))

	existingRooms, err := m.dest.ListRooms(ctx)
	if err != nil {
		report.Error = fmt.Sprintf("listing destination rooms: %v", err)
		log.Error().Err(err).Msg("cannot list destination rooms, aborting run")
		return report
	}
	m.audit.Printf("found %d existing destination rooms", len(existingRooms))

	rooms, stats := m.reconcileRooms(ctx, existingRooms)

	for _, rec := range rooms {
		threadStats := m.reconcileThreads(ctx, rec)
		stats = stats.Add(threadStats)
		m.audit.Printf("room %s: threads created=%d reused=%d failed=%d, comments created=%d skipped=%d failed=%d",
			rec.Room.ID,
			threadStats.ThreadsCreated, threadStats.ThreadsReused, threadStats.ThreadsFailed,
			threadStats.CommentsCreated, threadStats.CommentsSkipped, threadStats.CommentsFailed)
	}

	report.Stats = stats
	report.Success = true

	log.Info().
		Str("run_id", report.RunID).
		Int("rooms_created", stats.RoomsCreated).
		Int("rooms_updated", stats.RoomsUpdated).
		Int("threads_created", stats.ThreadsCreated).
		Int("comments_created", stats.CommentsCreated).
		Int("comments_skipped", stats.CommentsSkipped).
		Msg("migration run complete")

	return report
}
