package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/threadbridge/internal/audit"
	"github.com/threadbridge/internal/batch"
	"github.com/threadbridge/internal/cord"
	"github.com/threadbridge/internal/ledger"
	"github.com/threadbridge/internal/liveblocks"
	"github.com/threadbridge/pkg/models"
)

// reconcileThreads brings one room's destination threads in line with its
// source threads: source threads already claimed by a destination thread
// get their comment gaps filled, unclaimed ones are created with their
// opening comment and then back-filled. Per-thread failures are logged and
// counted, never fatal to the room.
func (m *Migrator) reconcileThreads(ctx context.Context, rec reconciledRoom) models.Stats {
	var stats models.Stats

	destThreads, err := m.dest.GetRoomThreads(ctx, rec.Room.ID)
	if err != nil {
		log.Error().Err(err).Str("room_id", rec.Room.ID).Msg("listing room threads failed, skipping room")
		stats.ThreadsFailed += len(rec.Group.Threads)
		return stats
	}

	claimed := make(map[string]liveblocks.Thread, len(destThreads))
	for _, dt := range destThreads {
		if srcID := threadSourceID(dt); srcID != "" {
			claimed[srcID] = dt
		}
	}

	var toCreate, toBackfill []cord.Thread
	for _, st := range rec.Group.Threads {
		if len(m.snap.ThreadMessages(st.ID)) == 0 {
			// Nothing to migrate; the thread never consumes an
			// idempotency slot.
			stats.ThreadsSkipped++
			continue
		}
		if _, ok := claimed[st.ID]; ok {
			toBackfill = append(toBackfill, st)
			continue
		}
		if st.Resolved() && !m.opts.MigrateResolvedThreads {
			stats.ThreadsSkipped++
			continue
		}
		toCreate = append(toCreate, st)
	}
	stats.ThreadsTotal = len(toCreate) + len(toBackfill)

	// Fixed create order: most recent source threads first. Arbitrary but
	// deterministic across runs.
	sort.SliceStable(toCreate, func(i, j int) bool {
		return toCreate[i].CreatedAt.After(toCreate[j].CreatedAt)
	})

	created := batch.Run(ctx, toCreate, m.opts.ThreadBatch, func(ctx context.Context, st cord.Thread) (models.Stats, error) {
		return m.migrateThread(ctx, rec, st)
	})
	for _, r := range created {
		if r == nil {
			stats.ThreadsFailed++
			continue
		}
		stats.ThreadsCreated++
		stats = stats.Add(*r)
	}

	backfilled := batch.Run(ctx, toBackfill, m.opts.ThreadBatch, func(ctx context.Context, st cord.Thread) (models.Stats, error) {
		return m.backfillThread(ctx, rec, claimed[st.ID], st)
	})
	for _, r := range backfilled {
		if r == nil {
			stats.ThreadsFailed++
			continue
		}
		stats.ThreadsReused++
		stats = stats.Add(*r)
	}

	return stats
}

// threadMetadata builds the metadata for a new destination thread: the
// idempotency tag, provenance fields, and the flattened location.
func (m *Migrator) threadMetadata(rec reconciledRoom, st cord.Thread) map[string]any {
	metadata := map[string]any{
		metaThreadID:  st.ID,
		metaOrgID:     st.OrgID,
		metaCreatedAt: st.CreatedAt.UnixMilli(),
	}
	for k, v := range st.Location {
		metadata[k] = v
	}
	return metadata
}

// migrateThread creates one destination thread from a source thread: the
// earliest message becomes the opening comment, the rest are created as
// comments, and the resulting pairs are persisted in the thread's ledger.
// A 409 on create means another run claimed the thread first; the existing
// thread is re-fetched and reused.
func (m *Migrator) migrateThread(ctx context.Context, rec reconciledRoom, st cord.Thread) (models.Stats, error) {
	msgs := m.snap.ThreadMessages(st.ID)
	opening := msgs[0]

	openingParams, ok := m.commentParams(opening)
	if !ok {
		// No author, no thread: creating a partial thread would claim the
		// idempotency slot with its opening comment missing.
		m.recordMessageFailure(rec, st, opening, "opening comment author has no destination identity")
		return models.Stats{}, fmt.Errorf("thread %s: opening comment not constructible", st.ID)
	}

	var (
		newPairs                           []ledger.Pair
		openingReactions, droppedReactions int
	)
	remaining := msgs[1:]

	destThread, err := m.dest.CreateThread(ctx, rec.Room.ID, liveblocks.ThreadParams{
		Comment:  openingParams,
		Metadata: m.threadMetadata(rec, st),
	})
	switch {
	case err == nil:
		if len(destThread.Comments) > 0 {
			openingComment := destThread.Comments[0]
			newPairs = append(newPairs, ledger.Pair{
				CordMessageID:       opening.ID,
				LiveblocksCommentID: openingComment.ID,
			})
			openingReactions, droppedReactions = m.attachReactions(ctx, rec.Room.ID, destThread.ID, openingComment.ID, opening.ID)
		}
		if st.Resolved() {
			m.resolveThread(ctx, rec, st, destThread.ID)
		}
	case liveblocks.IsConflict(err):
		existing, found := m.refetchClaimedThread(ctx, rec.Room.ID, st.ID)
		if !found {
			log.Error().Str("thread_id", st.ID).Str("room_id", rec.Room.ID).
				Msg("thread create conflicted but no claimed thread found")
			return models.Stats{}, err
		}
		destThread = existing
		// The opening comment already exists in the claimed thread; the
		// ledger check below fills whatever is missing.
		remaining = msgs
	default:
		m.recordMessageFailure(rec, st, opening, fmt.Sprintf("thread create failed: %v", err))
		return models.Stats{}, err
	}

	stats, err := m.fillThreadComments(ctx, rec, st, *destThread, remaining, newPairs)
	stats.ReactionsCreated += openingReactions
	stats.ReactionsDropped += droppedReactions
	return stats, err
}

// backfillThread re-runs comment reconciliation for a source thread whose
// destination thread already exists, creating only comments missing from
// the ledger.
func (m *Migrator) backfillThread(ctx context.Context, rec reconciledRoom, destThread liveblocks.Thread, st cord.Thread) (models.Stats, error) {
	return m.fillThreadComments(ctx, rec, st, destThread, m.snap.ThreadMessages(st.ID), nil)
}

// resolveThread marks a migrated thread resolved on behalf of the source
// resolver. Failure, including an unidentifiable resolver, is logged only.
func (m *Migrator) resolveThread(ctx context.Context, rec reconciledRoom, st cord.Thread, destThreadID string) {
	resolver := m.snap.UserExternalID(st.ResolverUserID)
	if resolver == "" {
		log.Warn().Str("thread_id", st.ID).Str("resolver_id", st.ResolverUserID).
			Msg("source thread resolved but resolver has no destination identity, leaving unresolved")
		return
	}
	if err := m.dest.MarkThreadResolved(ctx, rec.Room.ID, destThreadID, resolver); err != nil {
		log.Warn().Err(err).Str("thread_id", st.ID).Msg("marking thread resolved failed")
	}
}

// refetchClaimedThread re-lists a room's threads after a create conflict
// and returns the one claimed by the given source thread id.
func (m *Migrator) refetchClaimedThread(ctx context.Context, roomID, sourceThreadID string) (*liveblocks.Thread, bool) {
	threads, err := m.dest.GetRoomThreads(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("re-fetching room threads after conflict failed")
		return nil, false
	}
	for i := range threads {
		if threadSourceID(threads[i]) == sourceThreadID {
			return &threads[i], true
		}
	}
	return nil, false
}

// fillThreadComments runs the comment creation procedure for the given
// messages, merges the resulting pairs into the thread's ledger, and
// persists the ledger via a metadata update. seedPairs carries pairs
// already known (the opening comment of a freshly created thread).
func (m *Migrator) fillThreadComments(ctx context.Context, rec reconciledRoom, st cord.Thread, destThread liveblocks.Thread, msgs []cord.Message, seedPairs []ledger.Pair) (models.Stats, error) {
	var stats models.Stats
	stats.CommentsTotal = len(msgs) + len(seedPairs)
	stats.CommentsCreated = len(seedPairs)

	existing := ledger.Parse(destThread.Metadata[ledger.MetadataKey])

	results := batch.Run(ctx, msgs, m.opts.CommentBatch, func(ctx context.Context, msg cord.Message) (commentOutcome, error) {
		return m.createComment(ctx, rec, st, destThread, existing, msg)
	})

	newPairs := append([]ledger.Pair{}, seedPairs...)
	for _, r := range results {
		if r == nil {
			stats.CommentsFailed++
			continue
		}
		if r.created {
			stats.CommentsCreated++
		} else {
			stats.CommentsSkipped++
		}
		stats.ReactionsCreated += r.reactionsCreated
		stats.ReactionsDropped += r.reactionsDropped
		newPairs = append(newPairs, r.pair)
	}

	if len(newPairs) > 0 {
		merged := ledger.Merge(existing, newPairs)
		err := m.dest.UpdateThreadMetadata(ctx, rec.Room.ID, destThread.ID, map[string]any{
			ledger.MetadataKey: ledger.Serialize(merged),
		})
		if err != nil {
			// The comments exist; only the ledger write was lost. The next
			// run re-confirms them one by one instead of duplicating.
			log.Error().Err(err).Str("thread_id", st.ID).Msg("persisting comment ledger failed")
		}
	}

	if stats.CommentsCreated+stats.CommentsSkipped < stats.CommentsTotal {
		log.Warn().
			Str("thread_id", st.ID).
			Int("expected", stats.CommentsTotal).
			Int("migrated", stats.CommentsCreated+stats.CommentsSkipped).
			Msg("comment count mismatch after thread reconciliation")
	}

	return stats, nil
}

// recordMessageFailure emits one audit record for a message that could not
// be migrated.
func (m *Migrator) recordMessageFailure(rec reconciledRoom, st cord.Thread, msg cord.Message, reason string) {
	orgExternal := ""
	if rec.Group.Org != nil {
		orgExternal = rec.Group.Org.ExternalID
	}
	m.audit.RecordFailure(audit.FailedMessage{
		RoomID:        rec.Room.ID,
		OrgExternalID: orgExternal,
		ThreadID:      st.ID,
		MessageID:     msg.ID,
		AuthorID:      msg.AuthorID,
		Content:       plainText(msg),
		Location:      st.Location,
		Reason:        reason,
	})
}
