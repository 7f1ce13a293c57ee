// Package migrate implements the reconciliation engine: it brings the
// destination comment-thread service up to date with the source snapshot
// without duplicating work already done by earlier runs. Correlation runs
// entirely through derived room keys and idempotency tags in destination
// metadata; there is no cross-reference table to keep consistent.
package migrate

import (
	"context"

	"github.com/threadbridge/internal/audit"
	"github.com/threadbridge/internal/batch"
	"github.com/threadbridge/internal/cord"
	"github.com/threadbridge/internal/liveblocks"
)

// Thread metadata keys. These are idempotency tags: a destination thread
// whose cordThreadId matches a source thread id is that thread's migrated
// counterpart, and must never be created a second time.
const (
	metaThreadID  = "cordThreadId"
	metaOrgID     = "cordOrgId"
	metaCreatedAt = "cordCreatedTimestamp"
)

// Destination is the slice of the destination API the reconcilers use.
// *liveblocks.Client satisfies it; tests substitute an in-memory fake.
type Destination interface {
	ListRooms(ctx context.Context) ([]liveblocks.Room, error)
	CreateRoom(ctx context.Context, params liveblocks.RoomParams) (*liveblocks.Room, error)
	UpdateRoom(ctx context.Context, id string, params liveblocks.RoomParams) (*liveblocks.Room, error)
	CreateThread(ctx context.Context, roomID string, params liveblocks.ThreadParams) (*liveblocks.Thread, error)
	GetRoomThreads(ctx context.Context, roomID string) ([]liveblocks.Thread, error)
	UpdateThreadMetadata(ctx context.Context, roomID, threadID string, metadata map[string]any) error
	MarkThreadResolved(ctx context.Context, roomID, threadID, userID string) error
	CreateComment(ctx context.Context, roomID, threadID string, params liveblocks.CommentParams) (*liveblocks.Comment, error)
	GetComment(ctx context.Context, roomID, threadID, commentID string) (*liveblocks.Comment, error)
	AddReaction(ctx context.Context, roomID, threadID, commentID string, params liveblocks.ReactionParams) error
}

// Options tunes one migration run. Batch widths compose multiplicatively
// across the nesting levels (rooms → threads → comments), so each level's
// width is kept small.
type Options struct {
	// InternalGroupID is the support group granted write access to every
	// migrated room, alongside the owning organization's group.
	InternalGroupID string

	// MigrateResolvedThreads controls whether already-resolved source
	// threads are migrated and then marked resolved (true) or excluded
	// from migration entirely (false).
	MigrateResolvedThreads bool

	RoomBatch    batch.Options
	ThreadBatch  batch.Options
	CommentBatch batch.Options
}

// DefaultOptions returns conservative batching defaults.
func DefaultOptions() Options {
	return Options{
		MigrateResolvedThreads: true,
		RoomBatch:              batch.Options{Width: 10, Delay: batch.DefaultDelay},
		ThreadBatch:            batch.Options{Width: 5, Delay: batch.DefaultDelay},
		CommentBatch:           batch.Options{Width: 5, Delay: batch.DefaultDelay},
	}
}

// Migrator reconciles one source snapshot against the destination.
type Migrator struct {
	dest  Destination
	snap  *cord.Snapshot
	audit *audit.Log
	opts  Options
}

// New creates a migrator. auditLog may be nil.
func New(dest Destination, snap *cord.Snapshot, auditLog *audit.Log, opts Options) *Migrator {
	if opts.RoomBatch.Width <= 0 {
		opts.RoomBatch = DefaultOptions().RoomBatch
	}
	if opts.ThreadBatch.Width <= 0 {
		opts.ThreadBatch = DefaultOptions().ThreadBatch
	}
	if opts.CommentBatch.Width <= 0 {
		opts.CommentBatch = DefaultOptions().CommentBatch
	}
	return &Migrator{
		dest:  dest,
		snap:  snap,
		audit: auditLog,
		opts:  opts,
	}
}

// threadSourceID extracts the idempotency tag from destination thread
// metadata, or "" when the thread was not created by the migration.
func threadSourceID(t liveblocks.Thread) string {
	id, _ := t.Metadata[metaThreadID].(string)
	return id
}
