package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/threadbridge/internal/batch"
	"github.com/threadbridge/internal/cord"
	"github.com/threadbridge/internal/ledger"
	"github.com/threadbridge/internal/liveblocks"
)

// commentOutcome is the result of reconciling one source message: the
// ledger pair (existing or new) plus reaction accounting.
type commentOutcome struct {
	pair             ledger.Pair
	created          bool
	reactionsCreated int
	reactionsDropped int
}

// createComment is the create-or-skip procedure for a single message,
// applied identically to new and pre-existing threads:
//
//  1. A ledger hit is confirmed against the destination; a live comment
//     means skip, a stale entry falls through to creation.
//  2. The comment body is built from the source content; a message whose
//     author has no destination identity is abandoned and audited.
//  3. On create, reactions are attached best-effort; their failure never
//     un-creates the comment.
func (m *Migrator) createComment(ctx context.Context, rec reconciledRoom, st cord.Thread, destThread liveblocks.Thread, led []ledger.Pair, msg cord.Message) (commentOutcome, error) {
	if pair, ok := ledger.Find(led, msg.ID); ok {
		_, err := m.dest.GetComment(ctx, rec.Room.ID, destThread.ID, pair.LiveblocksCommentID)
		switch {
		case err == nil:
			return commentOutcome{pair: pair}, nil
		case liveblocks.IsNotFound(err):
			// Stale ledger entry: the comment is gone, recreate it.
			log.Warn().
				Str("message_id", msg.ID).
				Str("comment_id", pair.LiveblocksCommentID).
				Msg("ledger entry points at a missing comment, recreating")
		default:
			log.Error().Err(err).Str("message_id", msg.ID).Msg("confirming ledger entry failed")
			return commentOutcome{}, err
		}
	}

	params, ok := m.commentParams(msg)
	if !ok {
		m.recordMessageFailure(rec, st, msg, "author has no destination identity")
		return commentOutcome{}, fmt.Errorf("message %s: author %s unresolvable", msg.ID, msg.AuthorID)
	}

	comment, err := m.dest.CreateComment(ctx, rec.Room.ID, destThread.ID, params)
	if err != nil {
		m.recordMessageFailure(rec, st, msg, fmt.Sprintf("comment create failed: %v", err))
		return commentOutcome{}, err
	}

	created, dropped := m.attachReactions(ctx, rec.Room.ID, destThread.ID, comment.ID, msg.ID)

	return commentOutcome{
		pair:             ledger.Pair{CordMessageID: msg.ID, LiveblocksCommentID: comment.ID},
		created:          true,
		reactionsCreated: created,
		reactionsDropped: dropped,
	}, nil
}

// attachReactions attaches a message's source reactions to its destination
// comment. Reactions without a resolvable author are dropped; having no
// reactions at all is the common case and stays silent.
func (m *Migrator) attachReactions(ctx context.Context, roomID, threadID, commentID, messageID string) (created, dropped int) {
	reactions := m.snap.MessageReactions(messageID)
	if len(reactions) == 0 {
		return 0, 0
	}

	valid := make([]liveblocks.ReactionParams, 0, len(reactions))
	for _, r := range reactions {
		author := m.snap.UserExternalID(r.AuthorID)
		if author == "" {
			dropped++
			continue
		}
		ts := r.Timestamp
		valid = append(valid, liveblocks.ReactionParams{
			Emoji:     r.UnicodeReaction,
			UserID:    author,
			CreatedAt: &ts,
		})
	}

	if len(valid) == 0 {
		log.Warn().
			Str("message_id", messageID).
			Int("dropped", dropped).
			Msg("message had reactions but none with a resolvable author")
		return 0, dropped
	}

	results := batch.Run(ctx, valid, m.opts.CommentBatch, func(ctx context.Context, params liveblocks.ReactionParams) (struct{}, error) {
		return struct{}{}, m.dest.AddReaction(ctx, roomID, threadID, commentID, params)
	})

	failed := 0
	for _, r := range results {
		if r == nil {
			failed++
			continue
		}
		created++
	}
	if failed > 0 {
		log.Warn().
			Str("comment_id", commentID).
			Int("failed", failed).
			Msg("some reactions failed to attach")
	}
	return created, dropped
}
