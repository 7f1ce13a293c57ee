package models

import (
	"time"
)

// Location describes where a conversation occurs in the source product
// (page identifiers, document ids and so on). It is the grouping key for
// destination rooms: two threads with equal locations land in the same room.
type Location map[string]string

// Equal reports whether two locations have identical key/value sets.
func (l Location) Equal(other Location) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns a copy of the location that can be mutated safely.
func (l Location) Clone() Location {
	if l == nil {
		return nil
	}
	out := make(Location, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Stats aggregates the outcome of one migration run. Each reconciliation
// step returns its own Stats value; the orchestrator folds them together,
// so no counter is ever written from two goroutines.
type Stats struct {
	RoomsTotal   int `json:"rooms_total"`
	RoomsCreated int `json:"rooms_created"`
	RoomsUpdated int `json:"rooms_updated"`
	RoomsSkipped int `json:"rooms_skipped"`
	RoomsFailed  int `json:"rooms_failed"`

	ThreadsTotal   int `json:"threads_total"`
	ThreadsCreated int `json:"threads_created"`
	ThreadsReused  int `json:"threads_reused"`
	ThreadsSkipped int `json:"threads_skipped"`
	ThreadsFailed  int `json:"threads_failed"`

	CommentsTotal   int `json:"comments_total"`
	CommentsCreated int `json:"comments_created"`
	CommentsSkipped int `json:"comments_skipped"`
	CommentsFailed  int `json:"comments_failed"`

	ReactionsCreated int `json:"reactions_created"`
	ReactionsDropped int `json:"reactions_dropped"`
}

// Add returns the element-wise sum of two Stats values.
func (s Stats) Add(o Stats) Stats {
	s.RoomsTotal += o.RoomsTotal
	s.RoomsCreated += o.RoomsCreated
	s.RoomsUpdated += o.RoomsUpdated
	s.RoomsSkipped += o.RoomsSkipped
	s.RoomsFailed += o.RoomsFailed
	s.ThreadsTotal += o.ThreadsTotal
	s.ThreadsCreated += o.ThreadsCreated
	s.ThreadsReused += o.ThreadsReused
	s.ThreadsSkipped += o.ThreadsSkipped
	s.ThreadsFailed += o.ThreadsFailed
	s.CommentsTotal += o.CommentsTotal
	s.CommentsCreated += o.CommentsCreated
	s.CommentsSkipped += o.CommentsSkipped
	s.CommentsFailed += o.CommentsFailed
	s.ReactionsCreated += o.ReactionsCreated
	s.ReactionsDropped += o.ReactionsDropped
	return s
}

// Report is the final result of a migration run, returned from the HTTP
// trigger endpoint and the CLI. A failed run still carries whatever stats
// were accumulated before the failure.
type Report struct {
	RunID      string    `json:"run_id"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Stats      Stats     `json:"stats"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
