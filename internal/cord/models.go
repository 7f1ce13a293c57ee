// Package cord reads the legacy discussion data out of the source Postgres
// store: organizations, users, threads, messages, and reactions, scoped to
// one platform application. Records come back as typed values; all
// reconciliation logic lives elsewhere.
package cord

import (
	"time"

	"github.com/threadbridge/pkg/models"
)

// Org is a source organization. ExternalID is the customer-side identifier
// carried into destination metadata; an org without one is unmigratable.
type Org struct {
	ID         string
	ExternalID string
	State      string
	CreatedAt  time.Time
}

// User is a source user. ExternalID is the identity the destination service
// knows the user by.
type User struct {
	ID         string
	ExternalID string
}

// Thread is a source conversation. Location is recovered from the context
// the thread was opened in and determines the destination room.
type Thread struct {
	ID             string
	OrgID          string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
	ResolverUserID string
	ContextHash    string
	Location       models.Location
}

// Resolved reports whether the source thread was marked resolved.
func (t Thread) Resolved() bool {
	return t.ResolvedAt != nil
}

// MessageNode is one node of the rich-text tree a message body is stored
// as. Leaf nodes carry Text; mention nodes carry the mentioned user's id;
// container nodes carry Children.
type MessageNode struct {
	Type     string        `json:"type,omitempty"`
	Text     string        `json:"text,omitempty"`
	User     string        `json:"user,omitempty"`
	Children []MessageNode `json:"children,omitempty"`
}

// Message is a source message within a thread.
type Message struct {
	ID        string
	ThreadID  string
	AuthorID  string
	Timestamp time.Time
	Content   []MessageNode
}

// Reaction is a source emoji reaction on a message.
type Reaction struct {
	MessageID       string
	AuthorID        string
	UnicodeReaction string
	Timestamp       time.Time
}
