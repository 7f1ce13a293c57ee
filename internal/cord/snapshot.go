package cord

import (
	"sort"
)

// Snapshot is a read-only view of all source data for one platform
// application, loaded once at the start of a run. The reconcilers only read
// from it, so it is safe to share across batch goroutines.
type Snapshot struct {
	Orgs      []Org
	Users     []User
	Threads   []Thread
	Messages  []Message
	Reactions []Reaction

	orgsByID           map[string]*Org
	usersByID          map[string]*User
	messagesByThread   map[string][]Message
	reactionsByMessage map[string][]Reaction
}

// NewSnapshot builds a snapshot and its lookup indexes. Messages are kept
// in timestamp-ascending order per thread so the earliest message is always
// the thread's opening comment.
func NewSnapshot(orgs []Org, users []User, threads []Thread, messages []Message, reactions []Reaction) *Snapshot {
	s := &Snapshot{
		Orgs:      orgs,
		Users:     users,
		Threads:   threads,
		Messages:  messages,
		Reactions: reactions,

		orgsByID:           make(map[string]*Org, len(orgs)),
		usersByID:          make(map[string]*User, len(users)),
		messagesByThread:   make(map[string][]Message),
		reactionsByMessage: make(map[string][]Reaction),
	}

	for i := range orgs {
		s.orgsByID[orgs[i].ID] = &orgs[i]
	}
	for i := range users {
		s.usersByID[users[i].ID] = &users[i]
	}
	for _, m := range messages {
		s.messagesByThread[m.ThreadID] = append(s.messagesByThread[m.ThreadID], m)
	}
	for threadID := range s.messagesByThread {
		msgs := s.messagesByThread[threadID]
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		})
	}
	for _, r := range reactions {
		s.reactionsByMessage[r.MessageID] = append(s.reactionsByMessage[r.MessageID], r)
	}

	return s
}

// OrgByID returns the organization with the given source id, or nil.
func (s *Snapshot) OrgByID(id string) *Org {
	return s.orgsByID[id]
}

// UserByID returns the user with the given source id, or nil.
func (s *Snapshot) UserByID(id string) *User {
	return s.usersByID[id]
}

// UserExternalID resolves a source user id to the destination-side
// identity, or "" when the user is unknown or has no external id.
func (s *Snapshot) UserExternalID(id string) string {
	if u := s.usersByID[id]; u != nil {
		return u.ExternalID
	}
	return ""
}

// ThreadMessages returns a thread's messages in timestamp-ascending order.
func (s *Snapshot) ThreadMessages(threadID string) []Message {
	return s.messagesByThread[threadID]
}

// MessageReactions returns all reactions recorded for a message.
func (s *Snapshot) MessageReactions(messageID string) []Reaction {
	return s.reactionsByMessage[messageID]
}
