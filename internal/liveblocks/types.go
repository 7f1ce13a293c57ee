package liveblocks

import (
	"time"
)

// AccessWrite is the permission granted to groups that may post in a room.
const AccessWrite = "room:write"

// Room is a destination room as returned by the API.
type Room struct {
	ID              string              `json:"id"`
	DefaultAccesses []string            `json:"defaultAccesses"`
	GroupsAccesses  map[string][]string `json:"groupsAccesses,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty"`
	CreatedAt       time.Time           `json:"createdAt,omitempty"`
}

// RoomParams describes a room to create or update. The id is caller-chosen,
// which is what lets the migration address rooms by derived key.
type RoomParams struct {
	ID              string              `json:"id"`
	DefaultAccesses []string            `json:"defaultAccesses"`
	GroupsAccesses  map[string][]string `json:"groupsAccesses,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty"`
}

// roomListPage is one page of the paginated room listing.
type roomListPage struct {
	NextCursor *string `json:"nextCursor"`
	NextPage   string  `json:"nextPage,omitempty"`
	Data       []Room  `json:"data"`
}

// CommentBody is the simplified paragraph/inline rich-text structure the
// destination accepts.
type CommentBody struct {
	Version int         `json:"version"`
	Content []BodyBlock `json:"content"`
}

// BodyBlock is a block-level element of a comment body.
type BodyBlock struct {
	Type     string       `json:"type"`
	Children []BodyInline `json:"children"`
}

// BodyInline is an inline element: plain text when Type is empty, or a
// mention of the user identified by ID.
type BodyInline struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Text returns a text inline node.
func Text(s string) BodyInline {
	return BodyInline{Text: s}
}

// Mention returns a mention inline node for a destination user id.
func Mention(userID string) BodyInline {
	return BodyInline{Type: "mention", ID: userID}
}

// Paragraph returns a paragraph block wrapping the given inline nodes.
func Paragraph(children ...BodyInline) BodyBlock {
	return BodyBlock{Type: "paragraph", Children: children}
}

// Comment is a destination comment.
type Comment struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"threadId"`
	RoomID    string      `json:"roomId"`
	UserID    string      `json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
	Body      CommentBody `json:"body"`
}

// CommentParams describes a comment to create. CreatedAt is optional; the
// migration sets it to the source message timestamp so ordering survives.
type CommentParams struct {
	UserID    string      `json:"userId"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
	Body      CommentBody `json:"body"`
}

// Thread is a destination thread with its metadata and comments.
type Thread struct {
	ID        string         `json:"id"`
	RoomID    string         `json:"roomId"`
	Resolved  bool           `json:"resolved,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Comments  []Comment      `json:"comments,omitempty"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
}

// ThreadParams describes a thread to create. The destination requires an
// opening comment at creation time.
type ThreadParams struct {
	Comment  CommentParams  `json:"comment"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// threadListPage is the response of the room thread listing.
type threadListPage struct {
	Data []Thread `json:"data"`
}

// ReactionParams describes an emoji reaction to add to a comment.
type ReactionParams struct {
	Emoji     string     `json:"emoji"`
	UserID    string     `json:"userId"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// resolveParams tags a thread-resolve action with the resolving user.
type resolveParams struct {
	UserID string `json:"userId"`
}
