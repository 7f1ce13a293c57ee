package migrate

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/threadbridge/internal/cord"
	"github.com/threadbridge/internal/liveblocks"
)

// commentParams builds the destination comment for one source message. It
// returns false when the author has no destination identity; a comment
// cannot be created without an author, so the caller abandons the message.
func (m *Migrator) commentParams(msg cord.Message) (liveblocks.CommentParams, bool) {
	author := m.snap.UserExternalID(msg.AuthorID)
	if author == "" {
		return liveblocks.CommentParams{}, false
	}

	ts := msg.Timestamp
	return liveblocks.CommentParams{
		UserID:    author,
		CreatedAt: &ts,
		Body:      m.convertBody(msg),
	}, true
}

// convertBody flattens the source rich-text node tree into the
// destination's paragraph/inline structure. Each top-level node becomes a
// paragraph; nested structure (lists, quotes, formatting marks) collapses
// into its inline text and mentions.
func (m *Migrator) convertBody(msg cord.Message) liveblocks.CommentBody {
	blocks := make([]liveblocks.BodyBlock, 0, len(msg.Content))
	for _, node := range msg.Content {
		var inlines []liveblocks.BodyInline
		m.collectInlines(msg.ID, node, &inlines)
		if len(inlines) == 0 {
			continue
		}
		blocks = append(blocks, liveblocks.Paragraph(inlines...))
	}

	if len(blocks) == 0 {
		blocks = []liveblocks.BodyBlock{liveblocks.Paragraph(liveblocks.Text(""))}
	}
	return liveblocks.CommentBody{Version: 1, Content: blocks}
}

// collectInlines walks one node and appends its text and mention inlines.
func (m *Migrator) collectInlines(messageID string, node cord.MessageNode, out *[]liveblocks.BodyInline) {
	if node.User != "" {
		target := m.snap.UserExternalID(node.User)
		if target == "" {
			// Keep the raw source id rather than dropping the mention;
			// the reader still sees who was addressed.
			target = node.User
			log.Warn().
				Str("message_id", messageID).
				Str("source_user_id", node.User).
				Msg("mention target has no destination identity, keeping source id")
		}
		*out = append(*out, liveblocks.Mention(target))
		return
	}

	if node.Text != "" {
		*out = append(*out, liveblocks.Text(node.Text))
	}
	for _, child := range node.Children {
		m.collectInlines(messageID, child, out)
	}
}

// plainText renders a message's content as plain text for audit records.
func plainText(msg cord.Message) string {
	var out []byte
	var walk func(cord.MessageNode)
	walk = func(n cord.MessageNode) {
		if n.Text != "" {
			out = append(out, n.Text...)
		}
		if n.User != "" {
			out = append(out, '@')
			out = append(out, n.User...)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, n := range msg.Content {
		walk(n)
		out = append(out, '\n')
	}
	if len(out) == 0 {
		raw, _ := json.Marshal(msg.Content)
		return string(raw)
	}
	return string(out[:len(out)-1])
}
