// Package ledger manages the source-message-id → destination-comment-id
// mapping that makes comment migration idempotent. The ledger lives inside
// destination thread metadata as a serialized JSON array, so it survives
// process restarts without any state of our own.
package ledger

import (
	"encoding/json"
)

// MetadataKey is the thread-metadata field holding the serialized ledger.
const MetadataKey = "migratedPairs"

// Pair records that a source message has already been created as a
// destination comment. The JSON field names are the legacy wire format and
// must not change: existing threads already carry them.
type Pair struct {
	CordMessageID       string `json:"cordMessageId"`
	LiveblocksCommentID string `json:"liveblocksCommentId"`
}

// Parse decodes a ledger value taken from thread metadata. It never fails:
// an absent value, a non-string value, malformed JSON, or a JSON value of
// the wrong shape all yield an empty ledger, and decoded elements missing
// either id are dropped. Metadata written by older runs must never be able
// to wedge a re-run.
func Parse(raw any) []Pair {
	s, ok := raw.(string)
	if !ok || s == "" {
		return []Pair{}
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return []Pair{}
	}

	pairs := make([]Pair, 0, len(decoded))
	for _, el := range decoded {
		msgID, _ := el["cordMessageId"].(string)
		commentID, _ := el["liveblocksCommentId"].(string)
		if msgID == "" || commentID == "" {
			continue
		}
		pairs = append(pairs, Pair{CordMessageID: msgID, LiveblocksCommentID: commentID})
	}
	return pairs
}

// Serialize encodes a ledger for storage in thread metadata.
func Serialize(pairs []Pair) string {
	if pairs == nil {
		pairs = []Pair{}
	}
	b, _ := json.Marshal(pairs)
	return string(b)
}

// Merge combines an existing ledger with newly created pairs. Existing
// entries whose source message id reappears in incoming are replaced;
// everything else is preserved, existing entries first. The ledger is never
// overwritten wholesale, so pairs written by earlier runs survive.
func Merge(existing, incoming []Pair) []Pair {
	replaced := make(map[string]bool, len(incoming))
	for _, p := range incoming {
		replaced[p.CordMessageID] = true
	}

	merged := make([]Pair, 0, len(existing)+len(incoming))
	for _, p := range existing {
		if !replaced[p.CordMessageID] {
			merged = append(merged, p)
		}
	}
	return append(merged, incoming...)
}

// Find returns the pair for a source message id, if present.
func Find(pairs []Pair, cordMessageID string) (Pair, bool) {
	for _, p := range pairs {
		if p.CordMessageID == cordMessageID {
			return p, true
		}
	}
	return Pair{}, false
}
