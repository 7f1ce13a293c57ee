package ledger

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNeverFails(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{"absent", nil},
		{"non-string", 123},
		{"empty string", ""},
		{"not json", "not json"},
		{"wrong element type", "[1,2,3]"},
		{"not an array", `{"cordMessageId":"m1"}`},
		{"missing comment id", `[{"cordMessageId":"m1"}]`},
		{"missing message id", `[{"liveblocksCommentId":"c1"}]`},
		{"non-string ids", `[{"cordMessageId":1,"liveblocksCommentId":2}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, Parse(tc.raw))
		})
	}
}

func TestParseValidLedger(t *testing.T) {
	pairs := Parse(`[{"cordMessageId":"m1","liveblocksCommentId":"c1"}]`)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{CordMessageID: "m1", LiveblocksCommentID: "c1"}, pairs[0])
}

func TestParseDropsInvalidElementsOnly(t *testing.T) {
	raw := `[
		{"cordMessageId":"m1","liveblocksCommentId":"c1"},
		{"cordMessageId":"m2"},
		{"cordMessageId":"m3","liveblocksCommentId":"c3"}
	]`
	pairs := Parse(raw)
	want := []Pair{
		{CordMessageID: "m1", LiveblocksCommentID: "c1"},
		{CordMessageID: "m3", LiveblocksCommentID: "c3"},
	}
	assert.Empty(t, cmp.Diff(want, pairs))
}

func TestMergeNewPairsTakePrecedence(t *testing.T) {
	existing := []Pair{
		{CordMessageID: "m1", LiveblocksCommentID: "c1"},
		{CordMessageID: "m2", LiveblocksCommentID: "c2"},
	}
	incoming := []Pair{
		{CordMessageID: "m2", LiveblocksCommentID: "c2b"},
	}

	merged := Merge(existing, incoming)

	want := []Pair{
		{CordMessageID: "m1", LiveblocksCommentID: "c1"},
		{CordMessageID: "m2", LiveblocksCommentID: "c2b"},
	}
	assert.Empty(t, cmp.Diff(want, merged))
}

func TestMergeAppendsNewEntries(t *testing.T) {
	existing := []Pair{{CordMessageID: "m1", LiveblocksCommentID: "c1"}}
	incoming := []Pair{{CordMessageID: "m2", LiveblocksCommentID: "c2"}}

	merged := Merge(existing, incoming)

	want := []Pair{
		{CordMessageID: "m1", LiveblocksCommentID: "c1"},
		{CordMessageID: "m2", LiveblocksCommentID: "c2"},
	}
	assert.Empty(t, cmp.Diff(want, merged))
}

func TestMergeEmptySides(t *testing.T) {
	pairs := []Pair{{CordMessageID: "m1", LiveblocksCommentID: "c1"}}
	assert.Empty(t, cmp.Diff(pairs, Merge(nil, pairs)))
	assert.Empty(t, cmp.Diff(pairs, Merge(pairs, nil)))
}

func TestSerializeRoundTrip(t *testing.T) {
	pairs := []Pair{
		{CordMessageID: "m1", LiveblocksCommentID: "c1"},
		{CordMessageID: "m2", LiveblocksCommentID: "c2"},
	}
	assert.Empty(t, cmp.Diff(pairs, Parse(Serialize(pairs))))
}

func TestSerializeEmpty(t *testing.T) {
	assert.Equal(t, "[]", Serialize(nil))
}

func TestFind(t *testing.T) {
	pairs := []Pair{
		{CordMessageID: "m1", LiveblocksCommentID: "c1"},
		{CordMessageID: "m2", LiveblocksCommentID: "c2"},
	}

	p, ok := Find(pairs, "m2")
	require.True(t, ok)
	assert.Equal(t, "c2", p.LiveblocksCommentID)

	_, ok = Find(pairs, "m9")
	assert.False(t, ok)
}
