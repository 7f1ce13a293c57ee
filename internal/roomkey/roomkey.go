// Package roomkey derives deterministic destination room identifiers from
// source locations. The same location always yields the same key, across
// runs and processes, which is what allows idempotent room lookup without a
// persisted mapping table.
package roomkey

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/threadbridge/pkg/models"
)

// Prefix marks rooms created by the migration so they are recognizable in
// the destination's room listing.
const Prefix = "mig-"

// namespace salts the UUIDv5 derivation. Changing it would orphan every
// previously migrated room, so it is fixed forever.
var namespace = uuid.MustParse("9f2d7a36-41c8-4c70-8d12-b5f6a0e3d9c4")

// Canonical returns the stable string form of a location: a JSON object
// with keys in sorted order. Reordering a location's keys never changes
// the canonical form.
func Canonical(loc models.Location) string {
	keys := make([]string, 0, len(loc))
	for k := range loc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(loc[k])
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// Derive maps a location to its room key: Prefix plus the UUIDv5 of the
// canonical serialization under the migration namespace.
func Derive(loc models.Location) string {
	return Prefix + uuid.NewSHA1(namespace, []byte(Canonical(loc))).String()
}
