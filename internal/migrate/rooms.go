package migrate

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/threadbridge/internal/batch"
	"github.com/threadbridge/internal/cord"
	"github.com/threadbridge/internal/liveblocks"
	"github.com/threadbridge/internal/roomkey"
	"github.com/threadbridge/pkg/models"
)

// roomGroup is one distinct location and the source threads that live
// there. Org is the owning organization, resolved from the group's threads.
type roomGroup struct {
	Key      string
	Location models.Location
	Threads  []cord.Thread
	Org      *cord.Org
}

// reconciledRoom is a destination room confirmed to exist, with its group.
type reconciledRoom struct {
	Room  liveblocks.Room
	Group roomGroup
}

// groupThreadsByRoom groups source threads by derived room key, preserving
// first-encounter order. Threads without a recoverable location cannot be
// routed to a room and are dropped here.
func (m *Migrator) groupThreadsByRoom() []roomGroup {
	byKey := make(map[string]int)
	var groups []roomGroup

	for _, t := range m.snap.Threads {
		if len(t.Location) == 0 {
			log.Warn().Str("thread_id", t.ID).Msg("thread has no location, cannot derive a room")
			continue
		}
		key := roomkey.Derive(t.Location)
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, roomGroup{Key: key, Location: t.Location})
		}
		groups[idx].Threads = append(groups[idx].Threads, t)
	}
	return groups
}

// resolveGroupOrg picks the organization that owns a room: the first
// thread, in source order, whose org has an external identifier. Threads
// disagreeing on the organization are logged but do not block the group.
func (m *Migrator) resolveGroupOrg(g *roomGroup) bool {
	for _, t := range g.Threads {
		org := m.snap.OrgByID(t.OrgID)
		if org == nil || org.ExternalID == "" {
			continue
		}
		if g.Org == nil {
			g.Org = org
		} else if g.Org.ID != org.ID {
			log.Warn().
				Str("room_key", g.Key).
				Str("org_id", g.Org.ID).
				Str("other_org_id", org.ID).
				Msg("threads in one room disagree on organization, keeping the first")
		}
	}
	return g.Org != nil
}

// roomParams builds the create/update parameters for a group's room: no
// default access, write access for the owning org's group and the internal
// support group, and the flattened location as metadata.
func (m *Migrator) roomParams(g roomGroup) liveblocks.RoomParams {
	groups := map[string][]string{
		"org:" + g.Org.ExternalID: {liveblocks.AccessWrite},
	}
	if m.opts.InternalGroupID != "" {
		groups[m.opts.InternalGroupID] = []string{liveblocks.AccessWrite}
	}

	metadata := make(map[string]string, len(g.Location))
	for k, v := range g.Location {
		metadata[k] = v
	}

	return liveblocks.RoomParams{
		ID:              g.Key,
		DefaultAccesses: []string{},
		GroupsAccesses:  groups,
		Metadata:        metadata,
	}
}

// reconcileRooms creates or updates the destination room for every group.
// Rooms already present are updated in place; a create losing a race to a
// concurrent run falls back to update, so the result is identical either
// way. Individual failures are logged and excluded, never fatal.
func (m *Migrator) reconcileRooms(ctx context.Context, existing []liveblocks.Room) ([]reconciledRoom, models.Stats) {
	var stats models.Stats

	groups := m.groupThreadsByRoom()
	stats.RoomsTotal = len(groups)

	existingByID := make(map[string]bool, len(existing))
	for _, r := range existing {
		existingByID[r.ID] = true
	}

	eligible := make([]roomGroup, 0, len(groups))
	for _, g := range groups {
		if !m.resolveGroupOrg(&g) {
			log.Warn().
				Str("room_key", g.Key).
				Int("threads", len(g.Threads)).
				Msg("no organization with an external id resolvable for room, skipping")
			stats.RoomsSkipped++
			continue
		}
		eligible = append(eligible, g)
	}

	type outcome struct {
		rec     reconciledRoom
		updated bool
	}

	results := batch.Run(ctx, eligible, m.opts.RoomBatch, func(ctx context.Context, g roomGroup) (outcome, error) {
		params := m.roomParams(g)

		if existingByID[g.Key] {
			room, err := m.dest.UpdateRoom(ctx, g.Key, params)
			if err != nil {
				log.Error().Err(err).Str("room_key", g.Key).Msg("room update failed")
				return outcome{}, err
			}
			return outcome{rec: reconciledRoom{Room: *room, Group: g}, updated: true}, nil
		}

		room, err := m.dest.CreateRoom(ctx, params)
		if liveblocks.IsConflict(err) {
			// Another run created it between listing and now.
			room, err = m.dest.UpdateRoom(ctx, g.Key, params)
			if err == nil {
				return outcome{rec: reconciledRoom{Room: *room, Group: g}, updated: true}, nil
			}
		}
		if err != nil {
			log.Error().Err(err).Str("room_key", g.Key).Msg("room create failed")
			return outcome{}, err
		}
		return outcome{rec: reconciledRoom{Room: *room, Group: g}}, nil
	})

	var reconciled []reconciledRoom
	for _, r := range results {
		if r == nil {
			stats.RoomsFailed++
			continue
		}
		if r.updated {
			stats.RoomsUpdated++
		} else {
			stats.RoomsCreated++
		}
		reconciled = append(reconciled, r.rec)
	}

	log.Info().
		Int("total", stats.RoomsTotal).
		Int("created", stats.RoomsCreated).
		Int("updated", stats.RoomsUpdated).
		Int("skipped", stats.RoomsSkipped).
		Int("failed", stats.RoomsFailed).
		Msg("room reconciliation complete")

	return reconciled, stats
}
