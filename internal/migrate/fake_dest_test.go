package migrate

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/threadbridge/internal/liveblocks"
)

// fakeDest is an in-memory destination with real conflict semantics:
// duplicate room ids 409, unknown lookups 404, opaque server-assigned
// thread and comment ids.
type fakeDest struct {
	mu sync.Mutex

	rooms     map[string]liveblocks.Room
	threads   map[string][]liveblocks.Thread            // room id → threads
	comments  map[string][]liveblocks.Comment           // thread id → comments
	reactions map[string][]liveblocks.ReactionParams    // comment id → reactions
	resolved  map[string]string                         // thread id → resolver user id
	nextID    int

	// staleThreadLists makes the next N GetRoomThreads calls return an
	// empty list, simulating a listing raced by a concurrent run.
	staleThreadLists int

	// listRoomsErr fails ListRooms outright.
	listRoomsErr error

	// failCommentsFor makes CreateComment fail for these author user ids.
	failCommentsFor map[string]bool

	roomCreates    int
	threadCreates  int
	commentCreates int
	reactionAdds   int
	commentGets    int
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		rooms:             make(map[string]liveblocks.Room),
		threads:           make(map[string][]liveblocks.Thread),
		comments:          make(map[string][]liveblocks.Comment),
		reactions:         make(map[string][]liveblocks.ReactionParams),
		resolved:          make(map[string]string),
		failCommentsFor: make(map[string]bool),
	}
}

func (f *fakeDest) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func apiErr(status int, msg string) error {
	return &liveblocks.APIError{StatusCode: status, Message: msg}
}

func (f *fakeDest) ListRooms(context.Context) ([]liveblocks.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listRoomsErr != nil {
		return nil, f.listRoomsErr
	}
	out := make([]liveblocks.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeDest) CreateRoom(_ context.Context, params liveblocks.RoomParams) (*liveblocks.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomCreates++
	if _, ok := f.rooms[params.ID]; ok {
		return nil, apiErr(http.StatusConflict, "room already exists")
	}
	room := liveblocks.Room{
		ID:              params.ID,
		DefaultAccesses: params.DefaultAccesses,
		GroupsAccesses:  params.GroupsAccesses,
		Metadata:        params.Metadata,
	}
	f.rooms[params.ID] = room
	return &room, nil
}

func (f *fakeDest) UpdateRoom(_ context.Context, id string, params liveblocks.RoomParams) (*liveblocks.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, apiErr(http.StatusNotFound, "room not found")
	}
	room.DefaultAccesses = params.DefaultAccesses
	room.GroupsAccesses = params.GroupsAccesses
	room.Metadata = params.Metadata
	f.rooms[id] = room
	return &room, nil
}

func (f *fakeDest) CreateThread(_ context.Context, roomID string, params liveblocks.ThreadParams) (*liveblocks.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCreates++
	if _, ok := f.rooms[roomID]; !ok {
		return nil, apiErr(http.StatusNotFound, "room not found")
	}
	// A second thread claiming the same source thread id is a conflict,
	// mirroring how a concurrent run's create wins the race.
	if srcID, _ := params.Metadata[metaThreadID].(string); srcID != "" {
		for _, t := range f.threads[roomID] {
			if tagged, _ := t.Metadata[metaThreadID].(string); tagged == srcID {
				return nil, apiErr(http.StatusConflict, "thread already exists")
			}
		}
	}
	if f.failCommentsFor[params.Comment.UserID] {
		return nil, apiErr(http.StatusBadGateway, "upstream error")
	}

	thread := liveblocks.Thread{
		ID:       f.newID("th"),
		RoomID:   roomID,
		Metadata: params.Metadata,
	}
	opening := liveblocks.Comment{
		ID:       f.newID("cm"),
		ThreadID: thread.ID,
		RoomID:   roomID,
		UserID:   params.Comment.UserID,
		Body:     params.Comment.Body,
	}
	if params.Comment.CreatedAt != nil {
		opening.CreatedAt = *params.Comment.CreatedAt
	}
	f.comments[thread.ID] = []liveblocks.Comment{opening}
	thread.Comments = []liveblocks.Comment{opening}
	f.threads[roomID] = append(f.threads[roomID], thread)
	return &thread, nil
}

func (f *fakeDest) GetRoomThreads(_ context.Context, roomID string) ([]liveblocks.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[roomID]; !ok {
		return nil, apiErr(http.StatusNotFound, "room not found")
	}
	if f.staleThreadLists > 0 {
		f.staleThreadLists--
		return nil, nil
	}
	threads := make([]liveblocks.Thread, len(f.threads[roomID]))
	for i, t := range f.threads[roomID] {
		t.Comments = append([]liveblocks.Comment{}, f.comments[t.ID]...)
		threads[i] = t
	}
	return threads, nil
}

func (f *fakeDest) UpdateThreadMetadata(_ context.Context, roomID, threadID string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.threads[roomID] {
		if t.ID == threadID {
			if t.Metadata == nil {
				t.Metadata = make(map[string]any)
			}
			for k, v := range metadata {
				t.Metadata[k] = v
			}
			f.threads[roomID][i] = t
			return nil
		}
	}
	return apiErr(http.StatusNotFound, "thread not found")
}

func (f *fakeDest) MarkThreadResolved(_ context.Context, roomID, threadID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.threads[roomID] {
		if t.ID == threadID {
			f.resolved[threadID] = userID
			return nil
		}
	}
	return apiErr(http.StatusNotFound, "thread not found")
}

func (f *fakeDest) CreateComment(_ context.Context, roomID, threadID string, params liveblocks.CommentParams) (*liveblocks.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentCreates++
	if _, ok := f.comments[threadID]; !ok {
		return nil, apiErr(http.StatusNotFound, "thread not found")
	}
	if f.failCommentsFor[params.UserID] {
		return nil, apiErr(http.StatusBadGateway, "upstream error")
	}
	comment := liveblocks.Comment{
		ID:       f.newID("cm"),
		ThreadID: threadID,
		RoomID:   roomID,
		UserID:   params.UserID,
		Body:     params.Body,
	}
	if params.CreatedAt != nil {
		comment.CreatedAt = *params.CreatedAt
	}
	f.comments[threadID] = append(f.comments[threadID], comment)
	return &comment, nil
}

func (f *fakeDest) GetComment(_ context.Context, _, threadID, commentID string) (*liveblocks.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentGets++
	for _, c := range f.comments[threadID] {
		if c.ID == commentID {
			return &c, nil
		}
	}
	return nil, apiErr(http.StatusNotFound, "comment not found")
}

func (f *fakeDest) AddReaction(_ context.Context, _, _, commentID string, params liveblocks.ReactionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactionAdds++
	f.reactions[commentID] = append(f.reactions[commentID], params)
	return nil
}

// totalComments counts every comment across all threads.
func (f *fakeDest) totalComments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, cs := range f.comments {
		n += len(cs)
	}
	return n
}

// totalThreads counts every thread across all rooms.
func (f *fakeDest) totalThreads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ts := range f.threads {
		n += len(ts)
	}
	return n
}
