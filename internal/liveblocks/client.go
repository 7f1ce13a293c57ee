// Package liveblocks is a client for the destination comment-thread
// service's REST API: room CRUD with cursor pagination, threads with
// opening comments and metadata, comments, and reactions. All calls go
// through a shared rate limiter and retry transient failures with backoff.
package liveblocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/threadbridge/internal/retry"
)

// DefaultBaseURL is the hosted API endpoint.
const DefaultBaseURL = "https://api.liveblocks.io"

// Client is a destination API client. Safe for concurrent use.
type Client struct {
	baseURL string
	secret  string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

// NewClient creates a client authenticated with the account secret key.
func NewClient(baseURL, secret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &Client{
		baseURL: baseURL + "/v2",
		secret:  secret,
		client:  &http.Client{Timeout: 30 * time.Second},
		// 20 requests per second with small bursts; the throttled batch
		// executor above this is the primary pacing control.
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 10),
		retry:   retry.DefaultConfig(),
	}
}

// do issues one API call, decoding a JSON response into out when non-nil.
// Throttled and server-side failures are retried with backoff; other error
// statuses come back as *APIError immediately.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	return retry.Do(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.secret)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    readErrorMessage(resp.Body),
			}
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}, isRetryable)
}

// readErrorMessage extracts the API's error message, falling back to the
// raw body.
func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))

	var decoded struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if decoded.Message != "" {
			return decoded.Message
		}
		if decoded.Error != "" {
			return decoded.Error
		}
	}
	return string(raw)
}

// CreateRoom creates a room with the caller-chosen id. A 409 means a room
// with this id already exists.
func (c *Client) CreateRoom(ctx context.Context, params RoomParams) (*Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms", params, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateRoom updates an existing room's accesses and metadata.
func (c *Client) UpdateRoom(ctx context.Context, id string, params RoomParams) (*Room, error) {
	body := params
	body.ID = "" // id travels in the path on update
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(id), body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoom fetches a room by id.
func (c *Client) GetRoom(ctx context.Context, id string) (*Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(id), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom removes a room and everything in it. The migration never
// calls this on its normal path; it exists for explicit manual cleanup.
func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(id), nil, nil)
}

// ListRooms walks the paginated room listing to the end. Pages are
// strictly sequential: each cursor comes from the previous response.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var (
		rooms  []Room
		cursor string
	)
	for {
		path := "/rooms?limit=100"
		if cursor != "" {
			path += "&startingAfter=" + url.QueryEscape(cursor)
		}

		var page roomListPage
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		rooms = append(rooms, page.Data...)

		if page.NextCursor == nil || *page.NextCursor == "" {
			return rooms, nil
		}
		cursor = *page.NextCursor
	}
}

// CreateThread creates a thread with its opening comment and metadata.
func (c *Client) CreateThread(ctx context.Context, roomID string, params ThreadParams) (*Thread, error) {
	var thread Thread
	path := "/rooms/" + url.PathEscape(roomID) + "/threads"
	if err := c.do(ctx, http.MethodPost, path, params, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetRoomThreads lists all threads in a room, including their metadata.
func (c *Client) GetRoomThreads(ctx context.Context, roomID string) ([]Thread, error) {
	var page threadListPage
	path := "/rooms/" + url.PathEscape(roomID) + "/threads"
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// UpdateThreadMetadata merges the given fields into a thread's metadata.
func (c *Client) UpdateThreadMetadata(ctx context.Context, roomID, threadID string, metadata map[string]any) error {
	path := "/rooms/" + url.PathEscape(roomID) + "/threads/" + url.PathEscape(threadID) + "/metadata"
	return c.do(ctx, http.MethodPost, path, metadata, nil)
}

// MarkThreadResolved resolves a thread on behalf of the given user.
func (c *Client) MarkThreadResolved(ctx context.Context, roomID, threadID, userID string) error {
	path := "/rooms/" + url.PathEscape(roomID) + "/threads/" + url.PathEscape(threadID) + "/mark-as-resolved"
	return c.do(ctx, http.MethodPost, path, resolveParams{UserID: userID}, nil)
}

// CreateComment adds a comment to an existing thread.
func (c *Client) CreateComment(ctx context.Context, roomID, threadID string, params CommentParams) (*Comment, error) {
	var comment Comment
	path := "/rooms/" + url.PathEscape(roomID) + "/threads/" + url.PathEscape(threadID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, params, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComment fetches a comment by id, used to confirm ledger entries still
// point at live comments.
func (c *Client) GetComment(ctx context.Context, roomID, threadID, commentID string) (*Comment, error) {
	var comment Comment
	path := "/rooms/" + url.PathEscape(roomID) + "/threads/" + url.PathEscape(threadID) +
		"/comments/" + url.PathEscape(commentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// AddReaction attaches an emoji reaction to a comment.
func (c *Client) AddReaction(ctx context.Context, roomID, threadID, commentID string, params ReactionParams) error {
	path := "/rooms/" + url.PathEscape(roomID) + "/threads/" + url.PathEscape(threadID) +
		"/comments/" + url.PathEscape(commentID) + "/add-reaction"
	return c.do(ctx, http.MethodPost, path, params, nil)
}
