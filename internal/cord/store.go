package cord

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/threadbridge/pkg/models"
)

// Open creates a connection to the legacy store and verifies it.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open source db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping source db: %w", err)
	}
	return db, nil
}

// Store reads source records for one platform application.
type Store struct {
	db *sql.DB
}

// NewStore creates a new store instance.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadSnapshot fetches every record the migration needs in one pass. The
// snapshot is the only view of source data the reconcilers ever see.
func (s *Store) LoadSnapshot(ctx context.Context, appID string) (*Snapshot, error) {
	orgs, err := s.loadOrgs(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load orgs: %w", err)
	}
	users, err := s.loadUsers(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	threads, err := s.loadThreads(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load threads: %w", err)
	}
	messages, err := s.loadMessages(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	reactions, err := s.loadReactions(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}

	log.Info().
		Str("app_id", appID).
		Int("orgs", len(orgs)).
		Int("users", len(users)).
		Int("threads", len(threads)).
		Int("messages", len(messages)).
		Int("reactions", len(reactions)).
		Msg("loaded source snapshot")

	return NewSnapshot(orgs, users, threads, messages, reactions), nil
}

func (s *Store) loadOrgs(ctx context.Context, appID string) ([]Org, error) {
	query := `
	SELECT id, COALESCE(external_id, ''), state, created_timestamp
	FROM orgs
	WHERE platform_application_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []Org
	for rows.Next() {
		var o Org
		if err := rows.Scan(&o.ID, &o.ExternalID, &o.State, &o.CreatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (s *Store) loadUsers(ctx context.Context, appID string) ([]User, error) {
	query := `
	SELECT id, COALESCE(external_id, '')
	FROM users
	WHERE platform_application_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.ExternalID); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// loadThreads joins each thread to the page context it was opened in; the
// context's JSON data becomes the thread's location. Threads whose context
// row is gone get an empty location and are skipped later as unroutable.
func (s *Store) loadThreads(ctx context.Context, appID string) ([]Thread, error) {
	query := `
	SELECT t.id, t.org_id, t.created_timestamp, t.resolved_timestamp,
	       COALESCE(t.resolver_user_id::text, ''), COALESCE(t.page_context_hash::text, ''),
	       COALESCE(p.context_data::text, '')
	FROM threads t
	LEFT JOIN pages p
	  ON p.context_hash = t.page_context_hash AND p.org_id = t.org_id
	WHERE t.platform_application_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var (
			t       Thread
			rawData string
		)
		if err := rows.Scan(&t.ID, &t.OrgID, &t.CreatedAt, &t.ResolvedAt,
			&t.ResolverUserID, &t.ContextHash, &rawData); err != nil {
			return nil, err
		}
		t.Location = locationFromJSON(t.ID, rawData)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (s *Store) loadMessages(ctx context.Context, appID string) ([]Message, error) {
	query := `
	SELECT m.id, m.thread_id, m.source_id, m.timestamp, COALESCE(m.content::text, '[]')
	FROM messages m
	JOIN threads t ON t.id = m.thread_id
	WHERE t.platform_application_id = $1
	  AND m.deleted_timestamp IS NULL
	ORDER BY m.timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m          Message
			rawContent string
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.AuthorID, &m.Timestamp, &rawContent); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rawContent), &m.Content); err != nil {
			// Unparseable content is a data-quality issue, not a run killer.
			log.Warn().Str("message_id", m.ID).Err(err).Msg("dropping unparseable message content")
			m.Content = nil
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) loadReactions(ctx context.Context, appID string) ([]Reaction, error) {
	query := `
	SELECT r.message_id, r.user_id, r.unicode_reaction, r.timestamp
	FROM message_reactions r
	JOIN messages m ON m.id = r.message_id
	JOIN threads t ON t.id = m.thread_id
	WHERE t.platform_application_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.MessageID, &r.AuthorID, &r.UnicodeReaction, &r.Timestamp); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// locationFromJSON decodes a page context's JSON data into a location,
// stringifying non-string values the same way across runs so derived room
// keys stay stable.
func locationFromJSON(threadID, raw string) models.Location {
	if raw == "" {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Warn().Str("thread_id", threadID).Err(err).Msg("dropping unparseable page context")
		return nil
	}

	loc := make(models.Location, len(data))
	for k, v := range data {
		loc[k] = stringifyContextValue(v)
	}
	return loc
}

func stringifyContextValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
