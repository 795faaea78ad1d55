package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"enton/internal/logging"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store is closed")

// Episode kinds used by the runtime.
const (
	KindConversation = "conversation"
	KindFact         = "fact"
	KindStudy        = "study"
	KindObservation  = "observation"
)

// Episode is one remembered item.
type Episode struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Remember stores an episode and returns its id.
func (s *Store) Remember(ctx context.Context, kind, content string, tags []string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, fmt.Errorf("content is required")
	}
	if kind == "" {
		kind = KindFact
	}
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO episodes (kind, content, tags, created_at) VALUES (?, ?, ?, ?)",
		kind, content, string(tagsJSON), s.now().UnixNano())
	if err != nil {
		logging.StoreError("Failed to store episode: %v", err)
		return 0, err
	}
	id, _ := res.LastInsertId()
	logging.StoreDebug("Remembered episode %d (kind=%s, %d chars)", id, kind, len(content))
	return id, nil
}

// Recall returns episodes whose content or tags contain any keyword of
// query, newest first.
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 10
	}
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ? OR LOWER(tags) LIKE ?")
		args = append(args, "%"+kw+"%", "%"+kw+"%")
	}
	args = append(args, limit)

	q := fmt.Sprintf(
		"SELECT id, kind, content, tags, created_at FROM episodes WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?",
		strings.Join(conditions, " OR "),
	)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logging.StoreError("Recall %q failed: %v", query, err)
		return nil, err
	}
	defer rows.Close()

	episodes, err := scanEpisodes(rows)
	if err == nil {
		logging.StoreDebug("Recall %q: %d episodes", query, len(episodes))
	}
	return episodes, err
}

// Recent returns the latest episodes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, content, tags, created_at FROM episodes ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// CountEpisodes returns the number of stored episodes.
func (s *Store) CountEpisodes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM episodes").Scan(&n)
	return n, err
}

func scanEpisodes(rows *sql.Rows) ([]Episode, error) {
	var out []Episode
	for rows.Next() {
		var (
			e        Episode
			tagsJSON string
			created  int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Content, &tagsJSON, &created); err != nil {
			return nil, err
		}
		if tagsJSON != "" {
			_ = json.Unmarshal([]byte(tagsJSON), &e.Tags)
		}
		if len(e.Tags) == 0 {
			e.Tags = nil
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
