package contextengine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"enton/internal/logging"
	"enton/internal/persist"
)

// CheckpointEntry is the persisted form of an Entry.
type CheckpointEntry struct {
	Key      string  `json:"key"`
	Content  string  `json:"content"`
	Category string  `json:"category"`
	Priority float64 `json:"priority"`
	TTL      float64 `json:"ttl"` // seconds
}

// Checkpoint is a saved set of entries.
type Checkpoint struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Entries   []CheckpointEntry      `json:"entries"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// CheckpointInfo describes a checkpoint without its entries.
type CheckpointInfo struct {
	ID        string
	Name      string
	Entries   int
	CreatedAt time.Time
	Metadata  map[string]interface{}
}

// Checkpoint saves the current entries under name and returns its id. With a
// checkpoint dir configured it is also written to <dir>/<id>.json.
func (e *Engine) Checkpoint(name string, metadata map[string]interface{}) (string, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	e.mu.Lock()
	cp := Checkpoint{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Name:      name,
		Metadata:  metadata,
		CreatedAt: e.now(),
	}
	keys := make([]string, 0, len(e.entries))
	for k := range e.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := e.entries[k]
		cp.Entries = append(cp.Entries, CheckpointEntry{
			Key:      v.Key,
			Content:  v.Content,
			Category: v.Category,
			Priority: v.Priority,
			TTL:      v.TTL.Seconds(),
		})
	}
	e.checkpoints[cp.ID] = cp
	dir := e.checkpointDir
	e.mu.Unlock()

	if dir == "" {
		return cp.ID, nil
	}
	path := filepath.Join(dir, cp.ID+".json")
	if err := persist.WriteJSON(path, cp); err != nil {
		return cp.ID, fmt.Errorf("failed to persist checkpoint %s: %w", name, err)
	}
	logging.Context("checkpoint saved: %s -> %s", name, path)
	return cp.ID, nil
}

// Restore replaces all entries with those of the checkpoint. Checkpoints not
// in memory are looked up in the checkpoint dir. Returns false when unknown.
func (e *Engine) Restore(id string) bool {
	e.mu.RLock()
	cp, ok := e.checkpoints[id]
	dir := e.checkpointDir
	e.mu.RUnlock()

	if !ok && dir != "" {
		if err := persist.ReadJSON(filepath.Join(dir, id+".json"), &cp); err == nil {
			ok = true
		} else if !os.IsNotExist(err) {
			logging.ContextWarn("failed to read checkpoint %s: %v", id, err)
		}
	}
	if !ok {
		return false
	}

	e.mu.Lock()
	e.checkpoints[cp.ID] = cp
	e.entries = make(map[string]Entry, len(cp.Entries))
	now := e.now()
	for _, ce := range cp.Entries {
		cat := ce.Category
		if cat == "" {
			cat = CategorySystem
		}
		e.entries[ce.Key] = Entry{
			Key:        ce.Key,
			Content:    ce.Content,
			Category:   cat,
			Priority:   ce.Priority,
			Timestamp:  now,
			TTL:        time.Duration(ce.TTL * float64(time.Second)),
			TokenCount: e.counter.CountString(ce.Content),
		}
	}
	e.mu.Unlock()

	logging.Context("checkpoint restored: %s (%d entries)", cp.Name, len(cp.Entries))
	return true
}

// Checkpoints lists known checkpoints, newest first, including any found in
// the checkpoint dir. Unreadable files are skipped.
func (e *Engine) Checkpoints() []CheckpointInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.checkpointDir != "" {
		paths, _ := filepath.Glob(filepath.Join(e.checkpointDir, "*.json"))
		for _, p := range paths {
			id := strings.TrimSuffix(filepath.Base(p), ".json")
			if _, ok := e.checkpoints[id]; ok {
				continue
			}
			var cp Checkpoint
			if err := persist.ReadJSON(p, &cp); err != nil {
				logging.ContextDebug("skipping checkpoint %s: %v", p, err)
				continue
			}
			cp.ID = id
			e.checkpoints[id] = cp
		}
	}

	out := make([]CheckpointInfo, 0, len(e.checkpoints))
	for _, cp := range e.checkpoints {
		out = append(out, CheckpointInfo{
			ID:        cp.ID,
			Name:      cp.Name,
			Entries:   len(cp.Entries),
			CreatedAt: cp.CreatedAt,
			Metadata:  cp.Metadata,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
