package store

import (
	"context"
	"time"

	"enton/internal/logging"
	"enton/internal/metacognition"
)

// StrategyStats aggregates traces of one strategy.
type StrategyStats struct {
	Count       int64   `json:"count"`
	SuccessRate float64 `json:"success_rate"`
	AvgLatency  float64 `json:"avg_latency_ms"`
}

// TraceStats summarizes everything in reasoning_traces.
type TraceStats struct {
	Total       int64                    `json:"total_traces"`
	SuccessRate float64                  `json:"success_rate"`
	AvgLatency  float64                  `json:"avg_latency_ms"`
	ByStrategy  map[string]StrategyStats `json:"by_strategy"`
	ByProvider  map[string]int64         `json:"by_provider"`
}

// StoreTrace persists a reasoning trace. It satisfies metacognition.TraceSink.
func (s *Store) StoreTrace(ctx context.Context, t metacognition.ReasoningTrace) error {
	timer := logging.StartTimer(logging.CategoryStore, "StoreTrace")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	ts := t.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reasoning_traces
		(id, query, strategy, provider, confidence, latency_ms, response_len,
		 success, error_message, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Query, t.Strategy, t.Provider, t.Confidence, t.LatencyMS, t.ResponseLen,
		t.Success, t.Error, t.RetryCount, ts.UnixNano(),
	)
	if err != nil {
		logging.StoreError("Failed to store reasoning trace %s: %v", t.ID, err)
		return err
	}
	logging.StoreDebug("Reasoning trace stored: %s (strategy=%s, success=%v)", t.ID, t.Strategy, t.Success)
	return nil
}

// RecentTraces returns the latest traces, newest first.
func (s *Store) RecentTraces(ctx context.Context, limit int) ([]metacognition.ReasoningTrace, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, strategy, provider, confidence, latency_ms, response_len,
		       success, error_message, retry_count, created_at
		FROM reasoning_traces
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []metacognition.ReasoningTrace
	for rows.Next() {
		var (
			t        metacognition.ReasoningTrace
			provider *string
			errMsg   *string
			created  int64
		)
		if err := rows.Scan(&t.ID, &t.Query, &t.Strategy, &provider, &t.Confidence, &t.LatencyMS,
			&t.ResponseLen, &t.Success, &errMsg, &t.RetryCount, &created); err != nil {
			return nil, err
		}
		if provider != nil {
			t.Provider = *provider
		}
		if errMsg != nil {
			t.Error = *errMsg
		}
		t.Timestamp = time.Unix(0, created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TraceStats computes aggregate statistics over all stored traces.
func (s *Store) TraceStats(ctx context.Context) (TraceStats, error) {
	timer := logging.StartTimer(logging.CategoryStore, "TraceStats")
	defer timer.Stop()

	stats := TraceStats{
		ByStrategy: make(map[string]StrategyStats),
		ByProvider: make(map[string]int64),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return stats, ErrClosed
	}

	var successes int64
	var avg *float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0), AVG(latency_ms)
		FROM reasoning_traces`).Scan(&stats.Total, &successes, &avg)
	if err != nil {
		return stats, err
	}
	if stats.Total == 0 {
		return stats, nil
	}
	stats.SuccessRate = float64(successes) / float64(stats.Total)
	if avg != nil {
		stats.AvgLatency = *avg
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, COUNT(*),
		       CAST(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) AS REAL) / COUNT(*),
		       AVG(latency_ms)
		FROM reasoning_traces
		GROUP BY strategy`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var name string
		var st StrategyStats
		if rows.Scan(&name, &st.Count, &st.SuccessRate, &st.AvgLatency) == nil {
			stats.ByStrategy[name] = st
		}
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT COALESCE(provider, ''), COUNT(*) FROM reasoning_traces
		WHERE success = 1 GROUP BY provider`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var n int64
		if rows.Scan(&name, &n) == nil && name != "" {
			stats.ByProvider[name] = n
		}
	}
	return stats, rows.Err()
}

// CleanupOldTraces deletes traces older than retention and returns the
// number removed.
func (s *Store) CleanupOldTraces(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	cutoff := s.now().Add(-retention).UnixNano()
	res, err := s.db.ExecContext(ctx, "DELETE FROM reasoning_traces WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("Cleaned up %d reasoning traces older than %v", n, retention)
	}
	return n, nil
}

var _ metacognition.TraceSink = (*Store)(nil)
