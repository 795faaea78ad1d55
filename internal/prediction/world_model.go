// Package prediction learns the user's weekly presence routine and scores
// how surprising each observation is against it.
package prediction

import (
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"enton/internal/logging"
	"enton/internal/persist"
)

// ActivityLevel is the coarse activity of a present user.
type ActivityLevel string

const (
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"
)

// Levels lists activity levels in a stable order.
var Levels = []ActivityLevel{ActivityLow, ActivityMedium, ActivityHigh}

// WorldState is a snapshot of what the sensors currently perceive.
type WorldState struct {
	Timestamp     time.Time
	UserPresent   bool
	ActivityLevel ActivityLevel // empty counts as low
	Location      string
}

// BucketKey returns the weekday-hour key of the state, e.g. "Mon-10".
func (s WorldState) BucketKey() string { return BucketKey(s.Timestamp) }

func (s WorldState) activity() ActivityLevel {
	switch s.ActivityLevel {
	case ActivityMedium, ActivityHigh:
		return s.ActivityLevel
	}
	return ActivityLow
}

// BucketKey maps a time to its weekday-hour bucket.
func BucketKey(t time.Time) string { return t.Format("Mon-15") }

// BucketStats are the observation counts of one weekday-hour bucket.
type BucketStats struct {
	Total          int `json:"total"`
	Present        int `json:"present"`
	ActivityLow    int `json:"activity_low"`
	ActivityMedium int `json:"activity_medium"`
	ActivityHigh   int `json:"activity_high"`
}

func (b *BucketStats) activityCount(l ActivityLevel) int {
	switch l {
	case ActivityMedium:
		return b.ActivityMedium
	case ActivityHigh:
		return b.ActivityHigh
	}
	return b.ActivityLow
}

// Prediction is the model's expectation for one bucket.
type Prediction struct {
	PPresent    float64
	Uncertainty float64 // 1.0 during cold start, shrinks with samples
	PActivity   map[ActivityLevel]float64
}

// DefaultMinSamples is the bucket size below which the model is cold.
const DefaultMinSamples = 5

// WorldModel is a frequency table of presence and activity per bucket.
type WorldModel struct {
	mu         sync.RWMutex
	stats      map[string]*BucketStats
	path       string
	minSamples int
}

// NewWorldModel creates an empty model persisted at path. minSamples <= 0
// uses DefaultMinSamples.
func NewWorldModel(path string, minSamples int) *WorldModel {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &WorldModel{
		stats:      make(map[string]*BucketStats),
		path:       path,
		minSamples: minSamples,
	}
}

// Predict returns the expectation for the bucket containing t.
func (m *WorldModel) Predict(t time.Time) Prediction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.stats[BucketKey(t)]
	if !ok || b.Total < m.minSamples {
		uniform := 1.0 / float64(len(Levels))
		return Prediction{
			PPresent:    0.5,
			Uncertainty: 1.0,
			PActivity: map[ActivityLevel]float64{
				ActivityLow: uniform, ActivityMedium: uniform, ActivityHigh: uniform,
			},
		}
	}

	total := float64(b.Total)
	p := Prediction{
		PPresent:    float64(b.Present) / total,
		Uncertainty: math.Min(1.0, 1.0/math.Log(total+2)),
		PActivity:   make(map[ActivityLevel]float64, len(Levels)),
	}
	for _, l := range Levels {
		p.PActivity[l] = float64(b.activityCount(l)) / total
	}
	return p
}

// Update adds one observation to the bucket of state.
func (m *WorldModel) Update(state WorldState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := state.BucketKey()
	b, ok := m.stats[key]
	if !ok {
		b = &BucketStats{}
		m.stats[key] = b
	}
	b.Total++
	if state.UserPresent {
		b.Present++
	}
	switch state.activity() {
	case ActivityMedium:
		b.ActivityMedium++
	case ActivityHigh:
		b.ActivityHigh++
	default:
		b.ActivityLow++
	}
}

// Bucket returns a copy of the stats for key.
func (m *WorldModel) Bucket(key string) (BucketStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.stats[key]
	if !ok {
		return BucketStats{}, false
	}
	return *b, true
}

// Keys returns the known bucket keys, sorted.
func (m *WorldModel) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.stats))
	for k := range m.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load replaces the model with the persisted table. A missing or corrupt
// file leaves an empty model; only the corrupt case is logged.
func (m *WorldModel) Load() {
	var data map[string]*BucketStats
	err := persist.ReadJSON(m.path, &data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[string]*BucketStats)

	if err != nil {
		if !os.IsNotExist(err) {
			logging.PredictionWarn("world model unreadable, starting empty: %v", err)
		}
		return
	}
	for k, v := range data {
		if v != nil {
			m.stats[k] = v
		}
	}
	logging.Prediction("world model loaded: %d buckets", len(m.stats))
}

// Save writes the table to disk.
func (m *WorldModel) Save() error {
	if m.path == "" {
		return nil
	}
	m.mu.RLock()
	snapshot := make(map[string]BucketStats, len(m.stats))
	for k, v := range m.stats {
		snapshot[k] = *v
	}
	m.mu.RUnlock()

	return persist.WriteJSON(m.path, snapshot)
}
