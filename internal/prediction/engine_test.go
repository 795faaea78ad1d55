package prediction

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday10 is a Monday, 10:00 local time.
var monday10 = time.Date(2023, time.October, 2, 10, 0, 0, 0, time.Local)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(t *testing.T) (*Engine, string, *fakeClock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world_model.json")
	clock := &fakeClock{t: monday10}
	opts := DefaultOptions()
	opts.Now = clock.Now
	return NewEngine(NewWorldModel(path, 0), opts), path, clock
}

func TestBucketKey(t *testing.T) {
	assert.Equal(t, "Mon-10", BucketKey(monday10))
	assert.Equal(t, "Tue-07", BucketKey(time.Date(2023, time.October, 3, 7, 30, 0, 0, time.Local)))
}

func TestEngine_LearnsRoutineAndDetectsAnomaly(t *testing.T) {
	e, _, _ := newTestEngine(t)
	present := WorldState{Timestamp: monday10, UserPresent: true}

	start := e.Tick(present)
	assert.Less(t, start, 0.3, "cold start must not be surprising")

	for i := 0; i < 20; i++ {
		e.Tick(present)
	}

	pred := e.Model().Predict(monday10)
	assert.Greater(t, pred.PPresent, 0.8)
	assert.Less(t, pred.Uncertainty, 0.5)

	anomaly := e.Tick(WorldState{Timestamp: monday10, UserPresent: false})
	assert.Greater(t, anomaly, 0.5)
	assert.Greater(t, anomaly, start)
	assert.Equal(t, anomaly, e.Surprise())
}

func TestEngine_PredictsBeforeLearning(t *testing.T) {
	e, _, _ := newTestEngine(t)
	state := WorldState{Timestamp: monday10, UserPresent: true, ActivityLevel: ActivityHigh}

	// The fifth observation is still scored against four samples.
	for i := 0; i < 5; i++ {
		assert.Equal(t, 0.1, e.Tick(state))
	}
	// Sixth sees five samples of the same routine: no surprise.
	assert.InDelta(t, 0.0, e.Tick(state), 1e-9)
}

func TestEngine_ActivitySurprise(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for i := 0; i < 10; i++ {
		e.Tick(WorldState{Timestamp: monday10, UserPresent: true, ActivityLevel: ActivityLow})
	}
	// Present as usual, but activity never seen before.
	s := e.Tick(WorldState{Timestamp: monday10, UserPresent: true, ActivityLevel: ActivityHigh})
	assert.InDelta(t, 0.3, s, 1e-9)
}

func TestWorldModel_ColdStartUniform(t *testing.T) {
	m := NewWorldModel("", 0)
	p := m.Predict(monday10)
	assert.Equal(t, 0.5, p.PPresent)
	assert.Equal(t, 1.0, p.Uncertainty)
	assert.InDelta(t, 1.0/3, p.PActivity[ActivityMedium], 1e-9)
}

func TestWorldModel_UncertaintyShrinks(t *testing.T) {
	m := NewWorldModel("", 0)
	prev := 1.0
	for n := 1; n <= 50; n++ {
		m.Update(WorldState{Timestamp: monday10})
		if n < DefaultMinSamples {
			continue
		}
		u := m.Predict(monday10).Uncertainty
		assert.LessOrEqual(t, u, prev)
		prev = u
	}
	assert.Less(t, prev, 0.3)
}

func TestEngine_PersistenceRoundTrip(t *testing.T) {
	e, path, _ := newTestEngine(t)
	e.Tick(WorldState{Timestamp: monday10, UserPresent: true, ActivityLevel: ActivityMedium})
	e.Tick(WorldState{Timestamp: monday10.Add(24 * time.Hour)})
	require.NoError(t, e.Shutdown())

	m := NewWorldModel(path, 0)
	m.Load()
	assert.Equal(t, []string{"Mon-10", "Tue-10"}, m.Keys())

	b, ok := m.Bucket("Mon-10")
	require.True(t, ok)
	assert.Equal(t, BucketStats{Total: 1, Present: 1, ActivityMedium: 1}, b)
}

func TestEngine_ShutdownBeforeFirstTickKeepsModel(t *testing.T) {
	e, path, _ := newTestEngine(t)
	for i := 0; i < 10; i++ {
		e.Tick(WorldState{Timestamp: monday10, UserPresent: true})
	}
	require.NoError(t, e.Shutdown())

	// Boot and stop again without a single tick.
	restarted := NewEngine(NewWorldModel(path, 0), DefaultOptions())
	require.NoError(t, restarted.Shutdown())

	m := NewWorldModel(path, 0)
	m.Load()
	b, ok := m.Bucket("Mon-10")
	require.True(t, ok)
	assert.Equal(t, 10, b.Total)
	assert.Equal(t, 10, b.Present)
}

func TestEngine_PeriodicSave(t *testing.T) {
	e, path, clock := newTestEngine(t)
	e.Tick(WorldState{Timestamp: monday10})
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no save before the interval")

	clock.Advance(6 * time.Minute)
	e.Tick(WorldState{Timestamp: monday10})
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWorldModel_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world_model.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0644))

	m := NewWorldModel(path, 0)
	m.Load()
	assert.Empty(t, m.Keys())
}
