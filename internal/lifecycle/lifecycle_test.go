package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enton/internal/awareness"
	"enton/internal/desires"
	"enton/internal/metacognition"
	"enton/internal/persist"
	"enton/internal/selfmodel"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func components(c *clock) Components {
	meta := metacognition.DefaultOptions()
	meta.Now = c.Now
	return Components{
		Self:          selfmodel.New("enton", selfmodel.WithClock(c.Now), selfmodel.WithHostProbe(func(string) selfmodel.HostStats { return selfmodel.HostStats{} })),
		Desires:       desires.New(desires.Options{Now: c.Now}),
		Awareness:     awareness.New(awareness.Options{Now: c.Now}),
		Metacognition: metacognition.New(meta),
	}
}

func TestFirstBoot(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	l := Load(filepath.Join(t.TempDir(), "state.json"), WithClock(c.Now))

	assert.Empty(t, l.OnBoot(components(c)))
	assert.Equal(t, 1, l.BootCount())
	assert.Zero(t, l.TimeAsleep())
}

func TestRoundTripRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	l := Load(path, WithClock(c.Now))
	comp := components(c)
	l.OnBoot(comp)
	comp.Self.RestoreMood(0.9, 0.1)
	comp.Desires.Suppress(desires.Socialize, 1)
	comp.Awareness.TriggerAlert("glass breaking")
	comp.Metacognition.AddCuriosity("octopus cognition", "test", 0.9)
	c.Advance(2 * time.Hour)
	require.NoError(t, l.OnShutdown(comp))

	c.Advance(3 * time.Hour)
	l2 := Load(path, WithClock(c.Now))
	fresh := components(c)
	line := l2.OnBoot(fresh)

	assert.Equal(t, "I'm back! I was offline for 3h0min.", line)
	assert.Equal(t, 2, l2.BootCount())
	assert.InDelta(t, 7200, l2.State().TotalUptimeSeconds, 0.001)
	assert.InDelta(t, 0.9, fresh.Self.Mood().Engagement, 1e-9)
	assert.InDelta(t, 0.1, fresh.Self.Mood().Social, 1e-9)
	assert.Equal(t, awareness.Alert, fresh.Awareness.State())
	assert.Equal(t, "octopus cognition", fresh.Metacognition.NextTopic())
	assert.Contains(t, l2.Summary(), "Boot #2, total uptime 2.0h, slept 3h0min")
}

func TestWakeUpLines(t *testing.T) {
	tests := []struct {
		asleep time.Duration
		want   string
	}{
		{30 * time.Second, ""},
		{5 * time.Minute, "That was quick, I'm back!"},
		{90 * time.Minute, "I'm back! I was offline for 1h30min."},
		{50 * time.Hour, "Wow, I slept 2d2h! Did you miss me?"},
	}
	for _, tt := range tests {
		t.Run(tt.asleep.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
			require.NoError(t, Load(path, WithClock(c.Now)).OnShutdown(Components{}))

			c.Advance(tt.asleep)
			assert.Equal(t, tt.want, Load(path, WithClock(c.Now)).OnBoot(Components{}))
		})
	}
}

func TestSavePeriodicDoesNotDoubleCountUptime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	l := Load(path, WithClock(c.Now))
	l.OnBoot(Components{})

	for range 3 {
		c.Advance(10 * time.Minute)
		require.NoError(t, l.SavePeriodic(Components{}))
	}
	assert.InDelta(t, 1800, l.State().TotalUptimeSeconds, 0.001)

	var onDisk State
	require.NoError(t, persist.ReadJSON(path, &onDisk))
	assert.Equal(t, 1, onDisk.BootCount)
	assert.InDelta(t, 1800, onDisk.TotalUptimeSeconds, 0.001)
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	l := Load(path)
	assert.Equal(t, State{}, l.State())
	l.OnBoot(Components{})
	assert.Equal(t, 1, l.BootCount())
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "42s", HumanDuration(42*time.Second))
	assert.Equal(t, "5min", HumanDuration(5*time.Minute+10*time.Second))
	assert.Equal(t, "3h12min", HumanDuration(3*time.Hour+12*time.Minute))
	assert.Equal(t, "2d4h", HumanDuration(52*time.Hour))
	assert.Equal(t, "0s", HumanDuration(-time.Second))
}
