package system

import (
	"context"
	"sync"
	"time"

	"enton/internal/events"
	"enton/internal/prediction"
)

// observer folds perception events into the WorldState fed to the
// prediction engine on every workspace tick.
type observer struct {
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	present    bool
	lastPerson time.Time
	stimuli    int // perception events since the last state
}

func newObserver(timeout time.Duration, now func() time.Time) *observer {
	if now == nil {
		now = time.Now
	}
	return &observer{timeout: timeout, now: now}
}

func (o *observer) attach(bus *events.Bus) {
	bus.On(events.KindDetection, func(_ context.Context, ev events.Event) error {
		o.stimulus(ev.(events.DetectionEvent).Label == "person")
		return nil
	})
	bus.On(events.KindFace, func(_ context.Context, ev events.Event) error {
		o.stimulus(true)
		return nil
	})
	bus.On(events.KindTranscription, func(_ context.Context, ev events.Event) error {
		o.stimulus(ev.(events.TranscriptionEvent).IsFinal)
		return nil
	})
	for _, k := range []events.Kind{events.KindActivity, events.KindEmotion, events.KindSound} {
		bus.On(k, func(context.Context, events.Event) error {
			o.stimulus(false)
			return nil
		})
	}
}

// stimulus counts one perception event; person marks someone as seen.
func (o *observer) stimulus(person bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stimuli++
	if person {
		o.present = true
		o.lastPerson = o.now()
	}
}

// state returns the current observation and resets the stimulus count. left
// reports that the person was just considered gone.
func (o *observer) state() (st prediction.WorldState, left bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if o.present && now.Sub(o.lastPerson) > o.timeout {
		o.present = false
		left = true
	}

	level := prediction.ActivityLow
	switch {
	case o.stimuli >= 5:
		level = prediction.ActivityHigh
	case o.stimuli >= 1:
		level = prediction.ActivityMedium
	}
	o.stimuli = 0

	return prediction.WorldState{
		Timestamp:     now,
		UserPresent:   o.present,
		ActivityLevel: level,
	}, left
}
