package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBus_DispatchesByKind(t *testing.T) {
	bus := NewBus(8)
	var got []string
	bus.On(KindTranscription, func(_ context.Context, ev Event) error {
		got = append(got, ev.(TranscriptionEvent).Text)
		return nil
	})
	bus.On(KindSound, func(context.Context, Event) error {
		t.Fatal("sound handler must not see transcriptions")
		return nil
	})

	bus.Dispatch(context.Background(), TranscriptionEvent{Base: NewBase(), Text: "oi enton"})
	assert.Equal(t, []string{"oi enton"}, got)
}

func TestBus_HandlerErrorsAndPanicsAreIsolated(t *testing.T) {
	bus := NewBus(8)
	var calls []int
	bus.On(KindSystem, func(context.Context, Event) error {
		calls = append(calls, 1)
		return errors.New("boom")
	})
	bus.On(KindSystem, func(context.Context, Event) error {
		calls = append(calls, 2)
		panic("kaboom")
	})
	bus.On(KindSystem, func(context.Context, Event) error {
		calls = append(calls, 3)
		return nil
	})

	bus.Dispatch(context.Background(), SystemEvent{Base: NewBase(), Type: "startup"})
	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, uint64(2), bus.Stats().HandlerFailures)
}

func TestBus_EmitNowaitDropsWhenFull(t *testing.T) {
	bus := NewBus(1)
	assert.True(t, bus.EmitNowait(SoundEvent{Base: NewBase(), Label: "Alarme"}))
	assert.False(t, bus.EmitNowait(SoundEvent{Base: NewBase(), Label: "Sirene"}))

	s := bus.Stats()
	assert.Equal(t, uint64(1), s.Emitted)
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, 1, s.Queued)
}

func TestBus_EmitRespectsContext(t *testing.T) {
	bus := NewBus(1)
	require.NoError(t, bus.Emit(context.Background(), SystemEvent{Base: NewBase()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := bus.Emit(ctx, SystemEvent{Base: NewBase()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_RunDeliversUntilCancelled(t *testing.T) {
	bus := NewBus(8)
	var wg sync.WaitGroup
	wg.Add(2)
	bus.On(KindDetection, func(context.Context, Event) error {
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	require.NoError(t, bus.Emit(ctx, DetectionEvent{Base: NewBase(), Label: "cat"}))
	require.NoError(t, bus.Emit(ctx, DetectionEvent{Base: NewBase(), Label: "person"}))
	wg.Wait()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestBus_HandlerRegistersHandler(t *testing.T) {
	bus := NewBus(8)
	var (
		mu   sync.Mutex
		seen []string
	)
	bus.On(KindFace, func(_ context.Context, ev Event) error {
		bus.On(KindSound, func(_ context.Context, ev Event) error {
			mu.Lock()
			seen = append(seen, ev.(SoundEvent).Label)
			mu.Unlock()
			return nil
		})
		return nil
	})

	ctx := context.Background()
	bus.Dispatch(ctx, SoundEvent{Base: NewBase(), Label: "before"})
	bus.Dispatch(ctx, FaceEvent{Base: NewBase(), Identity: "gabriel"})
	bus.Dispatch(ctx, SoundEvent{Base: NewBase(), Label: "after"})

	mu.Lock()
	assert.Equal(t, []string{"after"}, seen)
	mu.Unlock()
	assert.Equal(t, uint64(3), bus.Stats().Dispatched)
}

func TestBus_ConcurrentOnAndRun(t *testing.T) {
	bus := NewBus(64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.On(KindFace, func(context.Context, Event) error { return nil })
				_ = bus.Emit(ctx, FaceEvent{Base: NewBase()})
			}
		}()
	}
	wg.Wait()
	require.Eventually(t, func() bool { return bus.Stats().Dispatched == 200 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNewBase(t *testing.T) {
	a, b := NewBase(), NewBase()
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
	ev := SkillEvent{Base: a, Action: SkillLoaded, Name: "weather"}
	assert.Equal(t, a.ID, ev.Meta().ID)
}
