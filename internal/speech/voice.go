package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"enton/internal/events"
	"enton/internal/logging"
	"enton/internal/providers"
)

// unmuteTimeout bounds the unmute send when Ears is not draining its channel.
const unmuteTimeout = time.Second

// ErrQueueFull is returned by Say when the speech queue is saturated.
var ErrQueueFull = errors.New("speech queue full")

// Player plays synthesized audio, blocking until playback ends.
type Player interface {
	Play(ctx context.Context, audio providers.Audio) error
}

// Voice speaks queued text one utterance at a time.
type Voice struct {
	tts    *providers.Chain[providers.TTS]
	player Player
	queue  chan string
	mute   chan<- bool

	speaking atomic.Bool
	spoken   atomic.Uint64
}

// NewVoice creates a Voice with a queue of the given size.
func NewVoice(tts *providers.Chain[providers.TTS], player Player, queueSize int) *Voice {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Voice{tts: tts, player: player, queue: make(chan string, queueSize)}
}

// SetMuteSignal connects Voice to an Ears mute channel. Call before Run.
func (v *Voice) SetMuteSignal(ch chan<- bool) { v.mute = ch }

// Attach makes Voice speak every SpeechRequest published on bus.
func (v *Voice) Attach(bus *events.Bus) {
	bus.On(events.KindSpeechRequest, func(ctx context.Context, ev events.Event) error {
		req, ok := ev.(events.SpeechRequest)
		if !ok {
			return nil
		}
		return v.Say(req.Text)
	})
}

// Say enqueues text without blocking.
func (v *Voice) Say(text string) error {
	select {
	case v.queue <- text:
		return nil
	default:
		logging.SpeechWarn("voice queue full, dropping: %s", cut(text, 40))
		return ErrQueueFull
	}
}

// IsSpeaking reports whether an utterance is being synthesized or played.
func (v *Voice) IsSpeaking() bool { return v.speaking.Load() }

// Spoken returns how many utterances were played.
func (v *Voice) Spoken() uint64 { return v.spoken.Load() }

// Run drains the queue until ctx is done.
func (v *Voice) Run(ctx context.Context) error {
	logging.Speech("Voice ready")
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-v.queue:
			if strings.TrimSpace(text) == "" {
				continue
			}
			if err := v.speak(ctx, text); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.SpeechError("TTS failed: %v", err)
			}
		}
	}
}

// speak mutes Ears, synthesizes and plays text. Ears is unmuted on every
// path out, including synthesis failure.
func (v *Voice) speak(ctx context.Context, text string) error {
	v.speaking.Store(true)
	v.signal(ctx, true)
	defer func() {
		unmuteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unmuteTimeout)
		v.signal(unmuteCtx, false)
		cancel()
		v.speaking.Store(false)
	}()

	audio, used, err := v.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if len(audio.Samples) == 0 {
		return nil
	}
	if err := v.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	v.spoken.Add(1)
	logging.Speech("Voice [%s]: %s", used, cut(text, 60))
	return nil
}

// Synthesize renders text with the primary provider, falling back along the
// chain. It returns the audio and the id of the provider that produced it.
func (v *Voice) Synthesize(ctx context.Context, text string) (providers.Audio, string, error) {
	primary, err := v.tts.Get()
	if err != nil {
		return providers.Audio{}, "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, err)
	}
	audio, err := primary.Synthesize(ctx, text)
	if err == nil {
		return audio, primary.ID(), nil
	}
	logging.SpeechWarn("TTS [%s] failed, trying fallback: %v", primary.ID(), err)

	used, walkErr := v.tts.Walk(primary.ID(), func(p providers.TTS) error {
		out, err := p.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		audio = out
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, providers.ErrNoProvider) {
			return providers.Audio{}, "", fmt.Errorf("%w: %s: %w", ErrAllProvidersFailed, primary.ID(), err)
		}
		return providers.Audio{}, "", fmt.Errorf("%w: %s: %w; %w", ErrAllProvidersFailed, primary.ID(), err, walkErr)
	}
	return audio, used, nil
}

func (v *Voice) signal(ctx context.Context, muted bool) {
	if v.mute == nil {
		return
	}
	select {
	case v.mute <- muted:
	case <-ctx.Done():
	}
}
