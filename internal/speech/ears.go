// Package speech implements hearing (Ears) and talking (Voice) over the
// STT and TTS provider chains.
//
// Voice mutes Ears while it plays so the agent never transcribes itself.
// The mute flag belongs to the Ears loop; Voice only sends on the channel
// returned by MuteSignal.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"enton/internal/config"
	"enton/internal/events"
	"enton/internal/logging"
	"enton/internal/providers"
)

// ErrAllProvidersFailed wraps the failure of every provider in a chain.
var ErrAllProvidersFailed = errors.New("all speech providers failed")

const muteBuffer = 16

// Emitter publishes events; satisfied by *events.Bus.
type Emitter interface {
	Emit(ctx context.Context, ev events.Event) error
}

// EarsOptions configures Ears.
type EarsOptions struct {
	// SilenceThreshold is the peak amplitude below which a chunk is skipped.
	SilenceThreshold float64
}

// EarsOptionsFromConfig maps the ears config section.
func EarsOptionsFromConfig(c config.EarsConfig) EarsOptions {
	o := EarsOptions{SilenceThreshold: 0.01}
	if c.SilenceThreshold > 0 {
		o.SilenceThreshold = c.SilenceThreshold
	}
	return o
}

// Ears transcribes audio chunks and publishes what it heard.
type Ears struct {
	stt  *providers.Chain[providers.STT]
	bus  Emitter
	opts EarsOptions

	mute  chan bool
	muted bool // owned by Run
}

// NewEars creates Ears. bus may be nil.
func NewEars(stt *providers.Chain[providers.STT], bus Emitter, opts EarsOptions) *Ears {
	if opts.SilenceThreshold <= 0 {
		opts.SilenceThreshold = 0.01
	}
	return &Ears{stt: stt, bus: bus, opts: opts, mute: make(chan bool, muteBuffer)}
}

// MuteSignal returns the channel Voice uses to mute (true) and unmute
// (false) the listening loop.
func (e *Ears) MuteSignal() chan<- bool { return e.mute }

// Transcribe converts audio to text with the primary provider, falling back
// along the chain. Non-empty text is published as a TranscriptionEvent.
func (e *Ears) Transcribe(ctx context.Context, audio providers.Audio) (string, error) {
	primary, err := e.stt.Get()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, err)
	}

	used := primary.ID()
	text, err := primary.Transcribe(ctx, audio)
	if err != nil {
		logging.SpeechWarn("STT [%s] failed: %v", used, err)
		var walkErr error
		used, walkErr = e.stt.Walk(primary.ID(), func(p providers.STT) error {
			out, err := p.Transcribe(ctx, audio)
			if err != nil {
				return err
			}
			text = out
			return nil
		})
		if walkErr != nil {
			if errors.Is(walkErr, providers.ErrNoProvider) {
				return "", fmt.Errorf("%w: %s: %w", ErrAllProvidersFailed, primary.ID(), err)
			}
			return "", fmt.Errorf("%w: %s: %w; %w", ErrAllProvidersFailed, primary.ID(), err, walkErr)
		}
	}

	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	logging.Speech("Ears [%s]: %s", used, cut(text, 80))
	if e.bus != nil {
		ev := events.TranscriptionEvent{Base: events.NewBase(), Text: text, IsFinal: true, Provider: used}
		if err := e.bus.Emit(ctx, ev); err != nil {
			return text, err
		}
	}
	return text, nil
}

// Run transcribes chunks until ctx is done or chunks is closed. Silent
// chunks and chunks arriving while muted are dropped.
func (e *Ears) Run(ctx context.Context, chunks <-chan providers.Audio) error {
	logging.Speech("Ears listening (silence threshold %.3f)", e.opts.SilenceThreshold)
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-e.mute:
			e.setMuted(m)
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			e.drainMute()
			if e.muted {
				logging.SpeechDebug("dropping chunk while muted")
				continue
			}
			if chunk.Peak() < e.opts.SilenceThreshold {
				continue
			}
			if _, err := e.Transcribe(ctx, chunk); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.SpeechError("transcription failed: %v", err)
			}
		}
	}
}

// drainMute applies pending mute signals so a chunk recorded after Voice
// started talking is never transcribed.
func (e *Ears) drainMute() {
	for {
		select {
		case m := <-e.mute:
			e.setMuted(m)
		default:
			return
		}
	}
}

func (e *Ears) setMuted(m bool) {
	if e.muted != m {
		logging.SpeechDebug("ears muted=%v", m)
	}
	e.muted = m
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
