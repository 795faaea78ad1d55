package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"enton/internal/logging"
	"enton/internal/providers"
)

// CommandPlayer pipes audio as WAV into an external player such as
// `aplay -q -` or `ffplay -nodisp -autoexit -`.
type CommandPlayer struct {
	Command []string
}

// NewCommandPlayer returns a player for argv. An empty argv uses aplay.
func NewCommandPlayer(argv []string) *CommandPlayer {
	if len(argv) == 0 {
		argv = []string{"aplay", "-q", "-"}
	}
	return &CommandPlayer{Command: argv}
}

// Play blocks until the player exits.
func (p *CommandPlayer) Play(ctx context.Context, audio providers.Audio) error {
	if len(audio.Samples) == 0 {
		return nil
	}
	if len(p.Command) == 0 {
		return errors.New("no player command configured")
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdin = bytes.NewReader(providers.EncodeWAV(audio))
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.SpeechDebug("playing %.2fs via %s", audio.Duration(), p.Command[0])
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.Command[0], err, msg)
		}
		return fmt.Errorf("%s: %w", p.Command[0], err)
	}
	return nil
}

// NullPlayer discards audio. Used when no audio device is available.
type NullPlayer struct{}

// Play does nothing.
func (NullPlayer) Play(context.Context, providers.Audio) error { return nil }
