package audioio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// FFplayPlayer plays encoded audio by piping it into ffplay.
type FFplayPlayer struct {
	binary string
	logger *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func newFFplayPlayer(cfg Config, logger *slog.Logger) (*FFplayPlayer, error) {
	name := cfg.FFplayPath
	if name == "" {
		name = "ffplay"
	}
	binary, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrDeviceUnavailable, name, err)
	}

	return &FFplayPlayer{
		binary: binary,
		logger: logger.With("component", "audioio.ffplay"),
	}, nil
}

// Play starts playback of audio and returns once ffplay is running.
func (p *FFplayPlayer) Play(ctx context.Context, audio []byte) error {
	if err := checkBuffer(ctx, audio); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return p.startLocked(audio)
}

// PlayIfIdle starts playback unless ffplay is already running.
func (p *FFplayPlayer) PlayIfIdle(ctx context.Context, audio []byte) (bool, error) {
	if err := checkBuffer(ctx, audio); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return false, nil
	}
	if err := p.startLocked(audio); err != nil {
		return false, err
	}
	return true, nil
}

func checkBuffer(ctx context.Context, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(audio) == 0 {
		return fmt.Errorf("audioio: empty audio buffer")
	}
	return nil
}

func (p *FFplayPlayer) startLocked(audio []byte) error {
	cmd := exec.Command(p.binary, "-nodisp", "-autoexit", "-loglevel", "error", "-i", "pipe:0")
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffplay: %v", ErrDeviceUnavailable, err)
	}
	done := make(chan struct{})
	p.cmd, p.done = cmd, done

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
		close(done)
		if err != nil {
			p.logger.Debug("playback ended", "error", err)
		}
	}()

	p.logger.Debug("playback started", "bytes", len(audio))
	return nil
}

// Wait blocks until the latest playback exits.
func (p *FFplayPlayer) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *FFplayPlayer) stopLocked() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
}

// Stop interrupts the current playback.
func (p *FFplayPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Name returns "ffplay".
func (p *FFplayPlayer) Name() string {
	return "ffplay"
}

// Close stops playback.
func (p *FFplayPlayer) Close() error {
	return p.Stop()
}

var _ Player = (*FFplayPlayer)(nil)
