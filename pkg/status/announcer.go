package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/cycle"
	"github.com/teslashibe/go-vision-replica/pkg/tts"
)

// Watcher is the read side of the cycle host.
type Watcher interface {
	Subscribe() (<-chan cycle.Snapshot, func())
	State() cycle.State
}

// Announcer speaks WaitingPhrase when a cycle starts capturing.
type Announcer struct {
	host     Watcher
	provider tts.Provider
	player   audioio.Player
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAnnouncer creates an announcer.
func NewAnnouncer(host Watcher, provider tts.Provider, player audioio.Player, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{
		host:     host,
		provider: provider,
		player:   player,
		timeout:  10 * time.Second,
		logger:   logger.With("component", "status.announcer"),
	}
}

// Run announces until ctx is done.
func (a *Announcer) Run(ctx context.Context) error {
	snaps, unsubscribe := a.host.Subscribe()
	defer unsubscribe()

	var last cycle.State
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.State == cycle.StateCapturing && last != cycle.StateCapturing {
				a.announce(ctx)
			}
			last = snap.State
		}
	}
}

func (a *Announcer) announce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.provider.Synthesize(ctx, WaitingPhrase)
	if err != nil {
		a.logger.Warn("waiting phrase synthesis failed", "error", err)
		return
	}

	// The reply may have arrived while synthesizing; never talk over it.
	switch a.host.State() {
	case cycle.StateCapturing, cycle.StateUploading:
	default:
		return
	}

	// The reply can still start between the check and here. PlayIfIdle
	// declines if it did, and a later reply preempts the phrase.
	started, err := a.player.PlayIfIdle(ctx, result.Audio)
	if err != nil {
		a.logger.Warn("waiting phrase playback failed", "error", err)
		return
	}
	if !started {
		a.logger.Debug("waiting phrase skipped, speaker busy")
		return
	}
	a.logger.Debug("waiting phrase playing", "cached", result.Cached)
}
