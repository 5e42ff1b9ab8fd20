// Package status drives the transient status line shown during a cycle
// and speaks the waiting phrase while a reply is prepared.
package status

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-vision-replica/pkg/cycle"
)

// Status phrases.
const (
	SpeakingText = "Start speaking"
	WaitingText  = "Taking a look now"

	// WaitingPhrase is what the announcer says.
	WaitingPhrase = WaitingText + "."
)

// DefaultInterval is the dot animation period.
const DefaultInterval = 500 * time.Millisecond

const maxDots = 3

// Source is what the animator watches and writes to. *cycle.Host
// implements it.
type Source interface {
	Subscribe() (<-chan cycle.Snapshot, func())
	SetStatusText(text string)
}

// phrase is the animated line for a state.
type phrase struct {
	base      string
	startDots int
}

func phraseFor(s cycle.State) (phrase, bool) {
	switch s {
	case cycle.StateRecording:
		return phrase{base: SpeakingText}, true
	case cycle.StateCapturing, cycle.StateUploading:
		return phrase{base: WaitingText, startDots: 1}, true
	}
	return phrase{}, false
}

// Animator cycles trailing dots on the status line: "Start speaking",
// "Start speaking.", up to three dots, then back.
type Animator struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
}

// NewAnimator creates an animator. A zero interval means DefaultInterval.
func NewAnimator(source Source, interval time.Duration, logger *slog.Logger) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Animator{
		source:   source,
		interval: interval,
		logger:   logger.With("component", "status.animator"),
	}
}

// Run animates until ctx is done.
func (a *Animator) Run(ctx context.Context) error {
	snaps, unsubscribe := a.source.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var (
		current cycle.State
		active  bool
		p       phrase
		dots    int
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.State == current {
				continue
			}
			current = snap.State

			next, animate := phraseFor(current)
			if !animate {
				if active {
					a.source.SetStatusText("")
				}
				active = false
				continue
			}
			if active && next == p {
				// Capturing to Uploading keeps the same line running.
				continue
			}
			active, p, dots = true, next, next.startDots
			a.source.SetStatusText(render(p.base, dots))
			ticker.Reset(a.interval)

		case <-ticker.C:
			if !active {
				continue
			}
			dots = (dots + 1) % (maxDots + 1)
			a.source.SetStatusText(render(p.base, dots))
		}
	}
}

func render(base string, dots int) string {
	return base + strings.Repeat(".", dots)
}
