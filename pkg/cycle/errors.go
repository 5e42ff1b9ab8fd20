package cycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/formdata"
	"github.com/teslashibe/go-vision-replica/pkg/playback"
	"github.com/teslashibe/go-vision-replica/pkg/upload"
)

var (
	// ErrCycleInProgress is returned by Start while a cycle is not idle.
	ErrCycleInProgress = errors.New("cycle: cycle in progress")

	// ErrNotRecording is returned by Stop outside the recording state.
	ErrNotRecording = errors.New("cycle: not recording")

	// ErrNoCycle is returned by Cancel when nothing is in flight.
	ErrNoCycle = errors.New("cycle: no cycle in flight")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("cycle: controller closed")
)

// Kind classifies a failed cycle.
type Kind string

const (
	KindDeviceUnavailable Kind = "device_unavailable"
	KindEncodingFailure   Kind = "encoding_failure"
	KindNetworkFailure    Kind = "network_failure"
	KindParseFailure      Kind = "parse_failure"
	KindDecodeFailure     Kind = "decode_failure"
	KindCanceled          Kind = "canceled"
)

// Error is the typed result of a failed cycle.
type Error struct {
	Kind  Kind
	Stage State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cycle: %s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a cycle error, or "" if err is not one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// classify maps a step failure to its kind. The stage decides when the
// error carries no type of its own.
func classify(stage State, err error) Kind {
	var (
		netErr    *upload.NetworkError
		apiErr    *upload.APIError
		parseErr  *upload.ParseError
		decodeErr *playback.DecodeError
		playerErr *playback.PlayerError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &netErr), errors.As(err, &apiErr):
		return KindNetworkFailure
	case errors.As(err, &parseErr):
		return KindParseFailure
	case errors.As(err, &decodeErr):
		return KindDecodeFailure
	case errors.As(err, &playerErr):
		return KindDeviceUnavailable
	case errors.Is(err, audioio.ErrSettingsRejected),
		errors.Is(err, formdata.ErrInvalidBoundary),
		errors.Is(err, formdata.ErrBoundaryCollision):
		return KindEncodingFailure
	}

	switch stage {
	case StateUploading:
		return KindNetworkFailure
	case StatePlaying:
		return KindDecodeFailure
	default:
		return KindDeviceUnavailable
	}
}
