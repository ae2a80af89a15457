// Package orcherr defines the error taxonomy shared by every stage of
// the connection orchestrator.
package orcherr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigEmpty is returned when a Configuration has no targets.
	ErrConfigEmpty = errors.New("orchestrator: configuration has no speakers")

	// ErrNoControllers is returned when the controller pool is empty
	// once the reserved BLE controller has been excluded.
	ErrNoControllers = errors.New("orchestrator: no usable controllers")

	// ErrAudioUnavailable is returned by ApplyConfiguration, alongside
	// the populated Result, when any entry ends audioDegraded: the
	// audio server did not become responsive within ensureRunning's
	// deadline, a speaker sink was not visible, or a loopback failed to
	// load.
	ErrAudioUnavailable = errors.New("orchestrator: audio server unavailable")

	// ErrFatal is returned when the Bluetooth daemon is lost mid-run
	// and even inventory listing fails.
	ErrFatal = errors.New("orchestrator: bluetooth daemon unavailable")

	// ErrBusy is returned by the facade when a caller-provided
	// deadline expires before the call's result is available, whether
	// the call is still queued behind another one or already running.
	ErrBusy = errors.New("orchestrator: busy, deadline exceeded while queued")
)

// Kind classifies a per-target failure.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindBusy               Kind = "Busy"
	KindTransportError     Kind = "TransportError"
	KindTimeout            Kind = "Timeout"
	KindLoopbackLoad       Kind = "LoopbackLoad"
)

// TargetError carries a per-target failure without aborting the
// remaining targets in a Gameplan.
type TargetError struct {
	MAC  string
	Kind Kind
	Err  error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %s: %v", e.MAC, e.Kind, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// NewTargetError wraps err with the target's MAC and a failure kind.
func NewTargetError(mac string, kind Kind, err error) *TargetError {
	return &TargetError{MAC: mac, Kind: kind, Err: err}
}

// coder is implemented by errors that already know their exit code,
// e.g. ipc.RemoteError relaying a code the daemon process computed.
type coder interface {
	ExitCode() int
}

// ExitCode maps a top-level error to the CLI exit code from spec §6.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfigEmpty):
		return 2
	case errors.Is(err, ErrNoControllers):
		return 3
	case errors.Is(err, ErrAudioUnavailable):
		return 4
	}
	var c coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return 1
}
