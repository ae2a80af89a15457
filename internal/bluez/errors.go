package bluez

import "errors"

// Failure kinds named in spec §4.1. Operations wrap one of these kinds
// in the errors they return; the underlying D-Bus error is included as
// text only, not wrapped. WaitForFlag reports a timeout as (false, nil)
// rather than ErrTimeout.
var (
	ErrNotFound  = errors.New("bluez: not found")
	ErrBusy      = errors.New("bluez: busy")
	ErrTransport = errors.New("bluez: transport error")
	ErrTimeout   = errors.New("bluez: timeout")
)
