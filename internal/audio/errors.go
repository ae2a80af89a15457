package audio

import "errors"

// ErrUnavailable is returned when the audio server cannot be reached
// or does not become responsive within EnsureRunning's deadline.
var ErrUnavailable = errors.New("audio: server unavailable")

// ErrLoopbackLoad is returned when LoadLoopback exhausts its retries
// without the server returning a numeric module id.
var ErrLoopbackLoad = errors.New("audio: loopback module failed to load")
