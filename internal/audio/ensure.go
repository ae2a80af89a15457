package audio

import (
	"fmt"
	"time"
)

const (
	// EnsureRunningPollInterval mirrors internal/bluez's WaitForFlag
	// cadence — both adapters poll for convergence the same way.
	EnsureRunningPollInterval = 2 * time.Second
	// EnsureRunningTimeout is the default deadline for EnsureRunning.
	EnsureRunningTimeout = 20 * time.Second
)

// EnsureRunning polls Ping every EnsureRunningPollInterval until the
// server answers or timeout elapses.
func (c *Client) EnsureRunning(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = EnsureRunningTimeout
	}
	if c.Ping() {
		return nil
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(EnsureRunningPollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: not ready after %s", ErrUnavailable, timeout)
		}
		<-ticker.C
		if c.Ping() {
			return nil
		}
	}
}
