package bluez

import (
	"fmt"
	"time"

	"github.com/speakerhub/orchestrator/internal/model"
)

// Flag is one of the three convergence flags WaitForFlag can poll for.
type Flag int

const (
	FlagPaired Flag = iota
	FlagTrusted
	FlagConnected
)

const (
	// DefaultPollInterval is how often WaitForFlag re-reads DeviceInfo.
	DefaultPollInterval = 2 * time.Second
	// DefaultTimeout is WaitForFlag's default convergence deadline.
	DefaultTimeout = 30 * time.Second
)

// WaitForFlag polls DeviceInfo every DefaultPollInterval until flag is
// true or timeout elapses. The BlueZ daemon's command replies are not
// reliable convergence signals — only DeviceInfo reflects ground
// truth — so every long-running operation in this package is a
// command followed by a WaitForFlag, never a blocking RPC.
func (c *Client) WaitForFlag(controller model.MAC, mac string, flag Flag, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()

	check := func() (bool, error) {
		info, err := c.DeviceInfo(controller, mac)
		if err != nil {
			return false, err
		}
		switch flag {
		case FlagPaired:
			return info.Paired, nil
		case FlagTrusted:
			return info.Trusted, nil
		case FlagConnected:
			return info.Connected, nil
		default:
			return false, fmt.Errorf("bluez: unknown flag %d", flag)
		}
	}

	if ok, err := check(); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	for {
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ticker.C:
			ok, err := check()
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			if time.Now().After(deadline) {
				return false, nil
			}
		}
	}
}
