package ipc

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/speakerhub/orchestrator/internal/model"
)

// Client dials the speakerhubd socket for each call, the same
// connect-per-request shape as the teacher's ipcCall.
type Client struct {
	socket string
}

// NewClient builds a Client against the default socket path.
func NewClient() *Client {
	return &Client{socket: SocketPath()}
}

func (c *Client) call(req Request) (Response, error) {
	conn, err := net.Dial("unix", c.socket)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon: %w (is `speakerhubd daemon` running?)", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.Error != "" {
		return resp, &RemoteError{Message: resp.Error, Code: resp.ExitCode}
	}
	return resp, nil
}

// RemoteError wraps a failure reported by the daemon across the socket,
// carrying the exit code the daemon already computed so a CLI process
// doesn't have to re-derive it from error text.
type RemoteError struct {
	Message string
	Code    int
}

func (e *RemoteError) Error() string { return e.Message }

// ExitCode returns e.Code, satisfying orcherr.ExitCode's type-assertion
// fallback for errors it doesn't otherwise recognize.
func (e *RemoteError) ExitCode() int { return e.Code }

// Apply sends an "apply" request for cfg. The returned Result can be
// non-nil even when err is set, e.g. when the daemon reports
// audioDegraded entries alongside orcherr.ErrAudioUnavailable; it is
// nil when the daemon sent no Result or could not be reached.
func (c *Client) Apply(cfg model.Configuration) (*model.Result, error) {
	resp, err := c.call(Request{Command: "apply", Config: &cfg})
	return resp.Result, err
}

// Disconnect sends a "disconnect" request for cfg.
func (c *Client) Disconnect(cfg model.Configuration) (*model.Result, error) {
	resp, err := c.call(Request{Command: "disconnect", Config: &cfg})
	return resp.Result, err
}

// Status sends a "status" request.
func (c *Client) Status() (*model.Result, error) {
	resp, err := c.call(Request{Command: "status"})
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// UpdateTarget sends an "updateTarget" request for mac.
func (c *Client) UpdateTarget(mac model.MAC, latencyMs int) error {
	_, err := c.call(Request{Command: "updateTarget", MAC: string(mac), LatencyMs: latencyMs})
	return err
}
