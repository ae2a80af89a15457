// Package ipc is the Unix-domain-socket JSON-RPC-ish transport that
// stands in for "the BLE layer" driving the Orchestrator Facade, the
// generalization of the teacher's two-command daemon/client split to
// the facade's four commands (apply, disconnect, updateTarget, status).
package ipc

import "github.com/speakerhub/orchestrator/internal/model"

// Request is sent from a client to the daemon.
type Request struct {
	Command   string                `json:"command"` // "apply" | "disconnect" | "updateTarget" | "status"
	Config    *model.Configuration  `json:"config,omitempty"`
	MAC       string                `json:"mac,omitempty"`
	LatencyMs int                   `json:"latencyMs,omitempty"`
}

// Response is sent from the daemon back to a client. ExitCode carries
// the spec §6 exit code the daemon computed for Error (0 when Error is
// empty), so a CLI process relaying this response over a second
// process boundary doesn't have to re-derive it from Error's text.
type Response struct {
	Result   *model.Result `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	ExitCode int           `json:"exitCode,omitempty"`
}
