package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/speakerhub/orchestrator/internal/model"
	"github.com/speakerhub/orchestrator/internal/orcherr"
	"github.com/speakerhub/orchestrator/internal/orchestrator"
)

// SocketPath returns the Unix socket path, under XDG_RUNTIME_DIR (or
// /tmp when unset), the way the teacher's socketPath resolves
// budsctl.sock.
func SocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "speakerhubd.sock")
}

// Server dispatches IPC requests into an orchestrator.Facade, the
// generalization of the teacher's daemon struct (bz *bluez, mu
// sync.Mutex) to a facade that already serializes its own calls.
type Server struct {
	facade *orchestrator.Facade
	log    *logrus.Logger
}

// NewServer builds a Server over facade.
func NewServer(facade *orchestrator.Facade, log *logrus.Logger) *Server {
	return &Server{facade: facade, log: log}
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Command {
	case "apply":
		if req.Config == nil {
			return Response{Error: "config is required", ExitCode: 2}
		}
		result, err := s.facade.ApplyConfiguration(ctx, *req.Config)
		if err != nil {
			resp := errorResponse(err)
			resp.Result = result
			return resp
		}
		return Response{Result: result}

	case "disconnect":
		if req.Config == nil {
			return Response{Error: "config is required", ExitCode: 2}
		}
		result, err := s.facade.DisconnectConfiguration(ctx, *req.Config)
		if err != nil {
			return errorResponse(err)
		}
		return Response{Result: result}

	case "status":
		return Response{Result: s.facade.Status()}

	case "updateTarget":
		if req.MAC == "" {
			return Response{Error: "mac is required", ExitCode: 2}
		}
		if err := s.facade.UpdateTarget(ctx, model.MAC(req.MAC), req.LatencyMs); err != nil {
			return errorResponse(err)
		}
		return Response{}

	default:
		return Response{Error: fmt.Sprintf("unknown command: %q", req.Command), ExitCode: 1}
	}
}

func errorResponse(err error) Response {
	return Response{Error: err.Error(), ExitCode: orcherr.ExitCode(err)}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(Response{Error: "invalid request: " + err.Error(), ExitCode: 1})
		return
	}

	resp := s.handleRequest(context.Background(), req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log.WithError(err).Warn("failed to write ipc response")
	}
}

// ListenAndServe listens on SocketPath() until ctx is canceled,
// dispatching each connection into handleConn on its own goroutine —
// generalizing the teacher's runDaemon accept loop (stale-socket
// removal, 0700 perms, signal-driven shutdown moved to the caller's
// ctx).
func (s *Server) ListenAndServe(ctx context.Context) error {
	sock := SocketPath()
	os.Remove(sock)
	ln, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("listen %s: %w", sock, err)
	}
	if err := os.Chmod(sock, 0700); err != nil {
		s.log.WithError(err).Warn("failed to chmod socket")
	}
	defer os.Remove(sock)
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.WithField("socket", sock).Info("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.handleConn(conn)
	}
}
