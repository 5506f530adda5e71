// Package ipc exposes the ledger to local actors over gRPC on a Unix
// socket. Mutating calls carry an ed25519-signed Envelope that names the
// caller; queries are unauthenticated.
package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"

	"github.com/mymonad/aura/internal/audit"
	"github.com/mymonad/aura/internal/ledger"
	"github.com/mymonad/aura/internal/zkproof"
)

// CapabilityProvider reports the node's proof verification capability.
type CapabilityProvider interface {
	Capability() zkproof.Capability
}

// Options configure a Server.
type Options struct {
	MaxClockSkew    time.Duration
	ReplayCacheSize int
	Logger          *slog.Logger
	// Events serves the Events query. Nil disables it.
	Events audit.Lister
	// ZK serves the Capability query. Nil reports a node without proofs.
	ZK CapabilityProvider
}

// Server is the IPC gRPC server.
type Server struct {
	sockPath string
	ledger   *ledger.Ledger
	auth     *Authenticator
	events   audit.Lister
	zk       CapabilityProvider
	logger   *slog.Logger
	grpc     *grpc.Server
	listener net.Listener
}

// NewServer creates a new IPC server listening on sockPath.
func NewServer(sockPath string, l *ledger.Ledger, opts Options) (*Server, error) {
	if sockPath == "" {
		return nil, ErrEmptySocketPath
	}
	auth, err := NewAuthenticator(opts.MaxClockSkew, opts.ReplayCacheSize)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(sockPath)

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", sockPath, err)
	}

	s := &Server{
		sockPath: sockPath,
		ledger:   l,
		auth:     auth,
		events:   opts.Events,
		zk:       opts.ZK,
		logger:   logger,
		listener: listener,
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logCalls))
	s.grpc.RegisterService(&serviceDesc, s)

	return s, nil
}

// Start begins serving requests. It blocks until Stop is called.
func (s *Server) Start() error {
	return s.grpc.Serve(s.listener)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
	os.Remove(s.sockPath)
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Debug("rpc failed",
			"method", info.FullMethod,
			"duration", time.Since(start),
			"error", err,
		)
		return resp, err
	}
	s.logger.Debug("rpc", "method", info.FullMethod, "duration", time.Since(start))
	return resp, nil
}

func (s *Server) capability() zkproof.Capability {
	if s.zk == nil {
		return zkproof.Capability{Backend: zkproof.BackendAccept}
	}
	return s.zk.Capability()
}
