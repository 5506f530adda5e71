// Package httpapi serves a read-only JSON view of the ledger over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mymonad/aura/internal/audit"
	"github.com/mymonad/aura/internal/graph"
	"github.com/mymonad/aura/internal/ledger"
	"github.com/mymonad/aura/pkg/aura"
)

const shutdownTimeout = 5 * time.Second

// GraphReader answers match-graph queries.
type GraphReader interface {
	MatchedWith(ctx context.Context, principal aura.Principal) ([]graph.Edge, error)
}

// Options configure optional routes. Nil fields leave their routes
// answering 404.
type Options struct {
	Events audit.Lister
	Graph  GraphReader
	Logger *slog.Logger
}

// Server is the HTTP gateway.
type Server struct {
	ledger *ledger.Ledger
	events audit.Lister
	graph  GraphReader
	logger *slog.Logger
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the gateway for l. It does not listen until Serve.
func NewServer(l *ledger.Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ledger: l,
		events: opts.Events,
		graph:  opts.Graph,
		logger: logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.logRequests())
	s.routes(engine)
	s.engine = engine
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.GET("/stats", s.stats)
	v1.GET("/profiles/:principal", s.profile)
	v1.GET("/intents/:commitment", s.intent)
	v1.GET("/matches/:id", s.match)
	v1.GET("/reveals/:revealer", s.revealRecords)
	v1.GET("/reveals/:revealer/:counterpart", s.hasRevealed)
	if s.events != nil {
		v1.GET("/events", s.listEvents)
	}
	if s.graph != nil {
		v1.GET("/graph/:principal", s.matchedWith)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
