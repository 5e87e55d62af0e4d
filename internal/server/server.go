// Package server exposes a link's status endpoints: health, prometheus
// metrics, the websocket viewer bridge and entity listings.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/igtlctl/internal/auth"
	"github.com/danmuck/igtlctl/internal/bridge"
	"github.com/danmuck/igtlctl/internal/link"
	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/observability"
	"github.com/danmuck/igtlctl/internal/scene"
)

const shutdownTimeout = 5 * time.Second

// StateSource reports the current link state.
type StateSource interface {
	State() link.State
}

type Server struct {
	name     string
	addr     string
	router   *gin.Engine
	link     StateSource
	hub      *bridge.Hub
	entities scene.Source
	guard    auth.Validator
	started  time.Time
}

type Option func(*Server)

// WithToken requires token on the data routes. Health and metrics stay open.
func WithToken(token string) Option {
	return func(s *Server) {
		if token != "" {
			s.guard = auth.StaticToken{Token: token}
		}
	}
}

func New(name, addr string, l StateSource, hub *bridge.Hub, entities scene.Source, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		name:     name,
		addr:     addr,
		router:   gin.New(),
		link:     l,
		hub:      hub,
		entities: entities,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router.Use(gin.Recovery(), observability.HTTPMiddleware(name, observability.ComponentLogger(name, "http")))
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logs.Infof("server.Run name=%q addr=%q", s.name, ln.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
