package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultDrainTimeout  = 30 * time.Second
)

// Sweeper evicts expired state and reports how much it removed.
type Sweeper func() int

// Server wraps the HTTP server and a janitor that expires idle sessions
// and stale downloads.
type Server struct {
	httpServer   *http.Server
	sweepers     []Sweeper
	interval     time.Duration
	drainTimeout time.Duration
	logger       *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

func NewServer(handler *Handler, port int, log *logger.Logger, sweepers ...Sweeper) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       2 * time.Minute,
			// Generation waits on the remote service, which can take minutes.
			WriteTimeout: 10 * time.Minute,
		},
		sweepers:     sweepers,
		interval:     DefaultSweepInterval,
		drainTimeout: DefaultDrainTimeout,
		logger:       log,
		stop:         make(chan struct{}),
	}
}

// Run listens on the configured port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is done. It returns only after
// in-flight requests have finished or the drain timeout has passed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.done.Add(1)
	go s.janitor()

	errc := make(chan error, 1)
	go func() {
		errc <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		s.stopJanitor()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down, waiting for in-flight requests...")
	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	return s.Shutdown(drainCtx)
}

// Shutdown stops accepting requests and waits for active ones. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.stopJanitor()
	return err
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) stopJanitor() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.done.Wait()
}

func (s *Server) janitor() {
	defer s.done.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) sweep() {
	removed := 0
	for _, sweep := range s.sweepers {
		removed += sweep()
	}
	if removed > 0 {
		s.logger.Debug("Janitor removed %d expired entries", removed)
	}
}
