// Package server wires together the matchmaker, rate limiters, metrics,
// and SSH transport into a single runnable termegle instance.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/sirbread/termegle/internal/chat"
	"github.com/sirbread/termegle/internal/config"
	"github.com/sirbread/termegle/internal/hostkey"
	"github.com/sirbread/termegle/internal/matchmaker"
	"github.com/sirbread/termegle/internal/metrics"
	"github.com/sirbread/termegle/internal/security"
	"github.com/sirbread/termegle/internal/transport"
)

// Server owns every long-lived collaborator a running termegle instance
// needs and exposes the single Run entry point main.go calls.
type Server struct {
	cfg *config.Config

	matchmaker  *matchmaker.Matchmaker
	connLimiter *security.SlidingLimiter
	lineLimiter *security.LineLimiter
	metrics     *metrics.Prometheus
	logger      *log.Logger

	transport *transport.Server
}

// New constructs a Server from cfg. It loads (or generates) the SSH host
// key and binds the listen address, but does not start serving — call Run
// for that.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	signer, err := hostkey.LoadOrGenerate(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load host key: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	s := &Server{
		cfg:         cfg,
		matchmaker:  matchmaker.New(),
		connLimiter: security.NewSlidingLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		lineLimiter: security.NewLineLimiter(cfg.LineRatePerMin),
		metrics:     metrics.New(),
		logger:      logger,
	}

	s.transport = transport.New(listener, signer, s.connLimiter, s.newSession, logger)

	return s, nil
}

// newSession builds a chat.Session bound to this server's collaborators.
// Passed to the transport layer as a transport.SessionFactory.
func (s *Server) newSession(conn ssh.Channel) *chat.Session {
	return chat.NewSession(conn, chat.Deps{
		Matchmaker:  s.matchmaker,
		LineLimiter: s.lineLimiter,
		Metrics:     s.metrics,
		Logger:      s.logger,
		Supervisor: chat.SupervisorConfig{
			Interval:   s.cfg.SupervisorInterval,
			WarnAfter:  s.cfg.WarnAfter,
			EvictAfter: s.cfg.EvictAfter,
		},
	})
}

// Run serves SSH connections and the Prometheus metrics endpoint under one
// cancellable errgroup, and runs the rate limiter's cleanup loop on the
// group's context: the first failure or ctx cancellation stops all three.
func (s *Server) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	s.connLimiter.StartCleanup(gCtx, s.cfg.RateLimitWindow)

	g.Go(func() error {
		s.logger.Printf("termegle listening on %s", s.cfg.ListenAddr)
		return s.transport.Serve(gCtx)
	})

	if s.cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:    s.cfg.MetricsAddr,
			Handler: s.metrics.Handler(),
		}
		g.Go(func() error {
			s.logger.Printf("metrics listening on %s", s.cfg.MetricsAddr)
			return listenAndServe(gCtx, metricsSrv)
		})
	}

	return g.Wait()
}

// listenAndServe runs srv until it errors or ctx is cancelled, in which
// case it shuts down gracefully and returns nil.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
