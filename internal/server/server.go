// Package server composes the framework behind a builder-style facade: an
// HTTP handler, an optional orchestrator, an optional logger and an optional
// static directory, with lifecycle and signal handling in one place. Every
// component is optional; missing ones get no-op or sane defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JoshCap20/areion/internal/logging"
)

const (
	DefaultAddr            = ":8080"
	defaultShutdownTimeout = 5 * time.Second
)

// Orchestrator is the lifecycle surface the server drives.
type Orchestrator interface {
	Start() error
	Shutdown() error
}

type Server struct {
	addr            string
	handler         http.Handler
	log             logging.Logger
	orch            Orchestrator
	staticDir       string
	shutdownTimeout time.Duration

	// err accumulates builder mistakes and is surfaced by Run.
	err error
}

func New() *Server {
	return &Server{
		addr:            DefaultAddr,
		log:             logging.Nop(),
		shutdownTimeout: defaultShutdownTimeout,
	}
}

func (s *Server) WithAddr(addr string) *Server {
	if addr == "" {
		s.fail(errors.New("addr must not be empty"))
		return s
	}
	s.addr = addr
	return s
}

func (s *Server) WithHandler(h http.Handler) *Server {
	if h == nil {
		s.fail(errors.New("handler must not be nil"))
		return s
	}
	s.handler = h
	return s
}

func (s *Server) WithLogger(l logging.Logger) *Server {
	if l == nil {
		s.fail(errors.New("logger must not be nil"))
		return s
	}
	s.log = l
	return s
}

func (s *Server) WithOrchestrator(o Orchestrator) *Server {
	if o == nil {
		s.fail(errors.New("orchestrator must not be nil"))
		return s
	}
	s.orch = o
	return s
}

func (s *Server) WithStaticDir(dir string) *Server {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.fail(fmt.Errorf("static directory %q does not exist", dir))
		return s
	}
	s.staticDir = dir
	return s
}

func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	if d <= 0 {
		s.fail(errors.New("shutdown timeout must be positive"))
		return s
	}
	s.shutdownTimeout = d
	return s
}

func (s *Server) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// buildHandler mounts the static file server, if any, in front of the main
// handler.
func (s *Server) buildHandler() (http.Handler, error) {
	if s.handler == nil {
		return nil, errors.New("server has no handler; use WithHandler")
	}
	if s.staticDir == "" {
		return s.handler, nil
	}
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	mux.Handle("/", s.handler)
	return mux, nil
}

// Run starts the orchestrator and the HTTP server, then blocks until the
// context is cancelled or SIGINT/SIGTERM arrives. Shutdown order is HTTP
// first so in-flight requests can still submit work, then the orchestrator.
func (s *Server) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	handler, err := s.buildHandler()
	if err != nil {
		return err
	}

	if s.orch != nil {
		if err := s.orch.Start(); err != nil {
			return fmt.Errorf("start orchestrator: %w", err)
		}
	}

	httpSrv := &http.Server{Addr: s.addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http server listening on %s", s.addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.log.Infof("received signal %s, shutting down", sig)
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
	case err := <-errCh:
		s.shutdownOrchestrator()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
	s.shutdownOrchestrator()
	s.log.Info("server shutdown complete")
	return nil
}

func (s *Server) shutdownOrchestrator() {
	if s.orch == nil {
		return
	}
	if err := s.orch.Shutdown(); err != nil {
		s.log.Errorf("orchestrator shutdown: %v", err)
	}
}
