package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shiptrack/internal/api"
	"shiptrack/internal/config"
	"shiptrack/internal/jobs"
	"shiptrack/internal/logging"
	"shiptrack/internal/workflow"
)

// Store is the read surface the server needs beyond the engine.
type Store interface {
	api.JobReader
	CheckHealth(ctx context.Context) (jobs.DatabaseHealth, error)
}

// Server serves the pipeline API and guards the data directory with a lock.
type Server struct {
	cfg    *config.Config
	engine *workflow.Engine
	store  Store
	jobs   *api.JobService
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	running  atomic.Bool
	started  time.Time
}

// New constructs a server. Start must be called to begin listening.
func New(cfg *config.Config, engine *workflow.Engine, store Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil || engine == nil || store == nil {
		return nil, errors.New("server requires config, engine, and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		store:    store,
		jobs:     api.NewJobService(store),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return s.withRequestID(s.withLogging(authMiddleware(s.cfg.Paths.APIToken, mux)))
}

// Start acquires the instance lock and begins serving on the configured bind
// address. The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}
	if err := os.MkdirAll(s.cfg.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shiptrack server instance is already running")
	}

	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.started = time.Now()
	s.mu.Unlock()
	s.running.Store(true)

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath),
	)
	return nil
}

// Stop shuts the server down and releases the instance lock.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete", logging.Error(err))
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release server lock", logging.Error(err))
	}
	s.logger.Info("api server stopped")
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Addr returns the bound listener address, or empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) status(ctx context.Context) (api.ServerStatus, error) {
	health, err := s.store.CheckHealth(ctx)
	if err != nil {
		return api.ServerStatus{}, err
	}
	summary, err := s.jobs.Summary(ctx)
	if err != nil {
		return api.ServerStatus{}, err
	}
	status := api.ServerStatus{
		Running:  s.running.Load(),
		PID:      os.Getpid(),
		Database: api.FromDatabaseHealth(health),
		Summary:  summary,
	}
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started.IsZero() {
		status.Started = started.UTC().Format(time.RFC3339)
		status.Uptime = time.Since(started).Round(time.Second).String()
	}
	return status, nil
}
