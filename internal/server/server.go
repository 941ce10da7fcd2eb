// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/config"
	"github.com/jackzampolin/protocollens/internal/home"
	"github.com/jackzampolin/protocollens/internal/server/endpoints"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

// shutdownTimeout bounds graceful shutdown of in-flight analyses.
const shutdownTimeout = 30 * time.Second

// Server is the ProtocolLens HTTP server.
// It starts without a pipeline when no provider can be built yet, and
// picks one up on the next config reload.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	listener net.Listener
}

// Config holds server configuration.
type Config struct {
	// Host overrides server.host from config when set
	Host string
	// Port overrides server.port from config when set
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the protocollens home directory (prompt overrides)
	Home *home.Dir
	// Provider overrides pipeline.llm_provider when set
	Provider string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = c.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = c.Server.Port
	}

	services, err := svcctx.NewServices(svcctx.BootstrapConfig{
		ConfigManager: cfg.ConfigManager,
		Home:          cfg.Home,
		Logger:        cfg.Logger,
		Provider:      cfg.Provider,
	})
	if err != nil {
		return nil, err
	}

	if err := services.Reload(c); err != nil {
		cfg.Logger.Warn("server.runtime.unavailable", "error", err)
	}

	// Watch for config changes
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		if err := services.Reload(c); err != nil {
			cfg.Logger.Error("server.runtime.reload_failed", "error", err)
			return
		}
		cfg.Logger.Info("server.runtime.reloaded")
	})

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
		services:  services,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	writeTimeout := c.EffectiveWriteTimeout()
	if budget := c.Pipeline.RunBudget(); writeTimeout < budget {
		cfg.Logger.Warn("server.write_timeout.short",
			"write_timeout", writeTimeout,
			"run_budget", budget,
		)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.logRequests(s.withServices(mux)),
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start listens and serves until the context is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	if s.configMgr.ConfigFile() != "" {
		s.configMgr.WatchConfig()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server.start", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	// Runs on cancellation of ctx or when Serve fails.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.logger.Info("server.shutdown_signal")
		}
		return s.shutdown()
	})
	return g.Wait()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("server.shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Error("server.shutdown_error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server.stopped")
	return err
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the listen address: the bound address while running,
// otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Services returns the services shared with request handlers.
func (s *Server) Services() *svcctx.Services {
	return s.services
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures a pipeline runtime is installed.
// Returns 503 Service Unavailable until a provider can be built.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Runtime() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized","class":"unavailable"}`))
			return
		}
		next(w, r)
	}
}
