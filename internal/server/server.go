// Package server runs the masthead HTTP API. When the structural strategy is
// in play it also owns the tesseract-server container lifecycle, starting it
// before the listener comes up and stopping it on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/config"
	"github.com/openglam/masthead/internal/home"
	"github.com/openglam/masthead/internal/iiif"
	"github.com/openglam/masthead/internal/jobs"
	"github.com/openglam/masthead/internal/server/endpoints"
	"github.com/openglam/masthead/internal/session"
	"github.com/openglam/masthead/internal/svcctx"
	"github.com/openglam/masthead/internal/tessd"
	"github.com/openglam/masthead/web"
)

// Server is the main masthead HTTP server.
type Server struct {
	httpServer  *http.Server
	tessManager *tessd.Manager
	sessions    *session.Store
	jobManager  *jobs.Manager
	registry    *classify.Registry
	configMgr   *config.Manager
	logger      *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8090)
	Port int
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the masthead home directory
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	appCfg := cfg.ConfigManager.Get()

	// Classifier registry with hot reload.
	registry := classify.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(appCfg.ToRegistryConfig())
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToRegistryConfig())
		cfg.Logger.Info("classifier registry reloaded from config")
	})

	// Managed tesseract container, if configured.
	var tessManager *tessd.Manager
	if appCfg.Tesseract.Managed {
		tm, err := tessd.NewManager(tessd.Config{
			ContainerName: appCfg.Tesseract.ContainerName,
			Image:         appCfg.Tesseract.Image,
			HostPort:      appCfg.Tesseract.Port,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create tesseract manager: %w", err)
		}
		tessManager = tm
	}

	s := &Server{
		tessManager: tessManager,
		sessions:    session.NewStore(),
		jobManager:  jobs.NewManager(cfg.Logger),
		registry:    registry,
		configMgr:   cfg.ConfigManager,
		logger:      cfg.Logger,
	}

	s.services = &svcctx.Services{
		Sessions:   s.sessions,
		JobManager: s.jobManager,
		Registry:   s.registry,
		IIIF: iiif.NewClient(iiif.ClientConfig{
			ImageWidth:      appCfg.Fetch.ImageWidth,
			ManifestTimeout: time.Duration(appCfg.Fetch.ManifestTimeout) * time.Second,
			ImageTimeout:    time.Duration(appCfg.Fetch.ImageTimeout) * time.Second,
			Logger:          cfg.Logger,
		}),
		Config: cfg.ConfigManager,
		Logger: cfg.Logger,
		Home:   cfg.Home,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{TessManager: tessManager}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// Correction UI. API patterns are more specific, so they win.
	if staticFS, err := web.StaticFS(); err == nil {
		mux.Handle("GET /", http.FileServerFS(staticFS))
	} else {
		cfg.Logger.Warn("embedded UI unavailable", "error", err)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and, when managed, the tesseract container.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	// Background jobs derive from the server lifecycle, not from requests.
	s.services.BaseContext = ctx

	if s.tessManager != nil {
		if err := s.tessManager.ValidateExisting(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("existing tesseract container incompatible: %w", err)
		}
		s.logger.Info("starting tesseract-server")
		if err := s.tessManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start tesseract-server: %w", err)
		}
		s.logger.Info("tesseract-server is ready", "url", s.tessManager.URL())
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the tesseract
// container.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.tessManager != nil {
		s.logger.Info("stopping tesseract-server")
		if err := s.tessManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("tesseract-server stop error", "error", err)
		}
		if err := s.tessManager.Close(); err != nil {
			s.logger.Error("tesseract manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// JobManager returns the job manager.
func (s *Server) JobManager() *jobs.Manager {
	return s.jobManager
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the classifier registry.
func (s *Server) Registry() *classify.Registry {
	return s.registry
}

// Handler returns the fully wired HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if core services aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil || s.jobManager == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
