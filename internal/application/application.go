package application

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bpmctl/internal/config"
	"github.com/eugenenazirov/bpmctl/internal/mockserver"
	"github.com/eugenenazirov/bpmctl/internal/process"
	"github.com/eugenenazirov/bpmctl/internal/storage"
)

// App encapsulates the mock MCP server dependencies and HTTP server.
type App struct {
	storage storage.Storage
	handler *mockserver.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
	prefix  string
}

// Option customises New.
type Option func(*options)

type options struct {
	processes []process.Process
}

// WithProcesses replaces the built-in sample processes served by the mock.
func WithProcesses(processes []process.Process) Option {
	return func(o *options) {
		o.processes = processes
	}
}

// New initializes the mock MCP server with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := storage.NewMemoryStorage()
	if o.processes != nil {
		if err := store.Replace(o.processes); err != nil {
			return nil, fmt.Errorf("failed to load processes: %w", err)
		}
	}

	prefix, err := RoutePrefix(cfg.MCPURL)
	if err != nil {
		return nil, err
	}

	handler := mockserver.NewHandler(store)
	router := mockserver.NewRouter(handler, logger, prefix,
		mockserver.WithLogging(cfg.MockServer.EnableRequestLogging),
		mockserver.WithRateLimit(cfg.MockServer.RateLimitRPS, cfg.MockServer.RateLimitBurst),
		mockserver.WithToken(cfg.MockServer.Token),
	)

	return &App{
		storage: store,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  NewServer(cfg, router),
		prefix:  prefix,
	}, nil
}

// RoutePrefix returns the path of the MCP URL, which is where the mock mounts
// its routes so that the configured client can talk to it unchanged.
func RoutePrefix(mcpURL string) (string, error) {
	u, err := url.Parse(mcpURL)
	if err != nil {
		return "", fmt.Errorf("parse MCP URL %q: %w", mcpURL, err)
	}
	return strings.TrimRight(u.Path, "/"), nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.MockServer.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.MockServer.ReadHeaderTimeout,
		WriteTimeout:      cfg.MockServer.WriteTimeout,
		IdleTimeout:       cfg.MockServer.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("mock MCP server listening",
			zap.String("addr", a.server.Addr),
			zap.String("prefix", a.prefix),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}
