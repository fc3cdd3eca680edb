// Package server exposes the instance manager over HTTP. The API mirrors
// the CLI: everything it does goes through the registry, supervisor, mod
// manager and import engine, never through the filesystem directly.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/db"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/mods"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/supervisor"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the HTTP server configuration
type Config struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	AllowOrigins []string `toml:"allow_origins"`
	AllowHeaders []string `toml:"allow_headers"`

	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            constants.DefaultHTTPPort,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowOrigins:    []string{"*"},
		AllowHeaders:    []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		LogLevel:        "info",
	}
}

// Server is the HTTP front of the instance manager
type Server struct {
	config    *Config
	echo      *echo.Echo
	reg       *registry.Registry
	sup       *supervisor.Supervisor
	mods      *mods.Manager
	engine    *importer.Engine
	database  *db.DB
	startTime time.Time
}

// New creates a server with all dependencies wired
func New(cfg *Config, reg *registry.Registry, sup *supervisor.Supervisor, modMgr *mods.Manager, engine *importer.Engine, database *db.DB) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	return &Server{
		config:    cfg,
		echo:      e,
		reg:       reg,
		sup:       sup,
		mods:      modMgr,
		engine:    engine,
		database:  database,
		startTime: time.Now(),
	}
}

// Handler returns the HTTP handler with middleware and routes installed.
// Tests drive the server through this.
func (s *Server) Handler() http.Handler {
	s.setupMiddleware()
	s.setupRoutes()
	return s.echo
}

// Start starts the server and blocks until shutdown
func (s *Server) Start(ctx context.Context) error {
	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logger.WithField("addr", addr).Info("Starting HTTP server")

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.echo,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		logger.Info("Shutting down server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(logger.RequestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowOrigins,
		AllowHeaders: s.config.AllowHeaders,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
}
