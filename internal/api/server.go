// Package api exposes the migration trigger over HTTP. The endpoint takes
// no parameters: which environment to migrate comes from deployment
// configuration, not the request.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/threadbridge/pkg/models"
)

// Runner executes one full migration and reports the outcome.
type Runner func(ctx context.Context) models.Report

// Server represents the API server
type Server struct {
	echo   *echo.Echo
	port   int
	runner Runner

	mu      sync.Mutex
	running bool
	last    *models.Report
}

// NewServer creates a new API server
func NewServer(port int, runner Runner) *Server {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:   e,
		port:   port,
		runner: runner,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.POST("/migrations", s.triggerMigration)
	v1.GET("/migrations/latest", s.latestMigration)
}

// triggerMigration runs the full migration synchronously and returns the
// final report. Runs are long; a second trigger while one is in flight is
// rejected rather than racing the first.
func (s *Server) triggerMigration(c echo.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "a migration is already running",
		})
	}
	s.running = true
	s.mu.Unlock()

	report := s.runner(c.Request().Context())

	s.mu.Lock()
	s.running = false
	s.last = &report
	s.mu.Unlock()

	status := http.StatusOK
	if !report.Success {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, report)
}

// latestMigration returns the most recent run's report.
func (s *Server) latestMigration(c echo.Context) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no migration has run yet",
		})
	}
	return c.JSON(http.StatusOK, last)
}

// Start begins the API server
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
