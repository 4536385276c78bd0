// Package server exposes the namespace over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bucketfs/pkg/log"
	"bucketfs/pkg/namespace"
)

const (
	shutdownTimeout = 10
	syncTimeout     = 30

	// Request headers carrying the caller scope. Authentication happens upstream.
	HeaderProject   = "X-Project-ID"
	HeaderPrincipal = "X-Principal"
)

// Options configure the HTTP server.
type Options struct {
	Version string
	// DataDir is reported by the status endpoint.
	DataDir string
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// SyncOnShutdown flushes filesystem buffers after the server stops.
	SyncOnShutdown bool
}

// Server routes HTTP requests to a namespace service.
type Server struct {
	echo    *echo.Echo
	service *namespace.Service
	opts    Options
	started time.Time
}

// New builds a server with all routes registered.
func New(service *namespace.Service, opts Options) *Server {
	s := &Server{
		echo:    echo.New(),
		service: service,
		opts:    opts,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start(addr string) error {
	go func() {
		log.Info().
			Str("addr", addr).
			Str("data_dir", s.opts.DataDir).
			Str("version", s.opts.Version).
			Bool("metrics", s.opts.Gatherer != nil).
			Msg("Starting bucketfs server")

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.Shutdown()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}
	log.Info().Msg("Server gracefully stopped")

	if s.opts.SyncOnShutdown {
		syncCtx, syncCancel := context.WithTimeout(context.Background(), syncTimeout*time.Second)
		defer syncCancel()

		if err := exec.CommandContext(syncCtx, "sync").Run(); err != nil {
			log.Warn().Err(err).Msg("Sync command failed")
		} else {
			log.Info().Msg("Filesystem buffers flushed successfully")
		}
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	// Downloads must return the stored bytes unchanged, so no global gzip.
	s.echo.Use(middleware.Recover())

	s.echo.GET("/status", s.getStatus)
	if s.opts.Gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.echo.Group("/api/v1")
	api.GET("/buckets", s.listBuckets)
	api.POST("/buckets", s.createBucket)
	api.GET("/buckets/:bucket", s.getBucket)
	api.PATCH("/buckets/:bucket", s.updateBucket)
	api.DELETE("/buckets/:bucket", s.deleteBucket)

	api.GET("/buckets/:bucket/list", s.list)
	api.GET("/buckets/:bucket/tree", s.tree)
	api.GET("/buckets/:bucket/tree/expand", s.expand)

	api.GET("/buckets/:bucket/folders", s.listFolders)
	api.POST("/buckets/:bucket/folders", s.createFolder)
	api.DELETE("/buckets/:bucket/folders", s.deleteFolder)

	api.GET("/buckets/:bucket/files", s.listFiles)
	api.POST("/buckets/:bucket/files", s.uploadFile)
	api.GET("/buckets/:bucket/files/:id", s.getFileInfo)
	api.GET("/buckets/:bucket/files/:id/download", s.downloadFile)
	api.POST("/buckets/:bucket/files/:id/move", s.moveFile)
	api.DELETE("/buckets/:bucket/files/:id", s.deleteFile)

	api.POST("/admin/reconcile", s.reconcile)
}
