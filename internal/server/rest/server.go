// Package rest exposes the device over HTTP: configuration, clock and
// Wi-Fi status, file management and the static web UI.
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/cubicd/internal/clock"
	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/dmitrijs2005/cubicd/internal/server/config"
	"github.com/dmitrijs2005/cubicd/internal/server/settings"
	"github.com/dmitrijs2005/cubicd/internal/server/upload"
	"github.com/dmitrijs2005/cubicd/internal/store"
	"github.com/dmitrijs2005/cubicd/internal/wifi"
)

type Settings interface {
	Get() settings.View
	Current() settings.Configuration
	Update(ctx context.Context, body []byte) (settings.Configuration, error)
}

type Clock interface {
	Snapshot() clock.Snapshot
}

type WiFi interface {
	Snapshot(ctx context.Context) wifi.Snapshot
}

type Uploader interface {
	Receive(ctx context.Context, name string, r io.Reader) upload.Result
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Store    store.Store
	Settings Settings
	Clock    Clock
	WiFi     WiFi
	Uploader Uploader
}

type Server struct {
	address    string
	engine     *gin.Engine
	deps       Deps
	metrics    *metrics
	registry   *prometheus.Registry
	logger     logging.Logger
	indexAsset string
	gzipAssets bool
	maxUpload  int64
	shutdown   time.Duration
}

func NewServer(cfg *config.Config, deps Deps, l logging.Logger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		address:    cfg.HTTPAddr,
		deps:       deps,
		registry:   reg,
		metrics:    newMetrics(reg),
		logger:     l.With("module", "http_server"),
		indexAsset: cfg.IndexAsset,
		gzipAssets: cfg.GzipAssets,
		maxUpload:  cfg.MaxUploadSizeMiB << 20,
		shutdown:   cfg.ShutdownTimeout,
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(s.metricsMiddleware())
	s.registerRoutes()

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		sctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(sctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
