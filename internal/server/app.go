// Package server wires the device service together: persistent store,
// clock, configuration manager, Wi-Fi monitor, upload handler and the HTTP
// router, and manages their lifecycle.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/cubicd/internal/clock"
	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/dmitrijs2005/cubicd/internal/server/config"
	"github.com/dmitrijs2005/cubicd/internal/server/rest"
	"github.com/dmitrijs2005/cubicd/internal/server/settings"
	"github.com/dmitrijs2005/cubicd/internal/server/upload"
	"github.com/dmitrijs2005/cubicd/internal/store"
	"github.com/dmitrijs2005/cubicd/internal/wifi"
)

type App struct {
	config *config.Config
	logger logging.Logger

	store    store.Store
	clock    *clock.Clock
	settings *settings.Manager
	server   *rest.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
	errc   chan error
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(c, os.Stdout), nil
}

func newApp(c *config.Config, logOut io.Writer) *App {
	return &App{
		config: c,
		logger: logging.New(logOut, c.LogLevel, c.LogFormat),
		errc:   make(chan error, 1),
	}
}

// Start mounts the store, loads and applies the device configuration,
// seeds first-boot documents and starts the HTTP server and NTP sync loop
// in the background.
func (app *App) Start(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	st, err := store.Open(ctx, storeOptions(app.config), app.logger)
	if err != nil {
		return fmt.Errorf("store init error: %w", err)
	}
	app.store = st

	app.clock = clock.New(app.logger.With("module", "clock"))

	defaults := settings.Configuration{Timezone: app.config.DefaultTimezone, NTP: app.config.DefaultNTP}
	app.settings = settings.NewManager(st, app.clock, defaults, app.logger.With("module", "settings"))
	app.settings.Load(ctx)
	app.settings.ApplyTimezone(ctx)
	app.settings.ApplyNTP(ctx)

	if err := app.settings.EnsureDefaults(ctx); err != nil {
		app.logger.Warn(ctx, "first-boot documents not written", "error", err)
	}

	app.server = rest.NewServer(app.config, rest.Deps{
		Store:    st,
		Settings: app.settings,
		Clock:    app.clock,
		WiFi:     wifi.NewMonitor(app.config.WiFiInterface, app.logger.With("module", "wifi")),
		Uploader: upload.NewHandler(st, app.logger.With("module", "upload")),
	}, app.logger)

	runCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.wg.Add(2)
	go func() {
		defer app.wg.Done()
		app.clock.Run(runCtx, app.config.NTPSyncInterval)
	}()
	go func() {
		defer app.wg.Done()
		if err := app.server.Run(runCtx); err != nil {
			app.logger.Error(runCtx, "HTTP server failed", "error", err)
			app.errc <- err
		}
	}()

	return nil
}

// Err delivers a fatal error from a background component.
func (app *App) Err() <-chan error {
	return app.errc
}

// Stop cancels the background components, waits for them within ctx and
// closes the store.
func (app *App) Stop(ctx context.Context) error {
	if app.cancel == nil {
		return nil
	}
	app.cancel()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("stop: %w", ctx.Err())
	}

	app.logger.Info(ctx, "App stopped")
	return app.store.Close()
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		DatabaseDSN: cfg.DatabaseDSN,
		S3: store.S3Options{
			User:     cfg.S3RootUser,
			Password: cfg.S3RootPassword,
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3BaseEndpoint,
			Prefix:   cfg.S3Prefix,
		},
	}
}
