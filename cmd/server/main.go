package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/dmitrijs2005/cubicd/internal/server"
	"github.com/dmitrijs2005/cubicd/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Start(ctx); err != nil {
		log.Printf("failed to start: %v", err)
		os.Exit(1)
	}

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"cubicd": func(ctx context.Context) error {
				return app.Stop(ctx)
			},
		},
	)

	select {
	case code := <-wait:
		os.Exit(code)
	case err := <-app.Err():
		log.Printf("fatal: %v", err)
		stopCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
		_ = app.Stop(stopCtx)
		cancel()
		os.Exit(1)
	}
}
