package app

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"readcache/internal/common/logging"
	"readcache/internal/config"
)

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	runtime.GOMAXPROCS(runtime.NumCPU())

	// Initialize logging
	logging.InitGlobalLogger()
	defer logging.MustSync()

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	logging.Info("Starting readcache",
		logging.Field{Key: "port", Value: cfg.Port},
		logging.Field{Key: "remote_configured", Value: cfg.RemoteConfigured()})

	app := New(cfg)

	errCh := app.Server.Start()
	logging.Info("Server started", logging.Field{Key: "addr", Value: ":" + cfg.Port})

	// Wait for a shutdown signal or a server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("Received signal, shutting down",
			logging.Field{Key: "signal", Value: sig.String()})
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed", err)
			app.Shutdown(context.Background())
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.Shutdown(ctx)

	return nil
}
