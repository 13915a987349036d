package app

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"readcache/internal/cache"
	"readcache/internal/common/logging"
	"readcache/internal/config"
	"readcache/internal/handlers"
	"readcache/internal/server"
)

// App holds all the application dependencies. It is the explicit lifecycle
// context for the cache: constructed once at process start, connected once,
// shut down once. Nothing here is a package-level global, so tests can build
// a fresh App per case.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Cache   *cache.Cache[json.RawMessage]
	Sweeper *cache.Sweeper[json.RawMessage]
	Server  *server.Server
}

// New creates a new application instance with all dependencies. The remote
// connection attempt happens here, once; a failed or absent remote leaves the
// cache serving from its local tier.
func New(cfg *config.Config) *App {
	logger := logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"})

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.initializeCache()
	app.initializeSweeper()
	app.initializeServer()

	return app
}

func (app *App) initializeCache() {
	redisDB, _ := strconv.Atoi(app.Config.RedisDB)

	app.Cache = cache.New[json.RawMessage](cache.RemoteConfig{
		URL:            app.Config.RedisURL,
		Host:           app.Config.RedisHost,
		Port:           app.Config.RedisPort,
		Username:       app.Config.RedisUsername,
		Password:       app.Config.RedisPassword,
		DB:             redisDB,
		KeyPrefix:      app.Config.CacheKeyPrefix,
		ConnectTimeout: app.Config.CacheConnectTimeout,
		OpTimeout:      app.Config.CacheOpTimeout,
	}, logging.GetGlobalLogger())

	app.Cache.Connect(context.Background())

	stats := app.Cache.Stats()
	if stats.RemoteConnected {
		app.Logger.Info("Cache: remote tier connected")
	} else {
		app.Logger.Info("Cache: running local-only",
			logging.Field{Key: "connection_attempted", Value: stats.ConnectionAttempted})
	}
}

func (app *App) initializeSweeper() {
	app.Sweeper = cache.NewSweeper(
		app.Cache.Local(),
		app.Config.CacheSweepInterval,
		app.Config.CacheMaxAge,
		logging.GetGlobalLogger(),
	)
	app.Sweeper.Start()

	app.Logger.Info("Sweeper: started",
		logging.Field{Key: "interval", Value: app.Config.CacheSweepInterval},
		logging.Field{Key: "max_age", Value: app.Config.CacheMaxAge})
}

func (app *App) initializeServer() {
	router := mux.NewRouter()
	handlers.New(app.Cache, logging.GetGlobalLogger()).Register(router)
	app.Server = server.New(router, app.Config.Port)
}

// Shutdown stops the sweeper, drains the HTTP server and releases the remote
// connection.
func (app *App) Shutdown(ctx context.Context) {
	if err := app.Sweeper.Stop(ctx); err != nil {
		app.Logger.Warn("Sweeper did not stop cleanly",
			logging.Field{Key: "error", Value: err.Error()})
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("Server shutdown failed",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := app.Cache.Close(); err != nil {
		app.Logger.Warn("Cache close failed",
			logging.Field{Key: "error", Value: err.Error()})
	}

	app.Logger.Info("Shutdown complete")
}
