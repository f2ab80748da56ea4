// ABOUTME: Main entry point for the jsonrpcd server
// ABOUTME: Loads configuration and starts the HTTP, WebSocket, and management servers

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/harper/jsonrpcd/internal/config"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/dispatch"
	rpchttp "github.com/harper/jsonrpcd/internal/http"
	"github.com/harper/jsonrpcd/internal/logger"
	"github.com/harper/jsonrpcd/internal/management"
	"github.com/harper/jsonrpcd/internal/methods"
	"github.com/harper/jsonrpcd/internal/websocket"
	"github.com/harper/jsonrpcd/internal/xdg"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (default $XDG_CONFIG_HOME/jsonrpcd/config.yaml if present)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env: %v", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.SetVerbose(*verbose || cfg.Logging.Verbose)

	if err := run(cfg); err != nil {
		log.Fatalf("jsonrpcd: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := filepath.Join(xdg.ConfigHome(), "config.yaml")
	if _, err := os.Stat(defaultPath); err == nil {
		logger.Info("using config %s", defaultPath)
		return config.Load(defaultPath)
	}
	return config.Default()
}

func run(cfg *config.Config) error {
	var database *db.DB
	if cfg.Database.Path != "" {
		var err error
		database, err = db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer database.Close()
	}

	dispatcher := dispatch.New(dispatch.NewRegistry(), dispatch.OptionsFromConfig(cfg.Dispatch))
	if err := methods.Register(dispatcher); err != nil {
		return err
	}
	if err := methods.RegisterAliases(dispatcher.Registry(), cfg.Dispatch.Aliases); err != nil {
		return err
	}

	wsServer := websocket.NewServer(dispatcher, database, websocket.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxMessageBytes: cfg.Server.MaxBodyBytes,
		MaxInFlight:     cfg.Dispatch.MaxConcurrency,
	})

	servers := []*http.Server{
		{Addr: cfg.HTTPAddr(), Handler: rpchttp.NewServer(dispatcher, database, cfg.Server.MaxBodyBytes), ReadHeaderTimeout: 10 * time.Second},
		{Addr: cfg.WebSocketAddr(), Handler: wsServer, ReadHeaderTimeout: 10 * time.Second},
		{Addr: cfg.ManagementAddr(), Handler: management.NewServer(cfg, dispatcher, database, wsServer), ReadHeaderTimeout: 10 * time.Second},
	}
	names := []string{"HTTP", "WebSocket", "management"}

	failed := make(chan error, len(servers))
	for i, srv := range servers {
		i, srv := i, srv
		go func() {
			logger.Info("%s server listening on %s", names[i], srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				failed <- err
			}
		}()
	}

	logger.Info("serving %d methods (batch limit %d, concurrency %d, timeout %s)",
		dispatcher.Registry().Len(), cfg.Dispatch.MaxBatchSize, cfg.Dispatch.MaxConcurrency, cfg.Dispatch.HandlerTimeout)

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("received signal %s, shutting down gracefully...", sig)
	case runErr = <-failed:
		logger.Error("server failed: %v", runErr)
	}

	// Give in-flight requests time to complete
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("%s server forced to shutdown: %v", names[i], err)
		}
	}

	// Shutdown does not track hijacked connections. Close the WebSocket
	// sessions before the deferred database close.
	if err := wsServer.Close(ctx); err != nil {
		logger.Warn("WebSocket connections forced to close: %v", err)
	}

	logger.Info("server stopped")
	return runErr
}
