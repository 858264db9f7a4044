// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/torigoya/requestq/internal/api/httpapi"
	"github.com/torigoya/requestq/internal/app/broadcast"
	"github.com/torigoya/requestq/internal/app/dispatch"
	"github.com/torigoya/requestq/internal/app/filter"
	"github.com/torigoya/requestq/internal/app/stream"
	"github.com/torigoya/requestq/internal/infra/config"
	"github.com/torigoya/requestq/internal/infra/logger"
	"github.com/torigoya/requestq/internal/infra/repository"
	"github.com/torigoya/requestq/internal/infra/video"
	"github.com/torigoya/requestq/internal/infra/webhook"
)

var (
	app        = kingpin.New("requestq-server", "Song request queue server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default)
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. A separate function ensures defer
// statements execute even when returning with an error.
func run(cfg *config.Config) error {
	store, err := repository.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Error().Err(err).Msg("failed to close store")
		}
	}()

	hub := broadcast.NewHub()
	dispatcher := dispatch.New()
	resolver := video.New()

	manager := stream.NewManager(cfg, store, hub, dispatcher, resolver)
	if err := manager.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to restore stream state: %w", err)
	}
	manager.RegisterHandlers()

	webhookHandler := webhook.NewHandler(cfg.Webhook.Secret, dispatcher)
	apiHandler := httpapi.NewHandler(manager, cfg)

	mux := http.NewServeMux()
	mux.Handle("POST "+cfg.Webhook.Path, webhookHandler)
	mux.HandleFunc("GET /ws", hub.ServeWS)
	apiHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		zlog.Info().Msgf("Received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// printFilters lists registered filters for the list-filters command.
func printFilters() {
	registered := filter.GetRegistered()

	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available filters:")
	for _, name := range names {
		f := registered[name]()
		fmt.Printf("  %s\n    %s\n    codes: %v\n", f.Name(), f.Description(), f.ReturnCodes())
	}
}
