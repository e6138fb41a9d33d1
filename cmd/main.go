package main

//
//  @title           oilpulse API
//  @version         1.0
//  @description     SPIMEX oil products trading bulletin ingestion & query service.
//  @termsOfService  https://github.com/spimexhq/oilpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/spimexhq/oilpulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        reports
//  @tag.description Endpoints for downloading and processing trading bulletins
//
//  @tag.name        trading
//  @tag.description Endpoints for querying ingested trading results
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spimexhq/oilpulse/config"
	"github.com/spimexhq/oilpulse/internal/app"
	"github.com/spimexhq/oilpulse/internal/downloader"
	"github.com/spimexhq/oilpulse/internal/logger"
	"github.com/spimexhq/oilpulse/internal/parser"
	"github.com/spimexhq/oilpulse/internal/storage"
)

const dateLayout = "2006-01-02"

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// parseDateFlag parses a YYYY-MM-DD flag value, terminating on bad input.
func parseDateFlag(name, value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		logger.L().Fatal().Str("flag", name).Str("value", value).Msg("expected YYYY-MM-DD")
	}
	return t
}

// main is the entry point of the oilpulse application.
//
// Modes (selected via --mode flag):
//   - download: Discovers and saves bulletin files for a date range.
//   - process:  Parses saved bulletin files and persists records to Postgres.
//   - migrate:  Applies pending schema migrations and exits.
//   - api:      Starts the REST API exposing the pipeline and trading queries.
//
// Flags:
//   - --mode:  Execution mode. Default: "api".
//   - --start: Start date for download mode (YYYY-MM-DD). Default: "2023-01-01".
//   - --end:   End date for download mode (YYYY-MM-DD). Default: today.
//   - --port:  Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: download, process, migrate or api")
	start := flag.String("start", "2023-01-01", "Start date for download mode (YYYY-MM-DD)")
	end := flag.String("end", time.Now().UTC().Format(dateLayout), "End date for download mode (YYYY-MM-DD)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "download":
		logger.L().Info().Str("start", *start).Str("end", *end).Msg("running bulletin download")

		startDate := parseDateFlag("start", *start)
		endDate := parseDateFlag("end", *end)
		if endDate.Before(startDate) {
			logger.L().Fatal().Msg("end date precedes start date")
		}

		dl := downloader.FromConfig(config.AppConfig.Spimex)
		files, err := dl.GetAndSaveReports(ctx, startDate, endDate)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("download failed")
		}
		logger.L().Info().Int("files", len(files)).Msg("download completed")

	case "process":
		logger.L().Info().Str("dir", config.AppConfig.Spimex.ReportsDir).Msg("running bulletin processing")

		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		repo := storage.NewTradingRepository(db)
		total, err := parser.ProcessDirectory(ctx, config.AppConfig.Spimex.ReportsDir, repo, config.AppConfig.Spimex.MaxConcurrent)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("processing failed")
		}
		logger.L().Info().Int("records", total).Msg("processing completed")

	case "migrate":
		logger.L().Info().Msg("applying migrations")

		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		if err := app.RunMigrations(db); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("migrations applied")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
