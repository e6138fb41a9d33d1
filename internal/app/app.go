package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/spimexhq/oilpulse/config"
	"github.com/spimexhq/oilpulse/internal/api"
	"github.com/spimexhq/oilpulse/internal/downloader"
	"github.com/spimexhq/oilpulse/internal/service"
	"github.com/spimexhq/oilpulse/internal/storage"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Initializes the repository layer (TradingRepository).
//   - Connects the optional Redis query cache.
//   - Builds the bulletin download pipeline.
//   - Creates the HTTP handler layer to handle requests.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	// Load global configuration
	cfg := config.AppConfig

	// Connect to PostgreSQL
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	// Initialize repository layer (responsible for DB access)
	repo := storage.NewTradingRepository(db)

	// Optional read-side cache; nil client disables caching
	cache := NewRedisClient(cfg)

	// Initialize service layer (business logic)
	trading := service.NewTradingService(repo, cache, cfg.Redis.CacheTTL)
	dl := downloader.FromConfig(cfg.Spimex)
	reports := service.NewReportService(dl, repo, cfg.Spimex.ReportsDir, cfg.Spimex.MaxConcurrent)

	// Initialize HTTP handler layer (business logic to HTTP mapping)
	handler := api.NewHandler(trading, reports)

	// Setup Gin router with routes
	router := api.NewRouter(handler)

	// Register health and readiness probes
	healthHandler := api.NewHealthHandler(db.Ping)
	healthHandler.Register(router)

	// Cleanup resources on shutdown
	cleanup := func() {
		_ = db.Close()
		if cache != nil {
			_ = cache.Close()
		}
	}

	return router, cleanup, nil
}
