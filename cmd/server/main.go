/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the FieldLoop Rewards Engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags, env, .env)
  2. Initialize SQLite store
  3. Build the level schedule
  4. Create API handler with the domain pipeline wired in
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  See config/config.go for all flags and environment variables.
  Use -db=":memory:" for an in-memory database.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/rewards.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different address
  ./server -addr=":3000"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldloop/rewards-engine/api"
	"github.com/fieldloop/rewards-engine/config"
	"github.com/fieldloop/rewards-engine/ledger"
	"github.com/fieldloop/rewards-engine/scan"
	"github.com/fieldloop/rewards-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Level schedule: configured thresholds or the built-in defaults
	levels := ledger.DefaultLevelSchedule()
	if cfg.LevelThresholds != nil {
		levels, err = ledger.NewLevelSchedule(cfg.LevelThresholds)
		if err != nil {
			log.Fatalf("Invalid level thresholds: %v", err)
		}
	}

	domains := scan.Domains{
		CanonicalHost: cfg.CanonicalHost,
		ShortHost:     cfg.ShortHost,
	}

	// Initialize handler and router
	handler := api.NewHandler(store, domains, levels, cfg.JWTSecret)
	router := api.NewRouter(handler)

	if cfg.JWTSecret == "" {
		log.Println("WARNING: no JWT secret configured, auth is disabled")
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost%s", cfg.ListenAddr)
		log.Printf("📊 API available at http://localhost%s/api", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
