/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the farm engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Create API handler and optionally load a scenario
  4. Start the auto stepper when an interval is given
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: farm.db)
             Use ":memory:" for in-memory database
  -scenario  Preset scenario to load at startup (default: none)
  -steps     Steps to run right after loading the scenario (default: 0)
  -interval  Auto step interval, e.g. 5s; 0 disables (default: 0)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the auto stepper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Complete the current run (saves balances)
  5. Close database connection

EXAMPLES:
  # Run the dry season farm for a year, then serve it
  ./server -scenario=dry-season -steps=12

  # Step the farm every two seconds
  ./server -db=":memory:" -scenario=common-land -interval=2s

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/farm-engine/api"
	"github.com/warp/farm-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "farm.db", "SQLite database path")
	scenario := flag.String("scenario", "", "Preset scenario to load at startup")
	steps := flag.Int("steps", 0, "Steps to run after loading the scenario")
	interval := flag.Duration("interval", 0, "Auto step interval (0 disables)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	if *scenario != "" {
		if err := api.LoadPreset(context.Background(), handler, *scenario); err != nil {
			log.Fatalf("Failed to load scenario %s: %v", *scenario, err)
		}
		if *steps > 0 {
			if _, err := handler.Advance(context.Background(), *steps); err != nil {
				log.Printf("Warning: run stopped: %v", err)
			}
		}
	}

	stepper := api.NewAutoStepper(handler)
	stepper.Enabled = *interval > 0
	if stepper.Enabled {
		stepper.Interval = *interval
	}
	stepper.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stepper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := handler.Complete(ctx); err != nil && err != api.ErrNoScenario {
		log.Printf("Warning: failed to complete run: %v", err)
	}

	log.Println("Server stopped")
}
