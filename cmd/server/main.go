/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Procure Ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env file (if present)
  2. Parse command-line flags
  3. Initialize SQLite store
  4. Create reconciliation engine and API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, env PORT)
  -db      SQLite database path (default: procure.db, env DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/procure.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/procure-ledger/api"
	"github.com/warp/procure-ledger/procure"
	"github.com/warp/procure-ledger/store/sqlite"
)

func main() {
	// .env is optional; flags still win over environment.
	_ = godotenv.Load()

	defaultPort := 8080
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		defaultPort = p
	}
	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "procure.db"
	}

	// Flags
	port := flag.Int("port", defaultPort, "HTTP server port")
	dbPath := flag.String("db", defaultDB, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize engine and handler
	engine := procure.NewEngine(store)
	handler := api.NewHandler(engine)

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
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
