/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rent ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Create billing engine (with Kafka publisher when brokers configured)
  4. Configure HTTP router and start the billing sweep
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: rentledger.db)
           Use ":memory:" for in-memory database
  -sweep   Billing sweep interval (default: 1h, 0 disables)

ENVIRONMENT:
  KAFKA_BROKERS   Comma-separated broker list. When unset, payment
                  events are not published.
  PORT            Overrides -port when the flag is left at its default.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the billing sweep, close the publisher and database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/rentledger.db"

  # Run with in-memory database and no sweep
  ./server -db=":memory:" -sweep=0

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Billing sweep
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
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/rent-ledger/api"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/events/kafka"
	"github.com/warp/rent-ledger/store/sqlite"
)

func main() {
	// .env is optional; flags and real env win.
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "rentledger.db", "SQLite database path")
	sweepInterval := flag.Duration("sweep", time.Hour, "billing sweep interval (0 disables)")
	flag.Parse()

	if *port == 8080 {
		if env := os.Getenv("PORT"); env != "" {
			if p, err := strconv.Atoi(env); err == nil {
				*port = p
			}
		}
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Optional event publisher
	var publisher billing.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kp := kafka.NewPublisher(strings.Split(brokers, ","))
		defer kp.Close()
		publisher = kp
		log.Printf("Publishing payment events to %s", brokers)
	}

	// Initialize engine and handler
	engine := billing.NewEngine(store, publisher)
	handler := api.NewHandler(store, engine)

	// Create router
	router := api.NewRouter(handler)

	// Background accrual sweep
	sweep := api.NewBillingSweep(store, engine)
	if *sweepInterval > 0 {
		sweep.CheckInterval = *sweepInterval
		sweep.Start()
		defer sweep.Stop()
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
