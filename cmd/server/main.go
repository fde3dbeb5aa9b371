package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/relaymail/internal/account"
	"github.com/ignite/relaymail/internal/api"
	"github.com/ignite/relaymail/internal/config"
	"github.com/ignite/relaymail/internal/mail"
	"github.com/ignite/relaymail/internal/queue"
	"github.com/ignite/relaymail/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const shutdownGrace = 30 * time.Second

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("No database configured: set database.url or DATABASE_URL")
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database unreachable: %v", err)
	}
	pingCancel()

	store := account.NewStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Mail transport
	transport, err := mail.New(cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to initialize mail transport: %v", err)
	}
	log.Printf("Mail transport: %s (from %s)", cfg.Mail.Transport, cfg.Mail.From)

	// Dispatch queue and the single delivery worker. The queue is the only
	// bridge between request handling and the transport; nothing else is
	// shared between the two sides.
	dispatch := queue.New(cfg.Queue.Capacity)
	deliveryWorker := worker.NewDeliveryWorker(dispatch, transport, cfg.Mail.SendTimeout())

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go deliveryWorker.Run(workerCtx)

	// HTTP server
	handlers := api.NewHandlers(store, dispatch, cfg.Mail.From)
	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Relay listening on %s (queue capacity %d)", addr, dispatch.Cap())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
	case err := <-errCh:
		log.Fatalf("HTTP server failed: %v", err)
	}

	// Stop admitting first, then let the worker drain what is queued.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	dispatch.Close()
	select {
	case <-deliveryWorker.Done():
		log.Printf("Delivery worker drained (%d sent, %d failed)",
			deliveryWorker.Sent(), deliveryWorker.Failed())
	case <-shutdownCtx.Done():
		log.Printf("Shutdown grace expired with %d envelopes still pending", dispatch.Len())
		workerCancel()
	}

	log.Println("Server stopped")
}
