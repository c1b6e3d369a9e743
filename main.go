package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelrocket/pulse/internal/api"
	"github.com/reelrocket/pulse/internal/core"
	"github.com/reelrocket/pulse/internal/jobs"
)

const version = "0.1.0"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Setup the API server
	server := api.NewServer(app)
	defer server.Shutdown()

	// Resume watching jobs that were being tracked before the last
	// shutdown.
	if err := server.Registry().Resume(); err != nil {
		log.Printf("Warning: could not resume watched jobs: %v", err)
	}

	// Warm the billing cache so the dashboard has data on first paint.
	go jobs.RunBillingRefresh(server.Billing())

	// Start the background job scheduler.
	scheduler := jobs.StartJobs(app.Config, server.Billing(), server.Store())
	defer scheduler.Stop()

	addr := fmt.Sprintf(":%d", app.Config.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting pulse daemon on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
