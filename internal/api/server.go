// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/reelrocket/pulse/internal/billing"
	"github.com/reelrocket/pulse/internal/core"
	"github.com/reelrocket/pulse/internal/payment"
	"github.com/reelrocket/pulse/internal/poller"
	"github.com/reelrocket/pulse/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app      *core.App
	db       *sql.DB
	store    *store.Store
	registry *poller.Registry
	billing  *billing.Service
	flow     *payment.Flow
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	storeInstance := store.New(app.DB)
	interval := time.Duration(app.Config.PollInterval) * time.Second
	billingSvc := billing.NewService(app.Client, app.Config.Invoices.Path)
	return &Server{
		app:      app,
		db:       app.DB,
		store:    storeInstance,
		registry: poller.NewRegistry(app.Client, app.WsHub, storeInstance, interval),
		billing:  billingSvc,
		flow:     payment.NewFlow(app.Client, billingSvc, storeInstance),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// Registry returns the poller registry so the entrypoint can resume
// persisted watches on startup.
func (s *Server) Registry() *poller.Registry {
	return s.registry
}

// Billing returns the billing service for the background refresh job.
func (s *Server) Billing() *billing.Service {
	return s.billing
}

// Shutdown stops all active pollers.
func (s *Server) Shutdown() {
	s.registry.StopAll()
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/version", s.handleGetVersion)

	r.Route("/api", func(r chi.Router) {
		// Watched job routes
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleWatchJob)
		r.Delete("/jobs/{jobID}", s.handleUnwatchJob)
		r.Get("/jobs/{jobID}/status", s.handleGetJobStatus)
		r.Post("/jobs/{jobID}/recreate", s.handleRecreateJob)

		// Billing and payment routes
		r.Get("/billing", s.handleGetBilling)
		r.Post("/billing/refresh", s.handleRefreshBilling)
		r.Post("/billing/upgrade", s.handleBeginUpgrade)
		r.Post("/billing/payment-callback", s.handlePaymentCallback)
		r.Post("/billing/abandon", s.handleAbandonPayment)
		r.Get("/billing/attempts", s.handleListPaymentAttempts)
		r.Get("/billing/invoice/{invoiceID}", s.handleDownloadInvoice)
		r.Get("/billing/invoice/{invoiceID}/preview", s.handleInvoicePreview)
	})

	// WebSocket route for live progress updates
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}
