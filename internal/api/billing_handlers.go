// Handlers for the billing and payment endpoints.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reelrocket/pulse/internal/models"
	"github.com/reelrocket/pulse/internal/payment"
)

// handleGetBilling serves the cached billing projection, fetching it on
// first use.
func (s *Server) handleGetBilling(w http.ResponseWriter, r *http.Request) {
	info := s.billing.Current()
	if info == nil {
		var err error
		info, err = s.billing.Refresh()
		if err != nil {
			RespondWithError(w, http.StatusBadGateway, "Failed to fetch billing info: "+err.Error())
			return
		}
	}
	RespondWithJSON(w, http.StatusOK, info)
}

func (s *Server) handleRefreshBilling(w http.ResponseWriter, r *http.Request) {
	info, err := s.billing.Refresh()
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to refresh billing info: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, info)
}

// handleBeginUpgrade opens a pending order and returns the checkout intent
// for the payment collector.
func (s *Server) handleBeginUpgrade(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TierName     string `json:"tierName"`
		BillingCycle string `json:"billingCycle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.BillingCycle == "" {
		payload.BillingCycle = "monthly"
	}

	intent, err := s.flow.BeginUpgrade(payload.TierName, payload.BillingCycle)
	switch {
	case errors.Is(err, payment.ErrContactSales):
		RespondWithError(w, http.StatusUnprocessableEntity, "This plan is arranged through sales, not checkout")
		return
	case errors.Is(err, payment.ErrUpgradeInProgress):
		RespondWithError(w, http.StatusConflict, "Another upgrade is already in progress")
		return
	case err != nil:
		RespondWithError(w, http.StatusBadGateway, "Failed to start upgrade: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, intent)
}

// handlePaymentCallback receives the collector's success result and runs
// server-side verification before committing the new plan.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var result models.CollectorResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	info, err := s.flow.CompleteCollection(result)
	switch {
	case errors.Is(err, payment.ErrNoPendingCollection):
		RespondWithError(w, http.StatusConflict, "No payment collection is pending")
		return
	case errors.Is(err, payment.ErrOrderMismatch):
		RespondWithError(w, http.StatusConflict, "Payment result does not match the pending order")
		return
	case errors.Is(err, payment.ErrVerificationFailed):
		RespondWithError(w, http.StatusPaymentRequired, "Payment could not be verified")
		return
	case err != nil:
		RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"billingInfo": info})
}

func (s *Server) handleAbandonPayment(w http.ResponseWriter, r *http.Request) {
	if err := s.flow.AbandonCollection(); err != nil {
		RespondWithError(w, http.StatusConflict, "No payment collection is pending")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

func (s *Server) handleListPaymentAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.store.ListPaymentAttempts()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list payment attempts")
		return
	}
	RespondWithJSON(w, http.StatusOK, attempts)
}

// handleDownloadInvoice serves the invoice PDF, fetching and caching it
// locally on first request.
func (s *Server) handleDownloadInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")
	pdf, err := s.billing.InvoicePDF(invoiceID)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to fetch invoice: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice_"+invoiceID+".pdf")
	w.Write(pdf)
}

// handleInvoicePreview renders the first page of the invoice as a PNG
// thumbnail.
func (s *Server) handleInvoicePreview(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")
	png, err := s.billing.InvoicePreview(invoiceID)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to render invoice preview: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
