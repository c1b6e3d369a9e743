package client

// It uses a mock HTTP server to avoid making real network requests.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reelrocket/pulse/internal/credential"
	"github.com/reelrocket/pulse/internal/models"
)

// setupTestServer creates a mock HTTP server to respond to API calls.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/video/private/vid-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":false,"video":{"ID":"vid-1","script":"a script","scriptGenerated":true,"progress":20,"CreatedAt":"2025-01-01T00:00:00Z"}}`)
	})

	mux.HandleFunc("/api/video/private/recreate/vid-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{"error":false}`)
	})

	mux.HandleFunc("/api/billing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"currentPlan":"Free","currentPrice":0,"billingCycle":"monthly","features":["Basic features"],"invoices":[]}`)
	})

	mux.HandleFunc("/api/billing/create-order", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["tierName"] != "Pro" || body["billingCycle"] != "monthly" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"razorpayKeyId":"rzp_test_key","amount":3900,"currency":"USD","orderId":"o1"}`)
	})

	mux.HandleFunc("/api/billing/verify-payment", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["paymentId"] != "p1" || body["orderId"] != "o1" || body["signature"] != "s1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"billingInfo":{"currentPlan":"Pro","currentPrice":39,"billingCycle":"monthly","features":["40 reels per month"],"invoices":[]}}`)
	})

	mux.HandleFunc("/api/billing/invoice/inv-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	})

	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	server := setupTestServer(t)
	defer server.Close()

	c := New(server.URL, credential.Static("test-token"))

	t.Run("GetVideo", func(t *testing.T) {
		video, err := c.GetVideo("vid-1")
		if err != nil {
			t.Fatalf("GetVideo() failed: %v", err)
		}
		if !video.ScriptGenerated {
			t.Error("Expected scriptGenerated to be true")
		}
		if video.Progress != 20 {
			t.Errorf("Expected progress 20, got %d", video.Progress)
		}
		if video.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be parsed")
		}
	})

	t.Run("RecreateVideo", func(t *testing.T) {
		if err := c.RecreateVideo("vid-1"); err != nil {
			t.Fatalf("RecreateVideo() failed: %v", err)
		}
	})

	t.Run("GetBillingInfo", func(t *testing.T) {
		info, err := c.GetBillingInfo()
		if err != nil {
			t.Fatalf("GetBillingInfo() failed: %v", err)
		}
		if info.CurrentPlan != "Free" {
			t.Errorf("Expected plan 'Free', got '%s'", info.CurrentPlan)
		}
	})

	t.Run("CreateOrder", func(t *testing.T) {
		order, err := c.CreateOrder("Pro", "monthly")
		if err != nil {
			t.Fatalf("CreateOrder() failed: %v", err)
		}
		if order.OrderID != "o1" {
			t.Errorf("Expected order id 'o1', got '%s'", order.OrderID)
		}
		if order.Amount != 3900 {
			t.Errorf("Expected amount 3900, got %d", order.Amount)
		}
		if order.TierName != "Pro" || order.BillingCycle != "monthly" {
			t.Error("Expected tier/cycle to be stamped onto the order")
		}
	})

	t.Run("VerifyPayment", func(t *testing.T) {
		info, err := c.VerifyPayment(models.CollectorResult{PaymentID: "p1", OrderID: "o1", Signature: "s1"})
		if err != nil {
			t.Fatalf("VerifyPayment() failed: %v", err)
		}
		if info.CurrentPlan != "Pro" {
			t.Errorf("Expected plan 'Pro', got '%s'", info.CurrentPlan)
		}
	})

	t.Run("DownloadInvoice", func(t *testing.T) {
		data, err := c.DownloadInvoice("inv-1")
		if err != nil {
			t.Fatalf("DownloadInvoice() failed: %v", err)
		}
		if len(data) == 0 {
			t.Error("Expected PDF bytes, got none")
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		bad := New(server.URL, credential.Static("wrong"))
		if _, err := bad.GetVideo("vid-1"); err == nil {
			t.Fatal("Expected an error for a rejected credential, got nil")
		}
	})
}
