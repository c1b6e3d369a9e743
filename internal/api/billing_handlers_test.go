package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reelrocket/pulse/internal/models"
	"github.com/reelrocket/pulse/internal/testutil"
)

func TestGetBilling(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	router := server.Router()

	// First request fetches from the remote API and fills the cache.
	req, _ := http.NewRequest("GET", "/api/billing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	var info models.BillingInfo
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info.CurrentPlan != "Free" {
		t.Errorf("expected plan Free, got %q", info.CurrentPlan)
	}

	req, _ = http.NewRequest("POST", "/api/billing/refresh", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("refresh returned wrong status code: got %v want %v", status, http.StatusOK)
	}
}

func TestUpgradeFlow(t *testing.T) {
	server, _, remote := testutil.SetupTestServer(t)
	router := server.Router()

	// Prime the billing cache so the checkout intent carries prefill data.
	req, _ := http.NewRequest("GET", "/api/billing", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	t.Run("Begin Upgrade", func(t *testing.T) {
		body := strings.NewReader(`{"tierName": "Pro", "billingCycle": "monthly"}`)
		req, _ := http.NewRequest("POST", "/api/billing/upgrade", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v, body %s", status, http.StatusOK, rr.Body.String())
		}
		var intent models.CheckoutIntent
		if err := json.NewDecoder(rr.Body).Decode(&intent); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if intent.Order.Amount != 3900 {
			t.Errorf("expected order amount 3900, got %d", intent.Order.Amount)
		}
		if intent.Prefill.Email != "test@example.com" {
			t.Errorf("expected prefill email from billing info, got %q", intent.Prefill.Email)
		}
	})

	t.Run("Second Upgrade Rejected", func(t *testing.T) {
		body := strings.NewReader(`{"tierName": "Starter"}`)
		req, _ := http.NewRequest("POST", "/api/billing/upgrade", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusConflict {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
		}
	})

	t.Run("Callback With Wrong Order", func(t *testing.T) {
		body := strings.NewReader(`{"paymentId": "pay_1", "orderId": "order_other", "signature": "sig"}`)
		req, _ := http.NewRequest("POST", "/api/billing/payment-callback", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusConflict {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
		}
	})

	t.Run("Callback Commits Plan", func(t *testing.T) {
		remote.SetBilling(models.BillingInfo{CurrentPlan: "Pro", BillingCycle: "monthly"})
		body := strings.NewReader(`{"paymentId": "pay_1", "orderId": "order_test_1", "signature": "sig"}`)
		req, _ := http.NewRequest("POST", "/api/billing/payment-callback", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v, body %s", status, http.StatusOK, rr.Body.String())
		}
		var payload struct {
			BillingInfo models.BillingInfo `json:"billingInfo"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if payload.BillingInfo.CurrentPlan != "Pro" {
			t.Errorf("expected committed plan Pro, got %q", payload.BillingInfo.CurrentPlan)
		}
	})

	t.Run("Attempts Recorded", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/billing/attempts", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var attempts []models.PaymentAttempt
		if err := json.NewDecoder(rr.Body).Decode(&attempts); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(attempts) != 1 {
			t.Fatalf("expected one recorded attempt, got %d", len(attempts))
		}
		if attempts[0].Status != "paid" {
			t.Errorf("expected attempt settled as paid, got %q", attempts[0].Status)
		}
	})
}

func TestUpgradeContactSales(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	router := server.Router()

	body := strings.NewReader(`{"tierName": "Enterprise"}`)
	req, _ := http.NewRequest("POST", "/api/billing/upgrade", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusUnprocessableEntity {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnprocessableEntity)
	}
}

func TestPaymentVerificationFailure(t *testing.T) {
	server, _, remote := testutil.SetupTestServer(t)
	router := server.Router()
	remote.FailVerify = true

	body := strings.NewReader(`{"tierName": "Starter", "billingCycle": "yearly"}`)
	req, _ := http.NewRequest("POST", "/api/billing/upgrade", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("failed to begin upgrade: %d", rr.Code)
	}

	body = strings.NewReader(`{"paymentId": "pay_1", "orderId": "order_test_1", "signature": "bad"}`)
	req, _ = http.NewRequest("POST", "/api/billing/payment-callback", body)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusPaymentRequired {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusPaymentRequired)
	}

	// The cached projection is untouched by a failed verification.
	req, _ = http.NewRequest("GET", "/api/billing", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var info models.BillingInfo
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info.CurrentPlan != "Free" {
		t.Errorf("expected plan to remain Free after failed verification, got %q", info.CurrentPlan)
	}
}

func TestAbandonWithoutPending(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	router := server.Router()

	req, _ := http.NewRequest("POST", "/api/billing/abandon", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}
}

func TestDownloadInvoice(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	router := server.Router()

	req, _ := http.NewRequest("GET", "/api/billing/invoice/inv_1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	if contentType := rr.Header().Get("Content-Type"); contentType != "application/pdf" {
		t.Errorf("handler returned wrong content type: got %v want %v", contentType, "application/pdf")
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Errorf("expected a PDF body, got %q", rr.Body.String())
	}
}
