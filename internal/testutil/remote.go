package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reelrocket/pulse/internal/models"
)

// MockRemote is a stand-in for the ReelRocket API. Tests mutate its fields
// to shape the responses; the zero state serves a running job and a free
// plan.
type MockRemote struct {
	Server *httptest.Server

	mu      sync.Mutex
	video   models.VideoStatus
	billing models.BillingInfo

	FailVerify   bool
	RecreateCnt  int
	VerifyCalled int
}

// SetVideo replaces the canned video status served for any job ID.
func (m *MockRemote) SetVideo(v models.VideoStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.video = v
}

// SetBilling replaces the canned billing projection.
func (m *MockRemote) SetBilling(b models.BillingInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.billing = b
}

// SetupMockRemote starts a test server that speaks the remote API's wire
// format. It is shut down automatically when the test completes.
func SetupMockRemote(t *testing.T) *MockRemote {
	t.Helper()

	m := &MockRemote{
		video: models.VideoStatus{
			ID:              "job-1",
			Topic:           "How to make pasta",
			Script:          "draft",
			ScriptGenerated: true,
			CreatedAt:       time.Now().Add(-10 * time.Minute),
		},
		billing: models.BillingInfo{
			CurrentPlan:  "Free",
			BillingCycle: "monthly",
			Name:         "Test User",
			Email:        "test@example.com",
			Invoices: []models.Invoice{
				{ID: "inv_1", Date: time.Now(), Amount: 19, Status: "paid"},
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/video/private/recreate/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.RecreateCnt++
		m.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"message": "recreated"})
	})
	mux.HandleFunc("/api/video/private/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		video := m.video
		m.mu.Unlock()
		video.ID = strings.TrimPrefix(r.URL.Path, "/api/video/private/")
		json.NewEncoder(w).Encode(map[string]any{"video": video})
	})
	mux.HandleFunc("/api/billing", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		json.NewEncoder(w).Encode(m.billing)
	})
	mux.HandleFunc("/api/billing/create-order", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TierName     string `json:"tierName"`
			BillingCycle string `json:"billingCycle"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		tier, ok := models.TierByName(req.TierName)
		if !ok {
			http.Error(w, "unknown tier", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(models.PendingOrder{
			OrderID:  "order_test_1",
			Amount:   int64(tier.PriceFor(req.BillingCycle)) * 100,
			Currency: "USD",
			KeyID:    "rzp_test_key",
		})
	})
	mux.HandleFunc("/api/billing/verify-payment", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.VerifyCalled++
		fail := m.FailVerify
		billing := m.billing
		m.mu.Unlock()
		if fail {
			http.Error(w, "signature mismatch", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"billingInfo": billing})
	})
	mux.HandleFunc("/api/billing/invoice/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 test invoice"))
	})

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}
