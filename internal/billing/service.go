// The billing service owns the local copy of the billing projection and
// the invoice artifacts. The projection is only ever replaced wholesale
// with what the server returned, so a failed refresh or a lying collector
// callback can never leave a half-updated view.

package billing

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/reelrocket/pulse/internal/models"
)

// RemoteAPI is the slice of the remote client the service needs.
type RemoteAPI interface {
	GetBillingInfo() (*models.BillingInfo, error)
	DownloadInvoice(invoiceID string) ([]byte, error)
}

// Service caches the billing projection and manages invoice files.
type Service struct {
	api         RemoteAPI
	invoicesDir string

	mu   sync.RWMutex
	info *models.BillingInfo
}

// NewService creates a billing service writing invoices under invoicesDir.
func NewService(api RemoteAPI, invoicesDir string) *Service {
	return &Service{api: api, invoicesDir: invoicesDir}
}

// Current returns the cached projection, or nil before the first
// successful refresh.
func (s *Service) Current() *models.BillingInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Replace swaps in a new projection. Used by the payment flow after a
// verified upgrade.
func (s *Service) Replace(info *models.BillingInfo) {
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
}

// Refresh fetches the projection from the server. A failed fetch keeps
// the cached value; the caller surfaces a non-fatal notice.
func (s *Service) Refresh() (*models.BillingInfo, error) {
	info, err := s.api.GetBillingInfo()
	if err != nil {
		return nil, fmt.Errorf("refresh billing info: %w", err)
	}
	s.Replace(info)
	return info, nil
}

// DownloadInvoice fetches one invoice PDF and writes it to the invoices
// directory, returning the saved path.
func (s *Service) DownloadInvoice(invoiceID string) (string, error) {
	data, err := s.api.DownloadInvoice(invoiceID)
	if err != nil {
		return "", fmt.Errorf("download invoice %s: %w", invoiceID, err)
	}

	if err := os.MkdirAll(s.invoicesDir, 0755); err != nil {
		return "", fmt.Errorf("create invoices directory: %w", err)
	}

	path := filepath.Join(s.invoicesDir, fmt.Sprintf("invoice_%s.pdf", invoiceID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save invoice %s: %w", invoiceID, err)
	}

	log.Printf("Invoice %s saved to %s.", invoiceID, path)
	return path, nil
}

// InvoicePDF returns the raw PDF bytes for one invoice, from the local
// copy if present, otherwise fetched from the server.
func (s *Service) InvoicePDF(invoiceID string) ([]byte, error) {
	path := filepath.Join(s.invoicesDir, fmt.Sprintf("invoice_%s.pdf", invoiceID))
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}
	return s.api.DownloadInvoice(invoiceID)
}
