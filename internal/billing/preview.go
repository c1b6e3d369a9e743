package billing

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/nfnt/resize"
)

const previewWidth uint = 300

// InvoicePreview renders the first page of an invoice PDF as a PNG
// thumbnail for the dashboard's billing history table.
func (s *Service) InvoicePreview(invoiceID string) ([]byte, error) {
	data, err := s.InvoicePDF(invoiceID)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open invoice PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice page: %w", err)
	}

	thumb := resize.Resize(previewWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
