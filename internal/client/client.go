// HTTP client for the ReelRocket API. Every call carries the bearer
// credential from the injected token source; request and response bodies
// are JSON except the invoice download, which returns the raw PDF.

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelrocket/pulse/internal/credential"
	"github.com/reelrocket/pulse/internal/models"
)

// Client talks to the remote video and billing API.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  credential.TokenSource
}

// New creates a new API client for the given base URL.
func New(baseURL string, tokens credential.TokenSource) *Client {
	return &Client{
		http:    &http.Client{Timeout: 20 * time.Second},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

func (c *Client) newRequest(method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON executes the request and decodes a 2xx JSON response into out.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

// GetVideo fetches the current status of one video job.
func (c *Client) GetVideo(id string) (*models.VideoStatus, error) {
	req, err := c.newRequest("GET", "/api/video/private/"+id, nil)
	if err != nil {
		return nil, err
	}

	var apiResponse struct {
		Video models.VideoStatus `json:"video"`
	}
	if err := c.doJSON(req, &apiResponse); err != nil {
		return nil, err
	}
	return &apiResponse.Video, nil
}

// RecreateVideo asks the pipeline to restart a failed or stalled job. The
// server clears its own error and stage state; only an acknowledgement
// comes back.
func (c *Client) RecreateVideo(id string) error {
	req, err := c.newRequest("POST", "/api/video/private/recreate/"+id, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// GetBillingInfo fetches the full billing projection.
func (c *Client) GetBillingInfo() (*models.BillingInfo, error) {
	req, err := c.newRequest("GET", "/api/billing", nil)
	if err != nil {
		return nil, err
	}

	var info models.BillingInfo
	if err := c.doJSON(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateOrder opens a server-side pending order for a priced upgrade.
func (c *Client) CreateOrder(tierName, billingCycle string) (*models.PendingOrder, error) {
	req, err := c.newRequest("POST", "/api/billing/create-order", map[string]string{
		"tierName":     tierName,
		"billingCycle": billingCycle,
	})
	if err != nil {
		return nil, err
	}

	var order models.PendingOrder
	if err := c.doJSON(req, &order); err != nil {
		return nil, err
	}
	order.TierName = tierName
	order.BillingCycle = billingCycle
	return &order, nil
}

// VerifyPayment submits the collector's result for server-side
// verification. The three values travel together; the server checks the
// signature before committing the plan change.
func (c *Client) VerifyPayment(result models.CollectorResult) (*models.BillingInfo, error) {
	req, err := c.newRequest("POST", "/api/billing/verify-payment", map[string]string{
		"paymentId": result.PaymentID,
		"orderId":   result.OrderID,
		"signature": result.Signature,
	})
	if err != nil {
		return nil, err
	}

	var apiResponse struct {
		BillingInfo models.BillingInfo `json:"billingInfo"`
	}
	if err := c.doJSON(req, &apiResponse); err != nil {
		return nil, err
	}
	return &apiResponse.BillingInfo, nil
}

// DownloadInvoice fetches the PDF artifact for one invoice.
func (c *Client) DownloadInvoice(invoiceID string) ([]byte, error) {
	req, err := c.newRequest("GET", "/api/billing/invoice/"+invoiceID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invoice download: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
