package models

import (
	"strings"
	"time"
)

// BillingInfo is the full billing projection owned by the remote API. It
// is always replaced wholesale, never patched field by field, so the local
// view can never drift from what the server committed.
type BillingInfo struct {
	CurrentPlan  string    `json:"currentPlan"`
	CurrentPrice float64   `json:"currentPrice"`
	BillingCycle string    `json:"billingCycle"`
	Features     []string  `json:"features"`
	Invoices     []Invoice `json:"invoices"`

	// Contact prefill handed to the payment collector.
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Invoice struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Status string    `json:"status"`
}

// PendingOrder is a server-issued, single-use authorization for one
// payment attempt. It is consumed exactly once by a verification call and
// never reused; a retry creates a fresh order.
type PendingOrder struct {
	OrderID      string `json:"orderId"`
	Amount       int64  `json:"amount"` // smallest currency unit
	Currency     string `json:"currency"`
	KeyID        string `json:"razorpayKeyId"`
	TierName     string `json:"tierName"`
	BillingCycle string `json:"billingCycle"`
}

// CheckoutIntent is everything the external payment collector needs to be
// opened for one pending order.
type CheckoutIntent struct {
	Order   PendingOrder `json:"order"`
	Prefill struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
		Phone string `json:"phone,omitempty"`
	} `json:"prefill"`
	Description string `json:"description"`
}

// CollectorResult is the one-shot success outcome of the payment
// collector. A dismissed collector produces no result at all.
type CollectorResult struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
}

// PaymentAttempt is the audit record of one pass through the payment flow.
type PaymentAttempt struct {
	ID           int64      `json:"id"`
	OrderID      string     `json:"orderId"`
	TierName     string     `json:"tierName"`
	BillingCycle string     `json:"billingCycle"`
	Amount       int64      `json:"amount"`
	Status       string     `json:"status"` // "pending", "paid", "failed", "abandoned"
	CreatedAt    time.Time  `json:"createdAt"`
	SettledAt    *time.Time `json:"settledAt,omitempty"`
}

// Tier is one subscription plan. Zero-priced tiers (free and
// contact-sales) never enter the payment flow.
type Tier struct {
	Name         string   `json:"name"`
	MonthlyPrice int      `json:"monthlyPrice"`
	YearlyPrice  int      `json:"yearlyPrice"`
	Features     []string `json:"features"`
}

// Yearly prices carry the standard 25% annual discount.
var Tiers = []Tier{
	{Name: "Free", MonthlyPrice: 0, YearlyPrice: 0,
		Features: []string{"Only 1 video allowed", "Basic features", "Limited usage"}},
	{Name: "Starter", MonthlyPrice: 19, YearlyPrice: 171,
		Features: []string{"20 reels per month", "All Free features", "Access to all new features", "Priority support"}},
	{Name: "Pro", MonthlyPrice: 39, YearlyPrice: 351,
		Features: []string{"40 reels per month", "All Starter features", "Access to all new features", "Priority support"}},
	{Name: "Hustler", MonthlyPrice: 68, YearlyPrice: 612,
		Features: []string{"70 reels per month", "All Pro features", "Dedicated account manager", "Custom integrations", "Priority support"}},
	{Name: "Big Player", MonthlyPrice: 88, YearlyPrice: 792,
		Features: []string{"100 reels per month", "All Hustler features", "24/7 premium support", "Priority support"}},
	{Name: "Enterprise", MonthlyPrice: 0, YearlyPrice: 0,
		Features: []string{"Unlimited reels per month", "API support", "Custom pricing", "Dedicated account manager", "24/7 premium support"}},
}

// TierByName looks a tier up case-insensitively by its display name.
func TierByName(name string) (Tier, bool) {
	for _, t := range Tiers {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Tier{}, false
}

// PriceFor returns the tier's price for a billing cycle ("monthly" or
// "yearly").
func (t Tier) PriceFor(cycle string) int {
	if cycle == "yearly" {
		return t.YearlyPrice
	}
	return t.MonthlyPrice
}

// ContactOnly reports whether the tier routes to an out-of-band contact
// action instead of the payment flow.
func (t Tier) ContactOnly() bool {
	return t.MonthlyPrice == 0
}
