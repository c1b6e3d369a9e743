// The payment flow drives the verify-then-commit handshake for plan
// upgrades. The external collector's callback is unauthenticated from our
// perspective, so the local billing view changes only after the server
// has verified the signature.

package payment

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/reelrocket/pulse/internal/models"
)

// State identifies where in the handshake the current attempt is.
type State string

const (
	StateIdle         State = "idle"
	StateOrderPending State = "order_pending"
	StateCollecting   State = "collecting_payment"
	StateVerifying    State = "verifying"
)

var (
	// ErrUpgradeInProgress rejects a second upgrade while one is mid-flight.
	ErrUpgradeInProgress = errors.New("an upgrade attempt is already in progress")
	// ErrContactSales marks tiers that never enter the payment flow.
	ErrContactSales = errors.New("tier is not self-serve, contact sales")
	// ErrNoPendingCollection rejects a collector result when nothing is being collected.
	ErrNoPendingCollection = errors.New("no payment collection is pending")
	// ErrOrderMismatch rejects a collector result for a different order.
	ErrOrderMismatch = errors.New("collector result does not match the pending order")
	// ErrVerificationFailed is terminal for an attempt. Replaying the same
	// signature is unsafe, so the caller must not retry; a fresh order is
	// required.
	ErrVerificationFailed = errors.New("payment verification failed")
)

// BillingAPI is the slice of the remote client the flow needs.
type BillingAPI interface {
	CreateOrder(tierName, billingCycle string) (*models.PendingOrder, error)
	VerifyPayment(result models.CollectorResult) (*models.BillingInfo, error)
}

// BillingView owns the local billing projection the flow commits into.
type BillingView interface {
	Current() *models.BillingInfo
	Replace(info *models.BillingInfo)
}

// AttemptLog records payment attempts for the dashboard's audit trail.
// May be nil.
type AttemptLog interface {
	RecordPaymentAttempt(orderID, tierName, billingCycle string, amount int64) (int64, error)
	SettlePaymentAttempt(id int64, status string, at time.Time) error
}

// Flow is the payment authorization state machine. One attempt at a time.
type Flow struct {
	api     BillingAPI
	billing BillingView
	log     AttemptLog

	mu        sync.Mutex
	state     State
	order     *models.PendingOrder
	attemptID int64
}

// NewFlow creates an idle flow.
func NewFlow(api BillingAPI, billing BillingView, attempts AttemptLog) *Flow {
	return &Flow{api: api, billing: billing, log: attempts, state: StateIdle}
}

// State returns the current state of the flow.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// BeginUpgrade creates a server-side pending order for a priced tier and
// returns the checkout intent the external collector is opened with.
// Zero-priced tiers never create an order; they route to an out-of-band
// contact action instead.
func (f *Flow) BeginUpgrade(tierName, billingCycle string) (*models.CheckoutIntent, error) {
	tier, ok := models.TierByName(tierName)
	if !ok {
		return nil, fmt.Errorf("unknown tier %q", tierName)
	}
	if tier.ContactOnly() {
		return nil, ErrContactSales
	}

	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, ErrUpgradeInProgress
	}
	f.state = StateOrderPending
	f.mu.Unlock()

	order, err := f.api.CreateOrder(tier.Name, billingCycle)
	if err != nil {
		// Order creation failed; nothing partial is kept and the user
		// may retry freely.
		f.mu.Lock()
		f.state = StateIdle
		f.mu.Unlock()
		return nil, fmt.Errorf("create order: %w", err)
	}

	var attemptID int64
	if f.log != nil {
		attemptID, err = f.log.RecordPaymentAttempt(order.OrderID, order.TierName, order.BillingCycle, order.Amount)
		if err != nil {
			log.Printf("Failed to record payment attempt for order %s: %v", order.OrderID, err)
		}
	}

	intent := &models.CheckoutIntent{
		Order:       *order,
		Description: fmt.Sprintf("Upgrade to %s Plan (%s)", order.TierName, order.BillingCycle),
	}
	if info := f.billing.Current(); info != nil {
		intent.Prefill.Name = info.Name
		intent.Prefill.Email = info.Email
		intent.Prefill.Phone = info.Phone
	}

	f.mu.Lock()
	f.state = StateCollecting
	f.order = order
	f.attemptID = attemptID
	f.mu.Unlock()

	log.Printf("Pending order %s created for %s (%s).", order.OrderID, order.TierName, order.BillingCycle)
	return intent, nil
}

// CompleteCollection submits the collector's result for verification.
// Only a verified success replaces the billing projection, and it is
// replaced wholesale with the server's value, never computed locally from
// the selected tier.
func (f *Flow) CompleteCollection(result models.CollectorResult) (*models.BillingInfo, error) {
	f.mu.Lock()
	if f.state != StateCollecting {
		f.mu.Unlock()
		return nil, ErrNoPendingCollection
	}
	if f.order == nil || result.OrderID != f.order.OrderID {
		f.mu.Unlock()
		return nil, ErrOrderMismatch
	}
	f.state = StateVerifying
	attemptID := f.attemptID
	f.mu.Unlock()

	info, err := f.api.VerifyPayment(result)
	if err != nil {
		f.settle(attemptID, "failed")
		log.Printf("Verification failed for order %s: %v", result.OrderID, err)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	f.billing.Replace(info)
	f.settle(attemptID, "paid")
	log.Printf("Order %s verified, plan is now %s.", result.OrderID, info.CurrentPlan)
	return info, nil
}

// AbandonCollection records that the collector was dismissed without a
// result. The pending order is left to expire server-side.
func (f *Flow) AbandonCollection() error {
	f.mu.Lock()
	if f.state != StateCollecting {
		f.mu.Unlock()
		return ErrNoPendingCollection
	}
	attemptID := f.attemptID
	orderID := f.order.OrderID
	f.state = StateIdle
	f.order = nil
	f.attemptID = 0
	f.mu.Unlock()

	if f.log != nil {
		if err := f.log.SettlePaymentAttempt(attemptID, "abandoned", time.Now()); err != nil {
			log.Printf("Failed to settle abandoned attempt for order %s: %v", orderID, err)
		}
	}
	log.Printf("Payment collection for order %s abandoned.", orderID)
	return nil
}

// settle closes out the attempt record and returns the flow to idle.
func (f *Flow) settle(attemptID int64, status string) {
	f.mu.Lock()
	f.state = StateIdle
	f.order = nil
	f.attemptID = 0
	f.mu.Unlock()

	if f.log != nil && attemptID != 0 {
		if err := f.log.SettlePaymentAttempt(attemptID, status, time.Now()); err != nil {
			log.Printf("Failed to settle payment attempt %d: %v", attemptID, err)
		}
	}
}
