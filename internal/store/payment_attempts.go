package store

import (
	"database/sql"
	"time"

	"github.com/reelrocket/pulse/internal/models"
)

// RecordPaymentAttempt inserts a pending attempt and returns its id.
func (s *Store) RecordPaymentAttempt(orderID, tierName, billingCycle string, amount int64) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO payment_attempts (order_id, tier_name, billing_cycle, amount, status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)`,
		orderID, tierName, billingCycle, amount, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SettlePaymentAttempt closes an attempt with its final status
// ("paid", "failed" or "abandoned").
func (s *Store) SettlePaymentAttempt(id int64, status string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE payment_attempts SET status = ?, settled_at = ? WHERE id = ?`,
		status, at, id)
	return err
}

// ListPaymentAttempts returns all attempts, newest first.
func (s *Store) ListPaymentAttempts() ([]*models.PaymentAttempt, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, tier_name, billing_cycle, amount, status, created_at, settled_at
		FROM payment_attempts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.PaymentAttempt
	for rows.Next() {
		var a models.PaymentAttempt
		var settledAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.OrderID, &a.TierName, &a.BillingCycle, &a.Amount, &a.Status, &a.CreatedAt, &settledAt); err != nil {
			return nil, err
		}
		if settledAt.Valid {
			t := settledAt.Time
			a.SettledAt = &t
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
