package models

import "time"

// Checkout journal states
const (
	AttemptAwaitingPayment = "AWAITING_PAYMENT"
	AttemptSubmitting      = "SUBMITTING"
	AttemptPlaced          = "PLACED"
	AttemptCancelled       = "CANCELLED"
	AttemptFailed          = "FAILED"
)

// CheckoutAttempt is one journaled checkout, from start to outcome.
type CheckoutAttempt struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	CustomerID    string    `db:"customer_id" json:"customer_id"`
	Amount        int64     `db:"amount" json:"amount"`
	ItemCount     int       `db:"item_count" json:"item_count"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	State         string    `db:"state" json:"state"`
	OrderID       string    `db:"order_id" json:"order_id"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the attempt has reached an outcome.
func (a CheckoutAttempt) Terminal() bool {
	return a.State == AttemptPlaced || a.State == AttemptCancelled || a.State == AttemptFailed
}
