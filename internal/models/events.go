package models

import "time"

// Event types
const (
	EventTypeCheckoutStarted       = "CHECKOUT_STARTED"
	EventTypeCheckoutCancelled     = "CHECKOUT_CANCELLED"
	EventTypeOrderPlaced           = "ORDER_PLACED"
	EventTypeOrderSubmissionFailed = "ORDER_SUBMISSION_FAILED"
	EventTypeStockAdjusted         = "STOCK_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutStartedEvent published when a cart enters payment selection
type CheckoutStartedEvent struct {
	BaseEvent
	CheckoutID  string `json:"checkout_id"`
	SessionID   string `json:"session_id"`
	CustomerID  string `json:"customer_id"`
	TotalAmount int64  `json:"total_amount"`
	ItemCount   int    `json:"item_count"`
}

// CheckoutCancelledEvent published when payment is cancelled or fails verification
type CheckoutCancelledEvent struct {
	BaseEvent
	CheckoutID string `json:"checkout_id"`
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// OrderPlacedEvent published once the order service acknowledges an order
type OrderPlacedEvent struct {
	BaseEvent
	CheckoutID    string        `json:"checkout_id"`
	OrderID       string        `json:"order_id"`
	CustomerID    string        `json:"customer_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalAmount   int64         `json:"total_amount"`
}

// OrderSubmissionFailedEvent published when the order service rejects or cannot be reached
type OrderSubmissionFailedEvent struct {
	BaseEvent
	CheckoutID string `json:"checkout_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// StockAdjustedEvent published after an admin stock change
type StockAdjustedEvent struct {
	BaseEvent
	ProductID ProductID `json:"product_id"`
	Count     int       `json:"count"`
	Deleted   bool      `json:"deleted,omitempty"`
}
