package cart

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"basketbay/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notifier receives the user-visible outcome of ledger operations
type Notifier interface {
	Success(message string)
	Warning(message string)
	Error(message string)
}

// State is the checkout state of a cart
type State string

const (
	StateIdle            State = "IDLE"
	StateAwaitingPayment State = "AWAITING_PAYMENT"
	StateSubmitting      State = "SUBMITTING"
)

// Checkout is one checkout attempt over the cart.
type Checkout struct {
	ID        string                 `json:"id"`
	Customer  models.Identity        `json:"-"`
	Amount    int64                  `json:"amount"`
	ItemCount int                    `json:"item_count"`
	Method    models.PaymentMethod   `json:"payment_method,omitempty"`
	Gateway   string                 `json:"gateway_order_id,omitempty"`
	Receipt   *models.PaymentReceipt `json:"-"`
	StartedAt time.Time              `json:"started_at"`
}

// StockView is the locally estimated stock for one product. It is refreshed
// from catalog fetches and stock events and is never authoritative.
type StockView struct {
	ProductID         models.ProductID `json:"product_id"`
	AvailableStock    int              `json:"available_stock"`
	EstimatedHeadroom int              `json:"estimated_headroom"`
	FetchedAt         time.Time        `json:"fetched_at"`
}

type snapshotEntry struct {
	entry     models.CatalogEntry
	headroom  int
	fetchedAt time.Time
}

// Ledger owns one shopper's cart and catalog snapshot. All methods are safe
// for concurrent use; remote calls are made by callers between transitions.
type Ledger struct {
	mu       sync.Mutex
	items    []models.LineItem
	snapshot map[models.ProductID]*snapshotEntry
	state    State
	checkout *Checkout
	notifier Notifier
	now      func() time.Time
}

// NewLedger creates an empty cart in the Idle state
func NewLedger(notifier Notifier) *Ledger {
	return &Ledger{
		snapshot: make(map[models.ProductID]*snapshotEntry),
		state:    StateIdle,
		notifier: notifier,
		now:      time.Now,
	}
}

// RefreshSnapshot merges freshly fetched catalog entries into the snapshot.
// Entries for products not in the fetch are kept as they were.
func (l *Ledger) RefreshSnapshot(entries []models.CatalogEntry, fetchedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		l.snapshot[e.ID] = &snapshotEntry{
			entry:     e,
			headroom:  e.AvailableStock - l.quantityLocked(e.ID),
			fetchedAt: fetchedAt,
		}
	}
}

// ApplyStock overwrites the stock of one snapshot entry. A negative stock
// drops the entry (product deleted from inventory).
func (l *Ledger) ApplyStock(id models.ProductID, stock int, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	se, ok := l.snapshot[id]
	if !ok {
		return false
	}
	if stock < 0 {
		delete(l.snapshot, id)
		return true
	}
	se.entry.AvailableStock = stock
	se.headroom = stock - l.quantityLocked(id)
	se.fetchedAt = at
	return true
}

// Entry returns the snapshot entry for id.
func (l *Ledger) Entry(id models.ProductID) (models.CatalogEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	se, ok := l.snapshot[id]
	if !ok {
		return models.CatalogEntry{}, false
	}
	return se.entry, true
}

// AddOrIncrement puts one unit of the product in the cart. The stock bound
// applies to repeated adds exactly as it does to Increment.
func (l *Ledger) AddOrIncrement(entry models.CatalogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mutableLocked(); err != nil {
		return err
	}

	if !entry.InStock() {
		l.notifier.Error("Out of stock!")
		return fmt.Errorf("product %s: %w: out of stock", entry.ID, models.ErrStateConflict)
	}

	if _, ok := l.snapshot[entry.ID]; !ok {
		l.snapshot[entry.ID] = &snapshotEntry{entry: entry, headroom: entry.AvailableStock - l.quantityLocked(entry.ID), fetchedAt: l.now()}
	}

	if i := l.indexLocked(entry.ID); i >= 0 {
		bound := l.boundLocked(entry.ID)
		if l.items[i].Quantity+1 > bound {
			l.notifier.Warning(fmt.Sprintf("Only %d of %s in stock", bound, l.items[i].Name))
			return fmt.Errorf("product %s: %w: quantity would exceed stock %d", entry.ID, models.ErrStateConflict, bound)
		}
		l.items[i].Quantity++
	} else {
		l.items = append(l.items, models.NewLineItem(entry))
	}
	l.snapshot[entry.ID].headroom--

	l.notifier.Success("Product added to cart!")
	return nil
}

// Increment adds one unit to an existing line item, bounded by stock.
func (l *Ledger) Increment(id models.ProductID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mutableLocked(); err != nil {
		return err
	}

	i := l.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("line item %s: %w", id, models.ErrNotFound)
	}

	bound := l.boundLocked(id)
	if l.items[i].Quantity >= bound {
		l.notifier.Warning(fmt.Sprintf("Only %d of %s in stock", bound, l.items[i].Name))
		return fmt.Errorf("product %s: %w: quantity %d already at stock %d",
			id, models.ErrStateConflict, l.items[i].Quantity, bound)
	}

	l.items[i].Quantity++
	if se, ok := l.snapshot[id]; ok {
		se.headroom--
	}
	return nil
}

// Decrement removes one unit. A line item at quantity 1 must be removed instead.
func (l *Ledger) Decrement(id models.ProductID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mutableLocked(); err != nil {
		return err
	}

	i := l.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("line item %s: %w", id, models.ErrNotFound)
	}

	if l.items[i].Quantity <= 1 {
		return fmt.Errorf("product %s: %w: quantity cannot go below 1, remove the item instead",
			id, models.ErrStateConflict)
	}

	l.items[i].Quantity--
	if se, ok := l.snapshot[id]; ok {
		se.headroom++
	}
	return nil
}

// Remove deletes the line item and hands its quantity back to the local
// headroom estimate.
func (l *Ledger) Remove(id models.ProductID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mutableLocked(); err != nil {
		return err
	}

	i := l.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("line item %s: %w", id, models.ErrNotFound)
	}

	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)

	if se, ok := l.snapshot[id]; ok {
		se.headroom += removed.Quantity
	}
	return nil
}

// Items returns a copy of the line items in insertion order.
func (l *Ledger) Items() []models.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of distinct products in the cart
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Total is the unrounded sum of discounted line subtotals.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

// TotalPayable is Total rounded once, half away from zero.
func (l *Ledger) TotalPayable() decimal.Decimal {
	return l.Total().Round(0)
}

// State returns the current checkout state
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pending returns the checkout attempt in progress, if any.
func (l *Ledger) Pending() (Checkout, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.checkout == nil {
		return Checkout{}, false
	}
	return *l.checkout, true
}

// Snapshot returns the local stock estimates ordered by product id.
func (l *Ledger) Snapshot() []StockView {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]StockView, 0, len(l.snapshot))
	for id, se := range l.snapshot {
		out = append(out, StockView{
			ProductID:         id,
			AvailableStock:    se.entry.AvailableStock,
			EstimatedHeadroom: se.headroom,
			FetchedAt:         se.fetchedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// BeginCheckout moves an Idle, non-empty cart of an authenticated customer
// to AwaitingPayment and fixes the payable amount.
func (l *Ledger) BeginCheckout(customer models.Identity) (Checkout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateIdle {
		return Checkout{}, fmt.Errorf("%w: checkout already in progress", models.ErrStateConflict)
	}
	if len(l.items) == 0 {
		l.notifier.Warning("Your cart is empty.")
		return Checkout{}, fmt.Errorf("%w: cart is empty", models.ErrValidation)
	}
	if !customer.Authenticated() {
		l.notifier.Warning("Please login to place an order.")
		return Checkout{}, fmt.Errorf("%w: customer is not authenticated", models.ErrValidation)
	}

	count := 0
	for _, it := range l.items {
		count += it.Quantity
	}

	l.checkout = &Checkout{
		ID:        uuid.New().String(),
		Customer:  customer,
		Amount:    l.totalLocked().Round(0).IntPart(),
		ItemCount: count,
		StartedAt: l.now(),
	}
	l.state = StateAwaitingPayment
	return *l.checkout, nil
}

// CancelCheckout abandons payment and returns the cart to Idle untouched.
// An order submission already in flight cannot be cancelled.
func (l *Ledger) CancelCheckout() (Checkout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateSubmitting:
		return Checkout{}, fmt.Errorf("%w: order submission already in flight", models.ErrStateConflict)
	case StateIdle:
		return Checkout{}, fmt.Errorf("%w: no checkout in progress", models.ErrStateConflict)
	}

	cancelled := *l.checkout
	l.checkout = nil
	l.state = StateIdle
	l.notifier.Warning("Payment cancelled.")
	return cancelled, nil
}

// CancelAttempt cancels the checkout only if it is still the attempt
// identified by checkoutID.
func (l *Ledger) CancelAttempt(checkoutID string) (Checkout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.awaitingLocked(checkoutID); err != nil {
		return Checkout{}, err
	}

	cancelled := *l.checkout
	l.checkout = nil
	l.state = StateIdle
	l.notifier.Warning("Payment cancelled.")
	return cancelled, nil
}

// AttachGateway records the gateway order created for the checkout. Receipts
// must name this gateway order to be accepted.
func (l *Ledger) AttachGateway(checkoutID, gatewayOrderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.awaitingLocked(checkoutID); err != nil {
		return err
	}
	l.checkout.Gateway = gatewayOrderID
	return nil
}

// BeginSubmission records a successful payment for checkoutID and builds the
// order snapshot. The attempt must still be the pending one and a gateway
// receipt must name its gateway order. The cart is re-validated first; an
// emptied cart aborts the attempt.
func (l *Ledger) BeginSubmission(checkoutID string, method models.PaymentMethod, receipt *models.PaymentReceipt) (models.OrderRequest, Checkout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.awaitingLocked(checkoutID); err != nil {
		return models.OrderRequest{}, Checkout{}, err
	}
	if !method.Valid() {
		return models.OrderRequest{}, Checkout{}, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, method)
	}
	if method == models.PaymentMethodGateway {
		if receipt == nil || receipt.PaymentID == "" {
			return models.OrderRequest{}, Checkout{}, fmt.Errorf("%w: gateway payment requires a receipt", models.ErrValidation)
		}
		if l.checkout.Gateway == "" || receipt.GatewayOrderID != l.checkout.Gateway {
			return models.OrderRequest{}, Checkout{}, fmt.Errorf("%w: receipt for gateway order %q does not match checkout %s",
				models.ErrValidation, receipt.GatewayOrderID, checkoutID)
		}
	}

	if len(l.items) == 0 {
		l.checkout = nil
		l.state = StateIdle
		l.notifier.Error("Your cart changed during payment. Please try again.")
		return models.OrderRequest{}, Checkout{}, fmt.Errorf("%w: cart emptied before submission", models.ErrValidation)
	}

	lines := make([]models.OrderLine, 0, len(l.items))
	for _, it := range l.items {
		lines = append(lines, models.OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Discount:  it.DiscountPercent,
			ImageRef:  it.ImageRef,
		})
	}

	if method == models.PaymentMethodCashOnDelivery {
		receipt = nil
	}
	l.checkout.Method = method
	l.checkout.Receipt = receipt
	l.state = StateSubmitting

	req := models.OrderRequest{
		CustomerID:     l.checkout.Customer.CustomerID,
		Products:       lines,
		PaymentMethod:  method,
		PaymentDetails: receipt,
		TotalAmount:    l.checkout.Amount,
	}
	return req, *l.checkout, nil
}

// CompleteSubmission clears the cart after the order service acknowledged the order.
func (l *Ledger) CompleteSubmission() (Checkout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateSubmitting {
		return Checkout{}, fmt.Errorf("%w: no order submission in flight", models.ErrStateConflict)
	}

	done := *l.checkout
	l.items = nil
	l.checkout = nil
	l.state = StateIdle
	return done, nil
}

// AbortSubmission returns to Idle with the cart retained so the shopper can retry.
func (l *Ledger) AbortSubmission() (Checkout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateSubmitting {
		return Checkout{}, fmt.Errorf("%w: no order submission in flight", models.ErrStateConflict)
	}

	failed := *l.checkout
	l.checkout = nil
	l.state = StateIdle
	return failed, nil
}

func (l *Ledger) mutableLocked() error {
	if l.state != StateIdle {
		return fmt.Errorf("%w: cart is locked while checkout is %s", models.ErrStateConflict, l.state)
	}
	return nil
}

func (l *Ledger) indexLocked(id models.ProductID) int {
	for i := range l.items {
		if l.items[i].ProductID == id {
			return i
		}
	}
	return -1
}

// boundLocked is the stock captured when the snapshot entry was fetched; a
// product with no snapshot entry cannot grow.
func (l *Ledger) quantityLocked(id models.ProductID) int {
	if i := l.indexLocked(id); i >= 0 {
		return l.items[i].Quantity
	}
	return 0
}

func (l *Ledger) awaitingLocked(checkoutID string) error {
	if l.state != StateAwaitingPayment {
		return fmt.Errorf("%w: no checkout awaiting payment", models.ErrStateConflict)
	}
	if l.checkout.ID != checkoutID {
		return fmt.Errorf("%w: checkout %s is no longer pending", models.ErrStateConflict, checkoutID)
	}
	return nil
}

func (l *Ledger) boundLocked(id models.ProductID) int {
	se, ok := l.snapshot[id]
	if !ok {
		return 0
	}
	return se.entry.AvailableStock
}

func (l *Ledger) totalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, it := range l.items {
		total = total.Add(it.Subtotal())
	}
	return total
}
