package cart

import (
	"errors"
	"testing"
	"time"

	"basketbay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	messages []string
	levels   []string
}

func (n *recordingNotifier) Success(m string) { n.record("success", m) }
func (n *recordingNotifier) Warning(m string) { n.record("warning", m) }
func (n *recordingNotifier) Error(m string)   { n.record("error", m) }

func (n *recordingNotifier) record(level, m string) {
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, m)
}

func entry(id string, price, discount int64, stock int) models.CatalogEntry {
	return models.CatalogEntry{
		ID:              models.ProductID(id),
		Name:            "product-" + id,
		UnitPrice:       decimal.NewFromInt(price),
		DiscountPercent: decimal.NewFromInt(discount),
		AvailableStock:  stock,
	}
}

func newLedger(entries ...models.CatalogEntry) (*Ledger, *recordingNotifier) {
	n := &recordingNotifier{}
	l := NewLedger(n)
	l.RefreshSnapshot(entries, time.Now())
	return l, n
}

var customer = models.Identity{CustomerID: "c-1", FirstName: "Asha"}

func TestAddOrIncrementCreatesThenIncrements(t *testing.T) {
	apple := entry("a", 100, 10, 5)
	l, n := newLedger(apple)

	require.NoError(t, l.AddOrIncrement(apple))
	require.NoError(t, l.AddOrIncrement(apple))

	items := l.Items()
	require.Len(t, items, 1, "adding a present product must not duplicate it")
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, []string{"Product added to cart!", "Product added to cart!"}, n.messages)
}

func TestAddOrIncrementOutOfStock(t *testing.T) {
	gone := entry("g", 100, 0, 0)
	l, n := newLedger(gone)

	err := l.AddOrIncrement(gone)
	assert.True(t, errors.Is(err, models.ErrStateConflict))
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, []string{"Out of stock!"}, n.messages)
	assert.Equal(t, []string{"error"}, n.levels)
}

func TestAddOrIncrementRespectsStockBound(t *testing.T) {
	pear := entry("p", 40, 0, 2)
	l, _ := newLedger(pear)

	require.NoError(t, l.AddOrIncrement(pear))
	require.NoError(t, l.AddOrIncrement(pear))

	err := l.AddOrIncrement(pear)
	assert.True(t, errors.Is(err, models.ErrStateConflict))
	assert.Equal(t, 2, l.Items()[0].Quantity)
}

func TestIncrementOnlyTouchesTargetItem(t *testing.T) {
	a, b := entry("a", 100, 0, 10), entry("b", 50, 0, 10)
	l, _ := newLedger(a, b)
	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.AddOrIncrement(b))

	before := l.Items()
	require.NoError(t, l.Increment("a"))
	after := l.Items()

	assert.Equal(t, before[0].Quantity+1, after[0].Quantity)
	assert.Equal(t, before[1], after[1])
}

func TestIncrementRefusedAtStock(t *testing.T) {
	a := entry("a", 100, 0, 1)
	l, n := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))

	err := l.Increment("a")
	assert.True(t, errors.Is(err, models.ErrStateConflict))
	assert.Equal(t, 1, l.Items()[0].Quantity)
	assert.Equal(t, "warning", n.levels[len(n.levels)-1])
}

func TestIncrementUnknownItem(t *testing.T) {
	l, _ := newLedger()
	err := l.Increment("missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDecrementAtOneIsRejected(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))

	err := l.Decrement("a")
	assert.True(t, errors.Is(err, models.ErrStateConflict))
	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestDecrement(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.Increment("a"))
	require.NoError(t, l.Increment("a"))

	require.NoError(t, l.Decrement("a"))
	assert.Equal(t, 2, l.Items()[0].Quantity)
}

func TestRemoveThenAddStartsAtOne(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.Increment("a"))
	require.NoError(t, l.Increment("a"))

	require.NoError(t, l.Remove("a"))
	assert.Equal(t, 0, l.Len())

	require.NoError(t, l.AddOrIncrement(a))
	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func headroom(t *testing.T, l *Ledger) int {
	t.Helper()
	snap := l.Snapshot()
	require.Len(t, snap, 1)
	return snap[0].EstimatedHeadroom
}

func TestHeadroomTracksCartQuantity(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	assert.Equal(t, 5, headroom(t, l))

	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.Increment("a"))
	assert.Equal(t, 3, headroom(t, l))

	require.NoError(t, l.Decrement("a"))
	assert.Equal(t, 4, headroom(t, l))

	l.RefreshSnapshot([]models.CatalogEntry{a}, time.Now())
	assert.Equal(t, 4, headroom(t, l), "a refetch keeps the units already in the cart")
}

func TestRemoveRestoresHeadroomEstimate(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.AddOrIncrement(a))
		require.NoError(t, l.Increment("a"))
		require.NoError(t, l.Remove("a"))
	}

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 5, snap[0].AvailableStock)
	assert.Equal(t, 5, snap[0].EstimatedHeadroom)
}

func TestTotalExample(t *testing.T) {
	a, b := entry("a", 100, 10, 5), entry("b", 50, 0, 5)
	l, _ := newLedger(a, b)
	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.Increment("a"))
	require.NoError(t, l.AddOrIncrement(b))
	require.NoError(t, l.Increment("b"))
	require.NoError(t, l.Increment("b"))

	assert.True(t, decimal.NewFromInt(330).Equal(l.Total()), "got %s", l.Total())
}

func TestTotalIsOrderIndependent(t *testing.T) {
	a := entry("a", 199, 15, 9)
	b := entry("b", 75, 33, 9)
	c := entry("c", 12, 0, 9)

	build := func(order ...models.CatalogEntry) decimal.Decimal {
		l, _ := newLedger(a, b, c)
		for _, e := range order {
			require.NoError(t, l.AddOrIncrement(e))
			require.NoError(t, l.Increment(e.ID))
		}
		return l.Total()
	}

	first := build(a, b, c)
	assert.True(t, first.Equal(build(c, a, b)))
	assert.True(t, first.Equal(build(b, c, a)))
}

func TestTotalPayableRoundsOnceHalfAwayFromZero(t *testing.T) {
	// 99 with 50% off is 49.5 per unit; one unit rounds up to 50
	a := entry("a", 99, 50, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	assert.Equal(t, "49.5", l.Total().String())
	assert.Equal(t, int64(50), l.TotalPayable().IntPart())

	// two units are exactly 99; no per-line rounding happens first
	require.NoError(t, l.Increment("a"))
	assert.Equal(t, int64(99), l.TotalPayable().IntPart())
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	l, n := newLedger()
	_, err := l.BeginCheckout(customer)
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, StateIdle, l.State())
	assert.NotEmpty(t, n.messages)
}

func TestCheckoutRejectsUnauthenticated(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, n := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))

	_, err := l.BeginCheckout(models.Identity{})
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, StateIdle, l.State())
	assert.Equal(t, "Please login to place an order.", n.messages[len(n.messages)-1])
}

func TestCheckoutLocksCart(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))

	co, err := l.BeginCheckout(customer)
	require.NoError(t, err)
	assert.Equal(t, int64(100), co.Amount)
	assert.Equal(t, StateAwaitingPayment, l.State())

	assert.True(t, errors.Is(l.Increment("a"), models.ErrStateConflict))
	assert.True(t, errors.Is(l.Remove("a"), models.ErrStateConflict))
	assert.True(t, errors.Is(l.AddOrIncrement(a), models.ErrStateConflict))

	_, err = l.BeginCheckout(customer)
	assert.True(t, errors.Is(err, models.ErrStateConflict), "only one checkout attempt at a time")
}

func TestCancelLeavesCartIdentical(t *testing.T) {
	a, b := entry("a", 100, 10, 5), entry("b", 50, 0, 5)
	l, n := newLedger(a, b)
	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.AddOrIncrement(b))
	require.NoError(t, l.Increment("b"))
	before := l.Items()

	_, err := l.BeginCheckout(customer)
	require.NoError(t, err)
	_, err = l.CancelCheckout()
	require.NoError(t, err)

	assert.Equal(t, before, l.Items())
	assert.Equal(t, StateIdle, l.State())
	assert.Equal(t, "Payment cancelled.", n.messages[len(n.messages)-1])
}

func TestSubmissionSuccessClearsCart(t *testing.T) {
	a := entry("a", 100, 10, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	require.NoError(t, l.Increment("a"))

	started, err := l.BeginCheckout(customer)
	require.NoError(t, err)

	req, co, err := l.BeginSubmission(started.ID, models.PaymentMethodCashOnDelivery, &models.PaymentReceipt{PaymentID: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, l.State())
	assert.Equal(t, "c-1", req.CustomerID)
	assert.Equal(t, int64(180), req.TotalAmount)
	assert.Nil(t, req.PaymentDetails, "cash on delivery carries no receipt")
	require.Len(t, req.Products, 1)
	assert.Equal(t, 2, req.Products[0].Quantity)
	assert.Equal(t, co.Amount, req.TotalAmount)

	_, err = l.CancelCheckout()
	assert.True(t, errors.Is(err, models.ErrStateConflict), "in-flight submission cannot be cancelled")

	_, err = l.CompleteSubmission()
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, StateIdle, l.State())
}

func TestSubmissionFailureRetainsCart(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	before := l.Items()

	co, err := l.BeginCheckout(customer)
	require.NoError(t, err)
	_, _, err = l.BeginSubmission(co.ID, models.PaymentMethodCashOnDelivery, nil)
	require.NoError(t, err)

	_, err = l.AbortSubmission()
	require.NoError(t, err)
	assert.Equal(t, before, l.Items())
	assert.Equal(t, StateIdle, l.State())
}

func TestGatewaySubmissionNeedsReceipt(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	co, err := l.BeginCheckout(customer)
	require.NoError(t, err)

	_, _, err = l.BeginSubmission(co.ID, models.PaymentMethodGateway, nil)
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, StateAwaitingPayment, l.State())

	require.NoError(t, l.AttachGateway(co.ID, "order_1"))
	receipt := &models.PaymentReceipt{GatewayOrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}
	req, _, err := l.BeginSubmission(co.ID, models.PaymentMethodGateway, receipt)
	require.NoError(t, err)
	assert.Equal(t, receipt, req.PaymentDetails)
}

func TestApplyStockUpdatesBound(t *testing.T) {
	a := entry("a", 100, 0, 1)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))
	require.Error(t, l.Increment("a"))

	assert.True(t, l.ApplyStock("a", 3, time.Now()))
	require.NoError(t, l.Increment("a"))

	assert.True(t, l.ApplyStock("a", -1, time.Now()))
	_, ok := l.Entry("a")
	assert.False(t, ok)
	assert.False(t, l.ApplyStock("unknown", 3, time.Now()))
}

func TestRefreshSnapshotMerges(t *testing.T) {
	l, _ := newLedger(entry("a", 1, 0, 1), entry("b", 1, 0, 1))
	l.RefreshSnapshot([]models.CatalogEntry{entry("b", 1, 0, 9), entry("c", 1, 0, 2)}, time.Now())

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, models.ProductID("a"), snap[0].ProductID)
	assert.Equal(t, 9, snap[1].AvailableStock)
}

func TestSubmissionRefusesSupersededCheckout(t *testing.T) {
	a := entry("a", 100, 0, 5)
	l, _ := newLedger(a)
	require.NoError(t, l.AddOrIncrement(a))

	first, err := l.BeginCheckout(customer)
	require.NoError(t, err)
	require.NoError(t, l.AttachGateway(first.ID, "gw_first"))
	_, err = l.CancelCheckout()
	require.NoError(t, err)

	require.NoError(t, l.Increment("a"))
	second, err := l.BeginCheckout(customer)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	receipt := &models.PaymentReceipt{GatewayOrderID: "gw_first", PaymentID: "pay_first"}
	_, _, err = l.BeginSubmission(first.ID, models.PaymentMethodGateway, receipt)
	assert.True(t, errors.Is(err, models.ErrStateConflict))
	assert.Equal(t, StateAwaitingPayment, l.State())

	require.NoError(t, l.AttachGateway(second.ID, "gw_second"))
	_, _, err = l.BeginSubmission(second.ID, models.PaymentMethodGateway, receipt)
	assert.True(t, errors.Is(err, models.ErrValidation), "receipt names another gateway order")

	_, err = l.CancelAttempt(first.ID)
	assert.True(t, errors.Is(err, models.ErrStateConflict))
	pending, ok := l.Pending()
	require.True(t, ok)
	assert.Equal(t, second.ID, pending.ID)
}
