package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"basketbay/internal/backend"
	"basketbay/internal/cart"
	"basketbay/internal/models"
	"basketbay/internal/util"

	"go.uber.org/zap"
)

// Cancellation reasons recorded in the journal, events and metrics
const (
	ReasonUserCancelled      = "user_cancelled"
	ReasonPaymentFailed      = "payment_failed"
	ReasonVerificationFailed = "verification_failed"
	ReasonGatewayUnavailable = "gateway_unavailable"
	ReasonDuplicateReceipt   = "duplicate_receipt"
	ReasonCartChanged        = "cart_changed"
	ReasonLogout             = "logout"
	ReasonSessionExpired     = "session_expired"
)

// CheckoutDeps bundles the collaborators of the checkout flow
type CheckoutDeps struct {
	Catalog  CatalogAPI
	Orders   OrderAPI
	Payments PaymentAPI
	Receipts ReceiptClaims
	Journal  CheckoutJournal
	Events   EventPublisher
	History  *HistoryService
}

// CheckoutService runs checkout attempts from payment selection to order
// placement.
type CheckoutService struct {
	catalog    CatalogAPI
	orders     OrderAPI
	payments   PaymentAPI
	receipts   ReceiptClaims
	journal    CheckoutJournal
	events     EventPublisher
	history    *HistoryService
	receiptTTL time.Duration
	pageLimit  int
	logger     *zap.Logger
	now        func() time.Time
}

// NewCheckoutService creates a checkout service
func NewCheckoutService(deps CheckoutDeps, receiptTTL time.Duration, pageLimit int) *CheckoutService {
	if pageLimit <= 0 {
		pageLimit = models.DefaultLimit
	}
	return &CheckoutService{
		catalog:    deps.Catalog,
		orders:     deps.Orders,
		payments:   deps.Payments,
		receipts:   deps.Receipts,
		journal:    deps.Journal,
		events:     deps.Events,
		history:    deps.History,
		receiptTTL: receiptTTL,
		pageLimit:  pageLimit,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// Checkout fixes the payable amount and moves the cart to payment selection.
func (c *CheckoutService) Checkout(ctx context.Context, sess *Session) (cart.Checkout, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout", sess.ID)
	defer span.End()

	co, err := sess.Ledger.BeginCheckout(sess.Identity())
	if err != nil {
		return cart.Checkout{}, err
	}

	util.CheckoutsStartedTotal.Inc()
	c.logger.Info("Checkout started",
		zap.String("session_id", sess.ID),
		zap.String("checkout_id", co.ID),
		zap.String("customer_id", co.Customer.CustomerID),
		zap.Int64("amount", co.Amount))

	if err := c.journal.CreateAttempt(ctx, &models.CheckoutAttempt{
		ID:         co.ID,
		SessionID:  sess.ID,
		CustomerID: co.Customer.CustomerID,
		Amount:     co.Amount,
		ItemCount:  co.ItemCount,
		State:      models.AttemptAwaitingPayment,
	}); err != nil {
		c.logger.Warn("Failed to journal checkout", zap.String("checkout_id", co.ID), zap.Error(err))
	}

	c.publish("checkout_started", co.ID, c.events.PublishCheckoutStarted(ctx, &models.CheckoutStartedEvent{
		CheckoutID:  co.ID,
		SessionID:   sess.ID,
		CustomerID:  co.Customer.CustomerID,
		TotalAmount: co.Amount,
		ItemCount:   co.ItemCount,
	}))
	return co, nil
}

// CreateGatewayOrder obtains a payable handle for the pending checkout. A
// gateway failure aborts the checkout.
func (c *CheckoutService) CreateGatewayOrder(ctx context.Context, sess *Session) (models.GatewayOrder, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateGatewayOrder", sess.ID)
	defer span.End()

	co, err := c.awaitingPayment(sess)
	if err != nil {
		return models.GatewayOrder{}, err
	}

	order, err := c.payments.CreateGatewayOrder(ctx, co.Customer.Token, co.Amount)
	if err != nil {
		c.logger.Warn("Failed to create gateway order",
			zap.String("session_id", sess.ID),
			zap.String("checkout_id", co.ID),
			zap.Error(err))
		sess.Notifications.Error("Payment gateway is unavailable. Please try again.")
		c.cancelAttempt(ctx, sess, co.ID, ReasonGatewayUnavailable)
		util.EndSpan(span, err)
		return models.GatewayOrder{}, err
	}
	if err := sess.Ledger.AttachGateway(co.ID, order.ID); err != nil {
		return models.GatewayOrder{}, err
	}
	return order, nil
}

// Cancel abandons payment; the cart is left exactly as it was.
func (c *CheckoutService) Cancel(ctx context.Context, sess *Session) error {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Cancel", sess.ID)
	defer span.End()

	_, err := c.cancel(ctx, sess, ReasonUserCancelled)
	return err
}

// Abandon cancels whatever checkout is awaiting payment on behalf of the
// session itself, e.g. on logout or expiry. It is a no-op when nothing is
// pending.
func (c *CheckoutService) Abandon(ctx context.Context, sess *Session, reason string) error {
	if sess.Ledger.State() != cart.StateAwaitingPayment {
		return nil
	}
	_, err := c.cancel(ctx, sess, reason)
	return err
}

// ResolvePayment handles the outcome of the payment step. A failed or
// unverifiable payment cancels the checkout; a successful one submits the
// order. Once submitted, the order request runs to completion even if ctx is
// cancelled.
func (c *CheckoutService) ResolvePayment(ctx context.Context, sess *Session, method models.PaymentMethod, success bool, receipt *models.PaymentReceipt) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.ResolvePayment", sess.ID)
	defer span.End()

	co, err := c.awaitingPayment(sess)
	if err != nil {
		return models.Order{}, err
	}

	if !success {
		c.cancelAttempt(ctx, sess, co.ID, ReasonPaymentFailed)
		return models.Order{}, fmt.Errorf("%w: payment was not completed", models.ErrGateway)
	}
	if !method.Valid() {
		sess.Notifications.Warning("Please choose a payment method.")
		return models.Order{}, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, method)
	}

	claimed := ""
	if method == models.PaymentMethodGateway {
		if receipt == nil || receipt.PaymentID == "" {
			sess.Notifications.Warning("Payment receipt is missing.")
			return models.Order{}, fmt.Errorf("%w: gateway payment requires a receipt", models.ErrValidation)
		}
		if co.Gateway == "" || receipt.GatewayOrderID != co.Gateway {
			sess.Notifications.Warning("Payment receipt does not match this checkout.")
			return models.Order{}, fmt.Errorf("%w: receipt for gateway order %q does not match checkout %s",
				models.ErrValidation, receipt.GatewayOrderID, co.ID)
		}
		if err := c.verify(ctx, sess, co, *receipt); err != nil {
			return models.Order{}, err
		}
		ok, err := c.claim(ctx, sess, co.ID, receipt.PaymentID)
		if err != nil {
			return models.Order{}, err
		}
		if ok {
			claimed = receipt.PaymentID
		}
	}

	// the checkout may have been cancelled or replaced while the payment was
	// being verified; only the attempt this payment was made for may submit
	req, submitted, err := sess.Ledger.BeginSubmission(co.ID, method, receipt)
	if err != nil {
		c.release(ctx, claimed)
		switch {
		case errors.Is(err, models.ErrStateConflict):
			c.logger.Warn("Payment arrived for a superseded checkout",
				zap.String("session_id", sess.ID),
				zap.String("checkout_id", co.ID),
				zap.Error(err))
			sess.Notifications.Error("Your checkout changed during payment. Please try again.")
		case sess.Ledger.State() == cart.StateIdle:
			c.closeAttempt(ctx, sess, co.ID, models.AttemptCancelled, string(method), ReasonCartChanged)
			util.CheckoutsCancelledTotal.WithLabelValues(ReasonCartChanged).Inc()
		}
		return models.Order{}, err
	}
	c.journalUpdate(ctx, submitted.ID, models.AttemptSubmitting, string(method), "", "")

	return c.submit(context.WithoutCancel(ctx), sess, submitted, req, claimed)
}

func (c *CheckoutService) submit(ctx context.Context, sess *Session, co cart.Checkout, req models.OrderRequest, claimed string) (models.Order, error) {
	order, msg, err := c.orders.PlaceOrder(ctx, co.Customer.Token, req, co.ID)
	if err != nil {
		c.logger.Error("Order submission failed",
			zap.String("session_id", sess.ID),
			zap.String("checkout_id", co.ID),
			zap.String("customer_id", co.Customer.CustomerID),
			zap.Error(err))

		_, _ = sess.Ledger.AbortSubmission()
		c.release(ctx, claimed)
		sess.Notifications.Error("Failed to place order. Please try again.")
		util.OrderSubmissionsFailedTotal.Inc()

		reason := firstNonEmpty(backend.MessageOf(err), models.KindOf(err))
		c.journalUpdate(ctx, co.ID, models.AttemptFailed, "", "", reason)
		c.publish("order_submission_failed", co.ID, c.events.PublishOrderSubmissionFailed(ctx, &models.OrderSubmissionFailedEvent{
			CheckoutID: co.ID,
			CustomerID: co.Customer.CustomerID,
			Reason:     reason,
		}))
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}

	_, _ = sess.Ledger.CompleteSubmission()
	c.history.Prepend(ctx, sess, order)
	sess.Notifications.Success(strings.TrimSpace(fmt.Sprintf("%s Order ID: %s", msg, order.ID)))

	util.OrdersPlacedTotal.WithLabelValues(string(req.PaymentMethod)).Inc()
	c.logger.Info("Order placed",
		zap.String("session_id", sess.ID),
		zap.String("checkout_id", co.ID),
		zap.String("order_id", order.ID),
		zap.Int64("amount", req.TotalAmount))

	c.journalUpdate(ctx, co.ID, models.AttemptPlaced, "", order.ID, "")
	c.publish("order_placed", co.ID, c.events.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{
		CheckoutID:    co.ID,
		OrderID:       order.ID,
		CustomerID:    co.Customer.CustomerID,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   req.TotalAmount,
	}))

	c.refreshCatalog(ctx, sess)
	return order, nil
}

func (c *CheckoutService) verify(ctx context.Context, sess *Session, co cart.Checkout, receipt models.PaymentReceipt) error {
	status, err := c.payments.VerifyPayment(ctx, co.Customer.Token, receipt)
	if err == nil && status == backend.PaymentStatusSuccess {
		util.PaymentVerificationsTotal.WithLabelValues("success").Inc()
		return nil
	}

	result := "rejected"
	if err != nil {
		result = "error"
		c.logger.Warn("Payment verification failed",
			zap.String("session_id", sess.ID),
			zap.String("checkout_id", co.ID),
			zap.Error(err))
	}
	util.PaymentVerificationsTotal.WithLabelValues(result).Inc()

	sess.Notifications.Error("Payment verification failed.")
	c.cancelAttempt(ctx, sess, co.ID, ReasonVerificationFailed)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: payment verification returned %q", models.ErrGateway, status)
}

// claim reserves the receipt. An unreachable claim store does not block the
// order; the backend's idempotency key still protects it.
func (c *CheckoutService) claim(ctx context.Context, sess *Session, checkoutID, paymentID string) (bool, error) {
	ok, err := c.receipts.ClaimReceipt(ctx, paymentID, c.receiptTTL)
	if err != nil {
		c.logger.Warn("Failed to claim payment receipt",
			zap.String("session_id", sess.ID),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return false, nil
	}
	if !ok {
		sess.Notifications.Warning("This payment has already been used for an order.")
		c.cancelAttempt(ctx, sess, checkoutID, ReasonDuplicateReceipt)
		return false, fmt.Errorf("%w: payment %s already claimed", models.ErrStateConflict, paymentID)
	}
	return true, nil
}

func (c *CheckoutService) release(ctx context.Context, paymentID string) {
	if paymentID == "" {
		return
	}
	if err := c.receipts.ReleaseReceipt(ctx, paymentID); err != nil {
		c.logger.Warn("Failed to release payment receipt",
			zap.String("payment_id", paymentID),
			zap.Error(err))
	}
}

// Attempts lists the logged-in shopper's journaled checkouts, newest first.
func (c *CheckoutService) Attempts(ctx context.Context, sess *Session, limit int) ([]models.CheckoutAttempt, error) {
	id := sess.Identity()
	if !id.Authenticated() {
		return nil, fmt.Errorf("%w: login required", models.ErrValidation)
	}
	attempts, err := c.journal.ListAttemptsByCustomer(ctx, id.CustomerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// Attempt returns one journaled checkout owned by the session's shopper.
func (c *CheckoutService) Attempt(ctx context.Context, sess *Session, checkoutID string) (*models.CheckoutAttempt, error) {
	a, err := c.journal.GetAttempt(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if id := sess.Identity(); !id.Authenticated() || a.CustomerID != id.CustomerID {
		return nil, fmt.Errorf("attempt %s: %w", checkoutID, models.ErrNotFound)
	}
	return a, nil
}

func (c *CheckoutService) awaitingPayment(sess *Session) (cart.Checkout, error) {
	co, ok := sess.Ledger.Pending()
	if !ok || sess.Ledger.State() != cart.StateAwaitingPayment {
		return cart.Checkout{}, fmt.Errorf("%w: no checkout awaiting payment", models.ErrStateConflict)
	}
	return co, nil
}

func (c *CheckoutService) cancel(ctx context.Context, sess *Session, reason string) (cart.Checkout, error) {
	co, err := sess.Ledger.CancelCheckout()
	if err != nil {
		return cart.Checkout{}, err
	}
	c.cancelled(ctx, sess, co, reason)
	return co, nil
}

// cancelAttempt cancels checkoutID only while it is still the pending
// attempt. A checkout the shopper already replaced is left alone.
func (c *CheckoutService) cancelAttempt(ctx context.Context, sess *Session, checkoutID, reason string) {
	co, err := sess.Ledger.CancelAttempt(checkoutID)
	if err != nil {
		c.logger.Debug("Checkout already superseded",
			zap.String("session_id", sess.ID),
			zap.String("checkout_id", checkoutID),
			zap.String("reason", reason))
		return
	}
	c.cancelled(ctx, sess, co, reason)
}

func (c *CheckoutService) cancelled(ctx context.Context, sess *Session, co cart.Checkout, reason string) {
	util.CheckoutsCancelledTotal.WithLabelValues(reason).Inc()
	c.logger.Info("Checkout cancelled",
		zap.String("session_id", sess.ID),
		zap.String("checkout_id", co.ID),
		zap.String("reason", reason))

	c.closeAttempt(ctx, sess, co.ID, models.AttemptCancelled, "", reason)
}

func (c *CheckoutService) closeAttempt(ctx context.Context, sess *Session, checkoutID, state, method, reason string) {
	if checkoutID == "" {
		return
	}
	c.journalUpdate(ctx, checkoutID, state, method, "", reason)
	c.publish("checkout_cancelled", checkoutID, c.events.PublishCheckoutCancelled(ctx, &models.CheckoutCancelledEvent{
		CheckoutID: checkoutID,
		SessionID:  sess.ID,
		CustomerID: sess.Identity().CustomerID,
		Reason:     reason,
	}))
}

func (c *CheckoutService) refreshCatalog(ctx context.Context, sess *Session) {
	page, _, sort := sess.Listing()
	result, err := c.catalog.ListProducts(ctx, page, c.pageLimit, sort)
	if err != nil {
		c.logger.Warn("Failed to refresh products after order",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		return
	}
	sess.Ledger.RefreshSnapshot(result.Products, c.now())
	sess.setListing(result.Page, result.TotalPages, result.Sort)
}

func (c *CheckoutService) journalUpdate(ctx context.Context, id, state, method, orderID, reason string) {
	err := c.journal.UpdateAttempt(ctx, id, state, method, orderID, reason)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		c.logger.Warn("Failed to journal checkout",
			zap.String("checkout_id", id),
			zap.String("state", state),
			zap.Error(err))
	}
}

func (c *CheckoutService) publish(event, checkoutID string, err error) {
	if err != nil {
		c.logger.Warn("Failed to publish event",
			zap.String("event", event),
			zap.String("checkout_id", checkoutID),
			zap.Error(err))
	}
}
