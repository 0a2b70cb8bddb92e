package service

import (
	"context"
	"time"

	"basketbay/internal/models"
)

// CatalogAPI is the slice of the catalog backend the storefront uses
type CatalogAPI interface {
	ListProducts(ctx context.Context, page, limit int, sort string) (models.ProductPage, error)
	AddProduct(ctx context.Context, token string, p models.NewProduct) (models.CatalogEntry, error)
	DeleteProduct(ctx context.Context, token string, id models.ProductID) error
	IncreaseStock(ctx context.Context, token string, id models.ProductID) (models.CatalogEntry, error)
	DecreaseStock(ctx context.Context, token string, id models.ProductID) (models.CatalogEntry, error)
}

// OrderAPI places and lists orders
type OrderAPI interface {
	PlaceOrder(ctx context.Context, token string, req models.OrderRequest, idempotencyKey string) (models.Order, string, error)
	CustomerOrders(ctx context.Context, token, customerID string) ([]models.Order, error)
	AllOrders(ctx context.Context, token string) ([]models.Order, error)
}

// PaymentAPI reaches the payment gateway through the backend
type PaymentAPI interface {
	CreateGatewayOrder(ctx context.Context, token string, amount int64) (models.GatewayOrder, error)
	VerifyPayment(ctx context.Context, token string, receipt models.PaymentReceipt) (string, error)
}

// AuthAPI covers OTP login, signup and the admin password check
type AuthAPI interface {
	FindEmailByMobile(ctx context.Context, mobile string) (string, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (bool, error)
	OTPLogin(ctx context.Context, email string) (models.Identity, error)
	Signup(ctx context.Context, form models.SignupForm) (models.Identity, string, error)
	AdminLogin(ctx context.Context, password string) (bool, string, error)
}

// RecentOrdersCache persists each customer's recent orders wholesale
type RecentOrdersCache interface {
	SaveRecentOrders(ctx context.Context, customerID string, orders []models.Order) error
	LoadRecentOrders(ctx context.Context, customerID string) ([]models.Order, error)
	ClearRecentOrders(ctx context.Context, customerID string) error
}

// ReceiptClaims guards against turning one gateway payment into two orders
type ReceiptClaims interface {
	ClaimReceipt(ctx context.Context, paymentID string, ttl time.Duration) (bool, error)
	ReleaseReceipt(ctx context.Context, paymentID string) error
}

// CheckoutJournal records checkout attempts
type CheckoutJournal interface {
	CreateAttempt(ctx context.Context, a *models.CheckoutAttempt) error
	UpdateAttempt(ctx context.Context, id, state, method, orderID, reason string) error
	GetAttempt(ctx context.Context, id string) (*models.CheckoutAttempt, error)
	ListAttemptsByCustomer(ctx context.Context, customerID string, limit int) ([]models.CheckoutAttempt, error)
}

// EventPublisher emits storefront and catalog events
type EventPublisher interface {
	PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error
	PublishCheckoutCancelled(ctx context.Context, event *models.CheckoutCancelledEvent) error
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderSubmissionFailed(ctx context.Context, event *models.OrderSubmissionFailedEvent) error
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
}

// CheckoutCanceller closes a session's pending checkout when the session
// itself goes away
type CheckoutCanceller interface {
	Abandon(ctx context.Context, sess *Session, reason string) error
}
