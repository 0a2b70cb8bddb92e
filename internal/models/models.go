package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func init() {
	// the backend speaks plain JSON numbers for prices
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductID is the canonical product identifier used by the cart and snapshot.
type ProductID string

// NormalizeProductID picks the backend's "_id" and falls back to the legacy "id" field.
func NormalizeProductID(id, legacyID string) ProductID {
	if v := strings.TrimSpace(id); v != "" {
		return ProductID(v)
	}
	return ProductID(strings.TrimSpace(legacyID))
}

// CatalogEntry is one product as last fetched from the catalog service
type CatalogEntry struct {
	ID              ProductID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ImageRef        string          `json:"image"`
	UnitPrice       decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount"`
	AvailableStock  int             `json:"count"`
}

// InStock reports whether the entry can be added to a cart.
func (e CatalogEntry) InStock() bool {
	return e.AvailableStock > 0
}

// LineItem is one product's presence in the cart
type LineItem struct {
	ProductID       ProductID       `json:"product_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ImageRef        string          `json:"image"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Quantity        int             `json:"quantity"`
}

// NewLineItem copies display and pricing metadata from the catalog entry.
func NewLineItem(e CatalogEntry) LineItem {
	return LineItem{
		ProductID:       e.ID,
		Name:            e.Name,
		Description:     e.Description,
		ImageRef:        e.ImageRef,
		UnitPrice:       e.UnitPrice,
		DiscountPercent: e.DiscountPercent,
		Quantity:        1,
	}
}

// UnitNetPrice is the unit price after discount, unrounded.
func (li LineItem) UnitNetPrice() decimal.Decimal {
	return NetPrice(li.UnitPrice, li.DiscountPercent)
}

// Subtotal is the unrounded discounted price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitNetPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineTotal is the subtotal rounded half away from zero.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Subtotal().Round(0)
}

// NetPrice applies a percentage discount to a price
func NetPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	return price.Sub(price.Mul(discountPercent).Div(hundred))
}

// PaymentMethod is how the shopper settles an order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "COD"
	PaymentMethodGateway        PaymentMethod = "Razorpay"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCashOnDelivery || m == PaymentMethodGateway
}

// PaymentReceipt is the client-asserted result of a gateway payment.
type PaymentReceipt struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// GatewayOrder is the payable handle returned by the payment gateway
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Identity is the resolved shopper (or admin) for a session.
type Identity struct {
	CustomerID string `json:"_id"`
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Email      string `json:"email"`
	Mobile     string `json:"mobileno"`
	Address    string `json:"address"`
	Pincode    string `json:"pincode"`
	Gender     string `json:"gender,omitempty"`
	Age        int    `json:"age,omitempty"`
	IsAdmin    bool   `json:"isAdmin"`
	Token      string `json:"-"`
}

// Authenticated reports whether the identity carries a customer id.
func (i Identity) Authenticated() bool {
	return i.CustomerID != ""
}

// FullName joins first and last name
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// OrderLine is one product inside an order snapshot or record.
type OrderLine struct {
	ProductID ProductID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	ImageRef  string          `json:"imageUrl"`
}

// Total is the rounded discounted total for the line.
func (ol OrderLine) Total() decimal.Decimal {
	return NetPrice(ol.UnitPrice, ol.Discount).Mul(decimal.NewFromInt(int64(ol.Quantity))).Round(0)
}

// OrderRequest is the order snapshot submitted to the order service
type OrderRequest struct {
	CustomerID     string          `json:"customerId"`
	Products       []OrderLine     `json:"products"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PaymentDetails *PaymentReceipt `json:"paymentDetails"`
	TotalAmount    int64           `json:"totalAmount"`
}

// Order is the canonical order record owned by the order service.
type Order struct {
	ID             string          `json:"_id"`
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName,omitempty"`
	Mobile         string          `json:"mobile,omitempty"`
	Address        string          `json:"address,omitempty"`
	Products       []OrderLine     `json:"products"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PaymentDetails *PaymentReceipt `json:"paymentDetails,omitempty"`
	TotalAmount    int64           `json:"totalAmount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ItemCount sums quantities across the order's products.
func (o Order) ItemCount() int {
	n := 0
	for _, p := range o.Products {
		n += p.Quantity
	}
	return n
}

// Catalog sort orders accepted by the product listing
const (
	SortLatest   = "latest"
	SortLowHigh  = "low-high"
	SortHighLow  = "high-low"
	DefaultLimit = 6
)

// ValidSort reports whether s is a listing sort the catalog understands.
func ValidSort(s string) bool {
	switch s {
	case SortLatest, SortLowHigh, SortHighLow:
		return true
	}
	return false
}

// ProductPage is one page of the product listing
type ProductPage struct {
	Products   []CatalogEntry `json:"products"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Sort       string         `json:"sort"`
}

// NewProduct is the admin form for adding a product to inventory.
type NewProduct struct {
	Name        string          `json:"name" validate:"notblank"`
	Description string          `json:"description" validate:"notblank"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Discount    decimal.Decimal `json:"discount" validate:"min=0,max=100"`
	Count       int             `json:"count" validate:"gt=0"`
	ImageURL    string          `json:"imageUrl"`
}

// SignupForm carries the fields of the signup page
type SignupForm struct {
	FirstName string `json:"firstname" validate:"name"`
	LastName  string `json:"lastname" validate:"name"`
	Gender    string `json:"gender" validate:"notblank"`
	Age       int    `json:"age" validate:"min=1,max=99"`
	Email     string `json:"email" validate:"looseemail"`
	Address   string `json:"address" validate:"notblank"`
	Pincode   string `json:"pincode" validate:"number,len=6"`
	Mobile    string `json:"mobileno" validate:"number,len=10"`
	OTP       string `json:"otp" validate:"number,len=6"`
}
