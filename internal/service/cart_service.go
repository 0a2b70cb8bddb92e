package service

import (
	"context"
	"fmt"
	"time"

	"basketbay/internal/cart"
	"basketbay/internal/models"
	"basketbay/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartLine is a line item with its computed prices
type CartLine struct {
	models.LineItem
	UnitNetPrice decimal.Decimal `json:"unit_net_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// CartView is everything the cart page renders.
type CartView struct {
	Items        []CartLine       `json:"items"`
	ItemCount    int              `json:"item_count"`
	Total        decimal.Decimal  `json:"total"`
	TotalPayable decimal.Decimal  `json:"total_payable"`
	State        cart.State       `json:"state"`
	Checkout     *cart.Checkout   `json:"checkout,omitempty"`
	Stock        []cart.StockView `json:"stock_estimate"`
}

// CartService drives the ledger from catalog browsing and cart edits
type CartService struct {
	catalog   CatalogAPI
	pageLimit int
	logger    *zap.Logger
	now       func() time.Time
}

// NewCartService creates a cart service
func NewCartService(catalog CatalogAPI, pageLimit int) *CartService {
	if pageLimit <= 0 {
		pageLimit = models.DefaultLimit
	}
	return &CartService{
		catalog:   catalog,
		pageLimit: pageLimit,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Browse fetches one catalog page and merges it into the session snapshot.
// On failure the shopper sees an empty page and an error notification.
func (cs *CartService) Browse(ctx context.Context, sess *Session, page int, sort string) (models.ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Browse", sess.ID)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if sort == "" {
		_, _, sort = sess.Listing()
	}
	if !models.ValidSort(sort) {
		sort = models.SortLatest
	}

	result, err := cs.catalog.ListProducts(ctx, page, cs.pageLimit, sort)
	if err != nil {
		cs.logger.Warn("Failed to fetch products",
			zap.String("session_id", sess.ID),
			zap.Int("page", page),
			zap.Error(err))
		sess.Notifications.Error("Failed to load products. Please try again.")
		util.EndSpan(span, err)
		return models.ProductPage{
			Products:   []models.CatalogEntry{},
			Page:       page,
			TotalPages: 1,
			Sort:       sort,
		}, fmt.Errorf("list products: %w", err)
	}

	sess.Ledger.RefreshSnapshot(result.Products, cs.now())
	sess.setListing(result.Page, result.TotalPages, result.Sort)
	return result, nil
}

// Add puts one unit of a product from the snapshot into the cart
func (cs *CartService) Add(sess *Session, id models.ProductID) error {
	entry, ok := sess.Ledger.Entry(id)
	if !ok {
		sess.Notifications.Warning("Product not found. Please refresh the products.")
		err := fmt.Errorf("product %s: %w", id, models.ErrNotFound)
		recordMutation("add", err)
		return err
	}
	err := sess.Ledger.AddOrIncrement(entry)
	recordMutation("add", err)
	return err
}

// Increment raises a line item by one
func (cs *CartService) Increment(sess *Session, id models.ProductID) error {
	err := sess.Ledger.Increment(id)
	recordMutation("increment", err)
	return err
}

// Decrement lowers a line item by one
func (cs *CartService) Decrement(sess *Session, id models.ProductID) error {
	err := sess.Ledger.Decrement(id)
	recordMutation("decrement", err)
	return err
}

// Remove deletes a line item
func (cs *CartService) Remove(sess *Session, id models.ProductID) error {
	err := sess.Ledger.Remove(id)
	recordMutation("remove", err)
	return err
}

// View renders the cart
func (cs *CartService) View(sess *Session) CartView {
	items := sess.Ledger.Items()
	lines := make([]CartLine, 0, len(items))
	count := 0
	for _, it := range items {
		lines = append(lines, CartLine{
			LineItem:     it,
			UnitNetPrice: it.UnitNetPrice(),
			LineTotal:    it.LineTotal(),
		})
		count += it.Quantity
	}

	v := CartView{
		Items:        lines,
		ItemCount:    count,
		Total:        sess.Ledger.Total(),
		TotalPayable: sess.Ledger.TotalPayable(),
		State:        sess.Ledger.State(),
		Stock:        sess.Ledger.Snapshot(),
	}
	if co, ok := sess.Ledger.Pending(); ok {
		v.Checkout = &co
	}
	return v
}

func recordMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = models.KindOf(err)
	}
	util.CartMutationsTotal.WithLabelValues(op, result).Inc()
}
