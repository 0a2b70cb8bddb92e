package service

import (
	"context"
	"fmt"

	"basketbay/internal/models"
	"basketbay/internal/util"

	"go.uber.org/zap"
)

// AdminService manages inventory and the order lineup for admin sessions
type AdminService struct {
	catalog   CatalogAPI
	orders    OrderAPI
	events    EventPublisher
	pageLimit int
	logger    *zap.Logger
}

// NewAdminService creates an admin service
func NewAdminService(catalog CatalogAPI, orders OrderAPI, events EventPublisher, pageLimit int) *AdminService {
	if pageLimit <= 0 {
		pageLimit = models.DefaultLimit
	}
	return &AdminService{
		catalog:   catalog,
		orders:    orders,
		events:    events,
		pageLimit: pageLimit,
		logger:    util.GetLogger(),
	}
}

func requireAdmin(sess *Session) error {
	if !sess.IsAdmin() {
		return fmt.Errorf("%w: admin login required", models.ErrValidation)
	}
	return nil
}

// Products lists the inventory, newest first
func (a *AdminService) Products(ctx context.Context, sess *Session, page int) (models.ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Products", sess.ID)
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return models.ProductPage{}, err
	}
	result, err := a.catalog.ListProducts(ctx, page, a.pageLimit, models.SortLatest)
	if err != nil {
		a.logger.Warn("Failed to fetch inventory", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error("Failed to load products. Please try again.")
		return models.ProductPage{}, err
	}
	return result, nil
}

// AddProduct validates and creates a product
func (a *AdminService) AddProduct(ctx context.Context, sess *Session, p models.NewProduct) (models.CatalogEntry, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.AddProduct", sess.ID)
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return models.CatalogEntry{}, err
	}
	if err := ValidateNewProduct(p); err != nil {
		sess.Notifications.Warning("Please fill in all product fields.")
		return models.CatalogEntry{}, err
	}

	entry, err := a.catalog.AddProduct(ctx, sess.Identity().Token, p)
	if err != nil {
		a.logger.Warn("Failed to add product",
			zap.String("session_id", sess.ID),
			zap.String("name", p.Name),
			zap.Error(err))
		sess.Notifications.Error("Failed to add product!")
		return models.CatalogEntry{}, err
	}

	sess.Notifications.Success("Product added to Inventory!")
	a.stockAdjusted(ctx, entry.ID, entry.AvailableStock, false)
	return entry, nil
}

// DeleteProduct removes a product from inventory
func (a *AdminService) DeleteProduct(ctx context.Context, sess *Session, id models.ProductID) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteProduct", sess.ID)
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := a.catalog.DeleteProduct(ctx, sess.Identity().Token, id); err != nil {
		a.logger.Warn("Failed to delete product",
			zap.String("session_id", sess.ID),
			zap.String("product_id", string(id)),
			zap.Error(err))
		sess.Notifications.Error("Failed to delete product!")
		return err
	}

	sess.Notifications.Success("Product removed from inventory!")
	a.stockAdjusted(ctx, id, 0, true)
	return nil
}

// IncreaseStock adds one unit of stock
func (a *AdminService) IncreaseStock(ctx context.Context, sess *Session, id models.ProductID) (models.CatalogEntry, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.IncreaseStock", sess.ID)
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return models.CatalogEntry{}, err
	}
	entry, err := a.catalog.IncreaseStock(ctx, sess.Identity().Token, id)
	if err != nil {
		a.logger.Warn("Failed to increase stock",
			zap.String("session_id", sess.ID),
			zap.String("product_id", string(id)),
			zap.Error(err))
		sess.Notifications.Error("Failed to increase stock")
		return models.CatalogEntry{}, err
	}

	sess.Notifications.Success("1 Product added to inventory!")
	a.stockAdjusted(ctx, entry.ID, entry.AvailableStock, false)
	return entry, nil
}

// DecreaseStock removes one unit of stock
func (a *AdminService) DecreaseStock(ctx context.Context, sess *Session, id models.ProductID) (models.CatalogEntry, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.DecreaseStock", sess.ID)
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return models.CatalogEntry{}, err
	}
	entry, err := a.catalog.DecreaseStock(ctx, sess.Identity().Token, id)
	if err != nil {
		a.logger.Warn("Failed to decrease stock",
			zap.String("session_id", sess.ID),
			zap.String("product_id", string(id)),
			zap.Error(err))
		sess.Notifications.Error("Failed to update product!")
		return models.CatalogEntry{}, err
	}

	sess.Notifications.Success("1 Product removed from inventory!")
	a.stockAdjusted(ctx, entry.ID, entry.AvailableStock, false)
	return entry, nil
}

// LineupOrders lists every placed order
func (a *AdminService) LineupOrders(ctx context.Context, sess *Session) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.LineupOrders", sess.ID)
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	orders, err := a.orders.AllOrders(ctx, sess.Identity().Token)
	if err != nil {
		a.logger.Warn("Failed to fetch order lineup", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error("Failed to load orders.")
		return nil, err
	}
	return orders, nil
}

// stockAdjusted tells every storefront instance about the new stock. An
// answer without a product id carries nothing to apply.
func (a *AdminService) stockAdjusted(ctx context.Context, id models.ProductID, count int, deleted bool) {
	if id == "" {
		return
	}
	err := a.events.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{
		ProductID: id,
		Count:     count,
		Deleted:   deleted,
	})
	if err != nil {
		a.logger.Warn("Failed to publish stock adjustment",
			zap.String("product_id", string(id)),
			zap.Error(err))
	}
}
