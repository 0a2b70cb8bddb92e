package service

import (
	"context"
	"testing"

	"basketbay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminSession(e *env) *Session {
	sess := e.sessions.Create()
	sess.setAdmin(true)
	return sess
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	e := newEnv(t)
	sess := e.sessions.Create()
	ctx := context.Background()

	_, err := e.admin.Products(ctx, sess, 1)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = e.admin.IncreaseStock(ctx, sess, "tea")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.ErrorIs(t, e.admin.DeleteProduct(ctx, sess, "tea"), models.ErrValidation)
	_, err = e.admin.LineupOrders(ctx, sess)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, e.events.stock)
}

func TestValidateNewProduct(t *testing.T) {
	p := models.NewProduct{
		Name:        "Tea",
		Description: "Assam",
		Price:       decimal.NewFromInt(100),
		Discount:    decimal.NewFromInt(10),
		Count:       4,
	}
	assert.NoError(t, ValidateNewProduct(p))

	p.Price = decimal.Zero
	p.Count = 0
	p.Discount = decimal.NewFromInt(101)
	p.Name = " "

	err := ValidateNewProduct(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	fe := err.(FieldErrors)
	assert.Equal(t, FieldErrors{
		"name":     "required",
		"price":    "must be greater than 0",
		"count":    "must be greater than 0",
		"discount": "must be between 0 and 100",
	}, fe)
}

func TestAddProductPublishesStock(t *testing.T) {
	e := newEnv(t)
	e.catalog.entry = models.CatalogEntry{ID: "new", AvailableStock: 4}
	sess := adminSession(e)

	entry, err := e.admin.AddProduct(context.Background(), sess, models.NewProduct{
		Name:        "Tea",
		Description: "Assam",
		Price:       decimal.NewFromInt(100),
		Count:       4,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProductID("new"), entry.ID)

	require.Len(t, e.events.stock, 1)
	assert.Equal(t, 4, e.events.stock[0].Count)
	assert.Equal(t, []string{"Product added to Inventory!"}, messages(sess.Notifications))
}

func TestStockChangesPublishEvents(t *testing.T) {
	e := newEnv(t)
	e.catalog.entry = models.CatalogEntry{ID: "tea", AvailableStock: 6}
	sess := adminSession(e)
	ctx := context.Background()

	_, err := e.admin.IncreaseStock(ctx, sess, "tea")
	require.NoError(t, err)
	_, err = e.admin.DecreaseStock(ctx, sess, "tea")
	require.NoError(t, err)
	require.NoError(t, e.admin.DeleteProduct(ctx, sess, "tea"))

	require.Len(t, e.events.stock, 3)
	assert.Equal(t, 6, e.events.stock[0].Count)
	assert.True(t, e.events.stock[2].Deleted)
	assert.Equal(t, []string{
		"1 Product added to inventory!",
		"1 Product removed from inventory!",
		"Product removed from inventory!",
	}, messages(sess.Notifications))
}

func TestStockChangeFailureNotifies(t *testing.T) {
	e := newEnv(t)
	e.catalog.stockErr = models.ErrNetwork
	sess := adminSession(e)

	_, err := e.admin.DecreaseStock(context.Background(), sess, "tea")
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Empty(t, e.events.stock)
	assert.Equal(t, []string{"Failed to update product!"}, messages(sess.Notifications))
}

func TestLineupOrders(t *testing.T) {
	e := newEnv(t)
	e.orders.all = []models.Order{{ID: "o1"}, {ID: "o2"}}
	sess := adminSession(e)

	orders, err := e.admin.LineupOrders(context.Background(), sess)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
