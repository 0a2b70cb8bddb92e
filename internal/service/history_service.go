package service

import (
	"context"
	"sort"
	"time"

	"basketbay/internal/models"
	"basketbay/internal/util"

	"go.uber.org/zap"
)

// DayGroup is the recent orders placed on one calendar day.
type DayGroup struct {
	Date        string         `json:"date"`
	Orders      []models.Order `json:"orders"`
	ItemCount   int            `json:"item_count"`
	TotalAmount int64          `json:"total_amount"`
}

// HistoryService keeps each session's recent orders in step with the order
// service and the recent-orders cache.
type HistoryService struct {
	orders OrderAPI
	cache  RecentOrdersCache
	loc    *time.Location
	logger *zap.Logger
}

// NewHistoryService creates a history service
func NewHistoryService(orders OrderAPI, cache RecentOrdersCache) *HistoryService {
	return &HistoryService{
		orders: orders,
		cache:  cache,
		loc:    time.Local,
		logger: util.GetLogger(),
	}
}

// Refresh reloads the customer's orders from the order service. When that
// fails the cached list is used instead.
func (h *HistoryService) Refresh(ctx context.Context, sess *Session) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "HistoryService.Refresh", sess.ID)
	defer span.End()

	id := sess.Identity()
	if !id.Authenticated() {
		sess.setRecent(nil)
		return []models.Order{}, nil
	}

	orders, err := h.orders.CustomerOrders(ctx, id.Token, id.CustomerID)
	if err != nil {
		h.logger.Warn("Failed to fetch recent orders, using cache",
			zap.String("session_id", sess.ID),
			zap.String("customer_id", id.CustomerID),
			zap.Error(err))

		cached, cerr := h.cache.LoadRecentOrders(ctx, id.CustomerID)
		if cerr != nil {
			h.logger.Warn("Failed to load cached recent orders",
				zap.String("customer_id", id.CustomerID),
				zap.Error(cerr))
			return sess.RecentOrders(), err
		}
		sess.setRecent(cached)
		return cached, err
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	sess.setRecent(orders)
	h.persist(ctx, id.CustomerID, orders)
	return sess.RecentOrders(), nil
}

// Prepend records a freshly placed order at the head of the list and writes
// the whole list back to the cache.
func (h *HistoryService) Prepend(ctx context.Context, sess *Session, order models.Order) {
	orders := sess.prependRecent(order)
	if id := sess.Identity(); id.Authenticated() {
		h.persist(ctx, id.CustomerID, orders)
	} else if order.CustomerID != "" {
		h.persist(ctx, order.CustomerID, orders)
	}
}

// Clear drops the cached list for a customer
func (h *HistoryService) Clear(ctx context.Context, customerID string) {
	if err := h.cache.ClearRecentOrders(ctx, customerID); err != nil {
		h.logger.Warn("Failed to clear recent orders",
			zap.String("customer_id", customerID),
			zap.Error(err))
	}
}

// Grouped buckets the session's recent orders by calendar day, newest day first.
func (h *HistoryService) Grouped(sess *Session) []DayGroup {
	return groupByDay(sess.RecentOrders(), h.loc)
}

func (h *HistoryService) persist(ctx context.Context, customerID string, orders []models.Order) {
	if err := h.cache.SaveRecentOrders(ctx, customerID, orders); err != nil {
		h.logger.Warn("Failed to cache recent orders",
			zap.String("customer_id", customerID),
			zap.Error(err))
	}
}

func groupByDay(orders []models.Order, loc *time.Location) []DayGroup {
	index := map[string]int{}
	groups := []DayGroup{}
	days := map[string]time.Time{}

	for _, o := range orders {
		t := o.CreatedAt.In(loc)
		key := t.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: key, Orders: []models.Order{}})
			days[key] = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
		g := &groups[i]
		g.Orders = append(g.Orders, o)
		g.ItemCount += o.ItemCount()
		g.TotalAmount += o.TotalAmount
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return days[groups[i].Date].After(days[groups[j].Date])
	})
	return groups
}
