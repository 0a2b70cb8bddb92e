package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"basketbay/internal/models"
)

// OrderClient talks to the order endpoints
type OrderClient struct {
	c *Client
}

// NewOrderClient creates an order client
func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

// PlaceOrder submits an order snapshot and returns the canonical record and
// the backend's confirmation message.
func (oc *OrderClient) PlaceOrder(ctx context.Context, token string, req models.OrderRequest, idempotencyKey string) (models.Order, string, error) {
	var resp struct {
		Order   *models.Order `json:"order"`
		Message string        `json:"message"`
	}

	r := request{
		call:   "orders.place",
		method: http.MethodPost,
		path:   "/api/orders",
		token:  token,
		body:   req,
	}
	if idempotencyKey != "" {
		r.headers = map[string]string{HeaderIdempotencyKey: idempotencyKey}
	}

	if err := oc.c.do(ctx, r, &resp); err != nil {
		return models.Order{}, "", err
	}
	if resp.Order == nil || resp.Order.ID == "" {
		return models.Order{}, "", fmt.Errorf("orders.place: %w: response carried no order", models.ErrNetwork)
	}
	return *resp.Order, resp.Message, nil
}

// CustomerOrders lists the orders placed by one customer
func (oc *OrderClient) CustomerOrders(ctx context.Context, token, customerID string) ([]models.Order, error) {
	var raw json.RawMessage
	err := oc.c.do(ctx, request{
		call:   "orders.customer",
		method: http.MethodGet,
		path:   "/api/orders/" + url.PathEscape(customerID),
		token:  token,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeOrders("orders.customer", raw)
}

// AllOrders lists every placed order, for the admin lineup
func (oc *OrderClient) AllOrders(ctx context.Context, token string) ([]models.Order, error) {
	var raw json.RawMessage
	err := oc.c.do(ctx, request{
		call:   "orders.all",
		method: http.MethodGet,
		path:   "/api/orders/all",
		token:  token,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeOrders("orders.all", raw)
}

func decodeOrders(call string, raw json.RawMessage) ([]models.Order, error) {
	orders := []models.Order{}
	if len(raw) == 0 {
		return orders, nil
	}
	if isJSONArray(raw) {
		if err := json.Unmarshal(raw, &orders); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", call, models.ErrNetwork, err)
		}
		return orders, nil
	}

	var wrapped struct {
		Orders []models.Order `json:"orders"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", call, models.ErrNetwork, err)
	}
	if wrapped.Orders != nil {
		orders = wrapped.Orders
	}
	return orders, nil
}
