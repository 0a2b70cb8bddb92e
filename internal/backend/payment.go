package backend

import (
	"context"
	"fmt"
	"net/http"

	"basketbay/internal/models"
)

// PaymentStatusSuccess is the only verification status that counts as paid
const PaymentStatusSuccess = "success"

// PaymentClient talks to the backend's payment gateway endpoints
type PaymentClient struct {
	c *Client
}

// NewPaymentClient creates a payment client
func NewPaymentClient(c *Client) *PaymentClient {
	return &PaymentClient{c: c}
}

// CreateGatewayOrder obtains a payable handle for amount. Any failure is a
// gateway error and aborts the checkout.
func (pc *PaymentClient) CreateGatewayOrder(ctx context.Context, token string, amount int64) (models.GatewayOrder, error) {
	var order models.GatewayOrder
	err := pc.c.do(ctx, request{
		call:   "payment.gateway_order",
		method: http.MethodPost,
		path:   "/api/payment/payment-gateway",
		token:  token,
		body:   map[string]int64{"amount": amount},
	}, &order)
	if err != nil {
		return models.GatewayOrder{}, fmt.Errorf("%w: %v", models.ErrGateway, err)
	}
	if order.ID == "" {
		return models.GatewayOrder{}, fmt.Errorf("%w: gateway returned no order id", models.ErrGateway)
	}
	return order, nil
}

// VerifyPayment asks the backend to check a client-asserted receipt and
// returns the reported status.
func (pc *PaymentClient) VerifyPayment(ctx context.Context, token string, receipt models.PaymentReceipt) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	err := pc.c.do(ctx, request{
		call:   "payment.verify",
		method: http.MethodPost,
		path:   "/api/payment/verify-payment",
		token:  token,
		body:   receipt,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGateway, err)
	}
	return resp.Status, nil
}
