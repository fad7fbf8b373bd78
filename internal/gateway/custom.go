package gateway

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// CreateCustomRequest отправляет индивидуальный заказ администратору.
func (c *Client) CreateCustomRequest(ctx context.Context, req model.CustomRequest, token string) Result[model.CustomRequest] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/custom-requests",
		token:  token,
		body:   req,
	}, dataOf[model.CustomRequest])
}

// ListCustomRequests возвращает индивидуальные заказы. Администратор видит заказы всех пользователей.
func (c *Client) ListCustomRequests(ctx context.Context, token string) Result[[]model.CustomRequest] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/custom-requests",
		token:  token,
	}, dataOf[[]model.CustomRequest])
}

// SendInvoice выставляет счёт по индивидуальному заказу.
func (c *Client) SendInvoice(ctx context.Context, requestID string, amount decimal.Decimal, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/admin/invoice",
		token:  token,
		body: struct {
			RequestID string          `json:"requestId"`
			Amount    decimal.Decimal `json:"amount"`
		}{requestID, amount},
	}, ack)
}

// RejectRequest отклоняет индивидуальный заказ с указанием причины.
func (c *Client) RejectRequest(ctx context.Context, requestID, reason, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/admin/reject-request",
		token:  token,
		body: map[string]string{
			"requestId": requestID,
			"reason":    reason,
		},
	}, ack)
}

// AddToDelivery переводит оплаченный заказ в доставку.
func (c *Client) AddToDelivery(ctx context.Context, requestID, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/admin/delivery",
		token:  token,
		body:   map[string]string{"requestId": requestID},
	}, ack)
}
