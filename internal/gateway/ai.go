package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

type generateResponse struct {
	GenerationID string `json:"generationId"`
}

type accessResponse struct {
	HasAccess      bool `json:"hasAccess"`
	TimeRemaining  int  `json:"timeRemaining"`
	RequestPending bool `json:"requestPending"`
}

// GenerateRoom ставит задание на генерацию нового дизайна комнаты и возвращает его идентификатор.
func (c *Client) GenerateRoom(ctx context.Context, roomImage, prompt, token string) Result[string] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/ai/generate-room",
		token:  token,
		body: map[string]string{
			"roomImage": roomImage,
			"prompt":    prompt,
		},
	}, func(r generateResponse) string { return r.GenerationID })
}

// GenerationStatus возвращает текущее состояние задания генерации.
func (c *Client) GenerationStatus(ctx context.Context, generationID, token string) Result[model.GenerationJob] {
	res := call(ctx, c, request{
		method: http.MethodGet,
		path:   "/ai/generation/" + url.PathEscape(generationID),
		token:  token,
	}, dataOf[model.GenerationJob])
	if res.Success && res.Data.GenerationID == "" {
		res.Data.GenerationID = generationID
	}
	return res
}

// RequestAIAccess отправляет администратору запрос на доступ к AI-генерации.
func (c *Client) RequestAIAccess(ctx context.Context, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/ai/request-access",
		token:  token,
		body:   struct{}{},
	}, ack)
}

// CheckAIAccess возвращает текущее право пользователя на AI-генерацию.
func (c *Client) CheckAIAccess(ctx context.Context, token string) Result[model.AccessGrant] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/ai/check-access",
		token:  token,
	}, func(r accessResponse) model.AccessGrant {
		return model.AccessGrant{
			HasAccess:      r.HasAccess,
			TimeRemaining:  r.TimeRemaining,
			RequestPending: r.RequestPending,
		}
	})
}

// ListAIAccessRequests возвращает запросы на доступ к AI, ожидающие решения администратора.
func (c *Client) ListAIAccessRequests(ctx context.Context, token string) Result[[]model.AccessRequest] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/admin/ai-access-requests",
		token:  token,
	}, dataOf[[]model.AccessRequest])
}

// GrantAIAccess выдаёт пользователю доступ к AI на указанное число часов.
func (c *Client) GrantAIAccess(ctx context.Context, userID string, hours int, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/admin/grant-ai-access",
		token:  token,
		body: struct {
			UserID string `json:"userId"`
			Hours  int    `json:"hours"`
		}{userID, hours},
	}, ack)
}

// RejectAIAccess отклоняет запрос на доступ к AI.
func (c *Client) RejectAIAccess(ctx context.Context, requestID, reason, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/admin/reject-ai-access",
		token:  token,
		body: map[string]string{
			"requestId": requestID,
			"reason":    reason,
		},
	}, ack)
}
