package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// SendMessage отправляет сообщение пользователю toUserID.
func (c *Client) SendMessage(ctx context.Context, toUserID, message, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/messages",
		token:  token,
		body: map[string]string{
			"toUserId": toUserID,
			"message":  message,
		},
	}, ack)
}

// Messages возвращает сообщения переписки с otherUserID.
func (c *Client) Messages(ctx context.Context, otherUserID, token string) Result[[]model.Message] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/messages/" + url.PathEscape(otherUserID),
		token:  token,
	}, dataOf[[]model.Message])
}

// Conversations возвращает список переписок текущего пользователя.
func (c *Client) Conversations(ctx context.Context, token string) Result[[]model.Conversation] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/messages/conversations",
		token:  token,
	}, dataOf[[]model.Conversation])
}

// CloseConversation закрывает переписку с otherUserID.
func (c *Client) CloseConversation(ctx context.Context, otherUserID, token string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/messages/close/" + url.PathEscape(otherUserID),
		token:  token,
		body:   struct{}{},
	}, ack)
}
