package gateway

import (
	"context"
	"net/http"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// LoginData содержит результат успешного входа.
type LoginData struct {
	Identity model.Identity
	Token    string
}

type loginUser struct {
	ID       string     `json:"id"`
	UserID   string     `json:"userId"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

type loginResponse struct {
	User  loginUser `json:"user"`
	Token string    `json:"token"`
}

func (r loginResponse) toData() LoginData {
	id := r.User.UserID
	if id == "" {
		id = r.User.ID
	}
	role := r.User.Role
	if role == "" {
		role = model.RoleCustomer
	}
	return LoginData{
		Identity: model.Identity{
			UserID:   id,
			Username: r.User.Username,
			Email:    r.User.Email,
			Role:     role,
		},
		Token: r.Token,
	}
}

// Signup регистрирует пользователя; backend отправляет код подтверждения на почту.
func (c *Client) Signup(ctx context.Context, email, username, password string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/signup",
		body: map[string]string{
			"email":    email,
			"username": username,
			"password": password,
		},
	}, ack)
}

// VerifyEmail подтверждает адрес почты кодом из письма.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) Result[Empty] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/verify",
		body: map[string]string{
			"email": email,
			"code":  code,
		},
	}, ack)
}

// Login выполняет вход по логину или почте.
func (c *Client) Login(ctx context.Context, identifier, password string) Result[LoginData] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body: map[string]string{
			"identifier": identifier,
			"password":   password,
		},
	}, loginResponse.toData)
}
