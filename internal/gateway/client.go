// Package gateway предоставляет типизированный клиент backend магазина WoodCraft.
//
// Ни один метод клиента не возвращает ошибку транспорта вызывающему коду:
// сетевые сбои и некорректные ответы превращаются в Result с Success=false.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const maxResponseSize = 32 << 20

// ErrNotConfigured возвращается, если у клиента не задан адрес backend.
var ErrNotConfigured = errors.New("gateway client not configured")

// Options задаёт параметры HTTP-транспорта клиента.
type Options struct {
	Timeout time.Duration
	// RetryMax ограничивает повторы GET-запросов; POST не повторяется никогда,
	// чтобы не создать дубликат задания, счёта или сообщения.
	RetryMax int
	Logger   *zap.Logger
}

type noRetryKey struct{}

// retryPolicy повторяет только запросы, не помеченные как неидемпотентные.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if noRetry, _ := ctx.Value(noRetryKey{}).(bool); noRetry {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Client инкапсулирует HTTP-взаимодействие с backend магазина.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewClient создаёт клиент backend по указанному адресу.
func NewClient(baseURL string, opts Options) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = opts.RetryMax
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = &leveledLogger{s: opts.Logger.Sugar()}
	}

	return &Client{
		baseURL:    base,
		httpClient: rc,
	}
}

// BaseURL возвращает нормализованный адрес backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	token  string
	body   any
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// dataResponse описывает типичный ответ backend вида {success, data}.
type dataResponse[T any] struct {
	Data T `json:"data"`
}

// call выполняет запрос и приводит ответ к Result. pick извлекает полезные данные из тела ответа.
func call[R, T any](ctx context.Context, c *Client, r request, pick func(R) T) Result[T] {
	raw, status, err := c.roundTrip(ctx, r)
	if err != nil {
		return fail[T](KindTransport, err.Error())
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if isAuthStatus(status) {
			return fail[T](KindUnauthorized, http.StatusText(status))
		}
		return fail[T](KindTransport, fmt.Sprintf("decode response: %v", err))
	}

	if isAuthStatus(status) {
		msg := env.text()
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fail[T](KindUnauthorized, msg)
	}

	if !env.Success {
		msg := env.text()
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", status)
		}
		return fail[T](KindBackend, msg)
	}

	var resp R
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fail[T](KindTransport, fmt.Sprintf("decode response: %v", err))
	}

	return ok(pick(resp))
}

func dataOf[T any](r dataResponse[T]) T {
	return r.Data
}

func ack(envelope) Empty {
	return Empty{}
}

func (c *Client) roundTrip(ctx context.Context, r request) ([]byte, int, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, ErrNotConfigured
	}

	var body any
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	if r.method != http.MethodGet {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return raw, resp.StatusCode, nil
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
