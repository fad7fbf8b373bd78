package gateway

import (
	"errors"
	"fmt"
)

// Kind классифицирует неуспешный результат вызова backend.
type Kind int

const (
	KindNone Kind = iota
	// KindTransport — сетевая ошибка или некорректный ответ.
	KindTransport
	// KindBackend — backend явно вернул success=false.
	KindBackend
	// KindUnauthorized — backend отклонил учётные данные.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindBackend:
		return "backend"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Empty используется как Data для вызовов, которые ничего не возвращают.
type Empty struct{}

// Result — единый результат любого вызова backend.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"-"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](kind Kind, msg string) Result[T] {
	return Result[T]{Kind: kind, Error: msg}
}

// Unauthorized сообщает, что backend отклонил учётные данные.
func (r Result[T]) Unauthorized() bool {
	return !r.Success && r.Kind == KindUnauthorized
}

// Err возвращает *Error для неуспешного результата и nil для успешного.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Error}
}

// Error описывает неуспешный вызов backend в виде значения error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsUnauthorized сообщает, что err получена из результата с KindUnauthorized.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindUnauthorized
}
