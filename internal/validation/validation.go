// Package validation содержит функции валидации пользовательского ввода.
// Все ошибки оборачивают ErrInvalidInput и выявляются до обращения к backend.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput — общая причина всех ошибок валидации.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrMissingRoomImage  = fmt.Errorf("%w: please upload a room image", ErrInvalidInput)
	ErrMissingPrompt     = fmt.Errorf("%w: please enter a prompt", ErrInvalidInput)
	ErrMissingCredential = fmt.Errorf("%w: identifier and password are required", ErrInvalidInput)
	ErrInvalidEmail      = fmt.Errorf("%w: email address is invalid", ErrInvalidInput)
	ErrMissingUsername   = fmt.Errorf("%w: username is required", ErrInvalidInput)
	ErrWeakPassword      = fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	ErrMissingCode       = fmt.Errorf("%w: verification code is required", ErrInvalidInput)
	ErrMissingItemFields = fmt.Errorf("%w: name, price and description are required", ErrInvalidInput)
	ErrInvalidPrice      = fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrMissingReason     = fmt.Errorf("%w: please provide a reason", ErrInvalidInput)
	ErrInvalidHours      = fmt.Errorf("%w: hours must be positive", ErrInvalidInput)
	ErrEmptyMessage      = fmt.Errorf("%w: message is empty", ErrInvalidInput)
	ErrMissingContent    = fmt.Errorf("%w: request content is required", ErrInvalidInput)
)

const minPasswordLength = 8

// GenerationInput проверяет входные данные генерации: фото комнаты и непустой запрос.
func GenerationInput(roomImage, prompt string) error {
	if strings.TrimSpace(roomImage) == "" {
		return ErrMissingRoomImage
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrMissingPrompt
	}
	return nil
}

// Credentials проверяет данные для входа.
func Credentials(identifier, password string) error {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return ErrMissingCredential
	}
	return nil
}

// Signup проверяет данные регистрации.
func Signup(email, username, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(username) == "" {
		return ErrMissingUsername
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Verification проверяет код подтверждения почты.
func Verification(email, code string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(code) == "" {
		return ErrMissingCode
	}
	return nil
}

// CatalogItem проверяет обязательные поля новой позиции каталога.
func CatalogItem(name string, price decimal.Decimal, description string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return ErrMissingItemFields
	}
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// Amount проверяет сумму счёта.
func Amount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Reason проверяет причину отказа.
func Reason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	return nil
}

// Hours проверяет длительность доступа к AI.
func Hours(hours int) error {
	if hours <= 0 {
		return ErrInvalidHours
	}
	return nil
}

// Message проверяет текст сообщения.
func Message(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Preferences убирает пробелы по краям и пустые пожелания, сохраняя порядок.
func Preferences(prefs []string) []string {
	out := make([]string, 0, len(prefs))
	for _, p := range prefs {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
