// Package model содержит доменные сущности клиента магазина WoodCraft.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity представляет аутентифицированного пользователя.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// FurnitureItem описывает позицию каталога.
type FurnitureItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
}

// CartLine описывает строку корзины.
type CartLine struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

// LineTotal возвращает стоимость строки с учётом количества.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// GenerationStatus описывает статус задания генерации на стороне backend.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationGenerating GenerationStatus = "generating"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// IsTerminal сообщает, что статус больше не изменится.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationCompleted || s == GenerationFailed
}

// GenerationJob описывает задание генерации изображения комнаты.
type GenerationJob struct {
	GenerationID      string           `json:"generationId"`
	Status            GenerationStatus `json:"status"`
	RoomImageRef      string           `json:"roomImageRef,omitempty"`
	Prompt            string           `json:"prompt,omitempty"`
	GeneratedImageURL string           `json:"generatedImageUrl,omitempty"`
	RoomAnalysis      string           `json:"roomAnalysis,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// HistoryRecord описывает завершённую генерацию в истории пользователя.
type HistoryRecord struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"-"`
	Image        string    `json:"image"`
	Prompt       string    `json:"prompt"`
	RoomAnalysis string    `json:"roomAnalysis,omitempty"`
	CreatedAt    time.Time `json:"date"`
}

// CustomRequestType описывает вид индивидуального заказа.
type CustomRequestType string

const (
	CustomRequestDescription CustomRequestType = "description"
	CustomRequestImage       CustomRequestType = "image"
	CustomRequestAIGenerated CustomRequestType = "ai-generated"
)

// CustomRequestStatus описывает статус индивидуального заказа. Статусом владеет backend.
type CustomRequestStatus string

const (
	CustomRequestPending  CustomRequestStatus = "pending"
	CustomRequestInvoiced CustomRequestStatus = "invoiced"
	CustomRequestRejected CustomRequestStatus = "rejected"
)

// CustomRequest описывает индивидуальный заказ пользователя.
type CustomRequest struct {
	ID             string              `json:"id"`
	User           string              `json:"user,omitempty"`
	Type           CustomRequestType   `json:"type"`
	Content        string              `json:"content,omitempty"`
	GeneratedImage string              `json:"generatedImage,omitempty"`
	RoomImage      string              `json:"roomImage,omitempty"`
	Prompt         string              `json:"prompt,omitempty"`
	Preferences    []string            `json:"preferences"`
	Status         CustomRequestStatus `json:"status,omitempty"`
	Date           string              `json:"date,omitempty"`
}

// AccessGrant описывает текущее право пользователя на AI-генерацию.
type AccessGrant struct {
	UserID         string `json:"userId,omitempty"`
	HasAccess      bool   `json:"hasAccess"`
	TimeRemaining  int    `json:"timeRemaining"`
	RequestPending bool   `json:"requestPending"`
}

// AccessRequest описывает запрос пользователя на доступ к AI, ожидающий решения администратора.
type AccessRequest struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Status   string `json:"status,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Conversation описывает переписку с другим пользователем.
type Conversation struct {
	OtherUserID   string `json:"otherUserId"`
	OtherUsername string `json:"otherUsername"`
	LastMessage   string `json:"lastMessage"`
}

// Message описывает одно сообщение переписки.
type Message struct {
	MessageID  string `json:"messageId"`
	FromUserID string `json:"fromUserId"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}
