package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/generation"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

var (
	// ErrNoGeneratedDesign возвращается при отправке AI-дизайна до завершения генерации.
	ErrNoGeneratedDesign = fmt.Errorf("%w: no completed design to send", validation.ErrInvalidInput)
	// ErrUnknownRequestType возвращается для неизвестного вида индивидуального заказа.
	ErrUnknownRequestType = fmt.Errorf("%w: unknown request type", validation.ErrInvalidInput)
	// ErrRequestNotFound возвращается при выборе отсутствующего заказа.
	ErrRequestNotFound = fmt.Errorf("%w: custom request not found", validation.ErrInvalidInput)
)

// CustomRequestInput описывает индивидуальный заказ, введённый пользователем.
// Для вида image поле Content содержит изображение.
type CustomRequestInput struct {
	Type        model.CustomRequestType `json:"type"`
	Content     string                  `json:"content"`
	Preferences []string                `json:"preferences"`
}

// SubmitCustomRequest отправляет индивидуальный заказ. Для вида ai-generated
// используется результат последней завершённой генерации.
func (s *Service) SubmitCustomRequest(ctx context.Context, in CustomRequestInput) (model.CustomRequest, error) {
	token, err := s.token()
	if err != nil {
		return model.CustomRequest{}, err
	}

	req := model.CustomRequest{
		Type:        in.Type,
		Preferences: validation.Preferences(in.Preferences),
	}

	switch in.Type {
	case model.CustomRequestDescription, model.CustomRequestImage:
		content := strings.TrimSpace(in.Content)
		if content == "" {
			return model.CustomRequest{}, validation.ErrMissingContent
		}
		req.Content = content
	case model.CustomRequestAIGenerated:
		snap := s.generation.Snapshot()
		if snap.State != generation.StateCompleted || snap.Image == "" {
			return model.CustomRequest{}, ErrNoGeneratedDesign
		}
		req.GeneratedImage = snap.Image
		req.RoomImage = snap.RoomImage
		req.Prompt = snap.Prompt
	default:
		return model.CustomRequest{}, ErrUnknownRequestType
	}

	res := s.backend.CreateCustomRequest(ctx, req, token)
	if !res.Success {
		return model.CustomRequest{}, s.check(res.Err())
	}

	s.invalidateCustom()
	s.logger.Info("custom request submitted", zap.String("type", string(in.Type)), zap.String("id", res.Data.ID))

	return res.Data, nil
}

// CustomRequests возвращает индивидуальные заказы. Список кэшируется до первого изменения.
func (s *Service) CustomRequests(ctx context.Context) ([]model.CustomRequest, error) {
	s.mu.Lock()
	if s.cached {
		out := make([]model.CustomRequest, len(s.custom))
		copy(out, s.custom)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	return s.reloadCustom(ctx)
}

// SelectRequest выбирает заказ для административных действий.
func (s *Service) SelectRequest(ctx context.Context, requestID string) (model.CustomRequest, error) {
	list, err := s.CustomRequests(ctx)
	if err != nil {
		return model.CustomRequest{}, err
	}

	for _, r := range list {
		if r.ID == requestID {
			s.mu.Lock()
			s.selected = requestID
			s.mu.Unlock()
			return r, nil
		}
	}
	return model.CustomRequest{}, ErrRequestNotFound
}

// SelectedRequest возвращает идентификатор выбранного заказа.
func (s *Service) SelectedRequest() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selected, s.selected != ""
}

// SendInvoice выставляет счёт по заказу, перечитывает список и снимает выбор.
func (s *Service) SendInvoice(ctx context.Context, requestID string, amount decimal.Decimal) ([]model.CustomRequest, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}
	if err := validation.Amount(amount); err != nil {
		return nil, err
	}

	if err := s.check(s.backend.SendInvoice(ctx, requestID, amount, token).Err()); err != nil {
		return nil, err
	}
	return s.afterAdminAction(ctx, requestID)
}

// RejectRequest отклоняет заказ с указанием причины.
func (s *Service) RejectRequest(ctx context.Context, requestID, reason string) ([]model.CustomRequest, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}
	if err := validation.Reason(reason); err != nil {
		return nil, err
	}

	if err := s.check(s.backend.RejectRequest(ctx, requestID, strings.TrimSpace(reason), token).Err()); err != nil {
		return nil, err
	}
	return s.afterAdminAction(ctx, requestID)
}

// AddToDelivery передаёт оплаченный заказ в доставку.
func (s *Service) AddToDelivery(ctx context.Context, requestID string) ([]model.CustomRequest, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}

	if err := s.check(s.backend.AddToDelivery(ctx, requestID, token).Err()); err != nil {
		return nil, err
	}
	return s.afterAdminAction(ctx, requestID)
}

func (s *Service) afterAdminAction(ctx context.Context, requestID string) ([]model.CustomRequest, error) {
	s.mu.Lock()
	if s.selected == requestID {
		s.selected = ""
	}
	s.mu.Unlock()

	s.invalidateCustom()
	return s.reloadCustom(ctx)
}

func (s *Service) reloadCustom(ctx context.Context) ([]model.CustomRequest, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	res := s.backend.ListCustomRequests(ctx, token)
	if !res.Success {
		return nil, s.check(res.Err())
	}

	list := nonNil(res.Data)

	s.mu.Lock()
	s.custom = list
	s.cached = true
	s.mu.Unlock()

	out := make([]model.CustomRequest, len(list))
	copy(out, list)
	return out, nil
}

func (s *Service) invalidateCustom() {
	s.mu.Lock()
	s.custom = nil
	s.cached = false
	s.mu.Unlock()
}
