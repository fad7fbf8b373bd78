package service

import (
	"context"
	"time"

	"github.com/mmeshcher/woodcraft-storefront/internal/generation"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/session"
)

// AccessView — последнее известное право на AI-генерацию.
type AccessView struct {
	model.AccessGrant
	CheckedAt time.Time `json:"checkedAt"`
}

// StartGeneration запускает новую попытку генерации для текущего пользователя.
func (s *Service) StartGeneration(ctx context.Context, roomImage, prompt string) (generation.Snapshot, error) {
	token, err := s.token()
	if err != nil {
		return generation.Snapshot{}, err
	}
	identity, _ := s.session.Identity()

	snap, err := s.generation.Start(ctx, generation.Input{
		UserID:    identity.UserID,
		Token:     token,
		RoomImage: roomImage,
		Prompt:    prompt,
	})
	return snap, s.check(err)
}

// Generation возвращает состояние текущей попытки.
func (s *Service) Generation() generation.Snapshot {
	return s.generation.Snapshot()
}

// WaitGeneration ждёт завершения текущей попытки или отмены ctx.
func (s *Service) WaitGeneration(ctx context.Context) (generation.Snapshot, error) {
	return s.generation.Wait(ctx)
}

// CancelGeneration останавливает опрос текущей попытки.
func (s *Service) CancelGeneration() generation.Snapshot {
	s.generation.Cancel()
	return s.generation.Snapshot()
}

// GenerationHistory возвращает историю генераций текущего пользователя.
func (s *Service) GenerationHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	identity, ok := s.session.Identity()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	recs, err := s.generation.History(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return nonNil(recs), nil
}

// Access возвращает последнее известное право на генерацию; при отсутствии данных запрашивает его.
func (s *Service) Access(ctx context.Context) (AccessView, error) {
	token, err := s.token()
	if err != nil {
		return AccessView{}, err
	}

	grant, at := s.grant.Latest()
	if at.IsZero() {
		if grant, err = s.grant.Refresh(ctx, token); err != nil {
			return AccessView{}, s.check(err)
		}
		_, at = s.grant.Latest()
	}
	return AccessView{AccessGrant: grant, CheckedAt: at}, nil
}

// RequestAccess отправляет администратору запрос на доступ к AI.
func (s *Service) RequestAccess(ctx context.Context) (AccessView, error) {
	token, err := s.token()
	if err != nil {
		return AccessView{}, err
	}

	grant, err := s.grant.RequestAccess(ctx, token)
	if err != nil {
		return AccessView{}, s.check(err)
	}
	_, at := s.grant.Latest()
	return AccessView{AccessGrant: grant, CheckedAt: at}, nil
}

// AccessRequests возвращает запросы на доступ к AI, ожидающие решения. Только для администратора.
func (s *Service) AccessRequests(ctx context.Context) ([]model.AccessRequest, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}

	list, err := s.requests.Refresh(ctx, token)
	if err != nil {
		return nil, s.check(err)
	}
	return list, nil
}

// GrantAccess выдаёт пользователю доступ к AI на hours часов.
func (s *Service) GrantAccess(ctx context.Context, userID string, hours int) ([]model.AccessRequest, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}

	list, err := s.requests.Grant(ctx, userID, hours, token)
	if err != nil {
		return nil, s.check(err)
	}
	return list, nil
}

// RejectAccess отклоняет запрос на доступ с указанием причины.
func (s *Service) RejectAccess(ctx context.Context, requestID, reason string) ([]model.AccessRequest, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}

	list, err := s.requests.Reject(ctx, requestID, reason, token)
	if err != nil {
		return nil, s.check(err)
	}
	return list, nil
}
