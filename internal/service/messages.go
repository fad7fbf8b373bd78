package service

import (
	"context"

	"github.com/mmeshcher/woodcraft-storefront/internal/messaging"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// Conversations возвращает переписки текущего пользователя.
func (s *Service) Conversations(ctx context.Context) ([]model.Conversation, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	convs, err := s.messages.Conversations(ctx, token)
	if err != nil {
		return nil, s.check(err)
	}
	return convs, nil
}

// OpenConversation открывает переписку и запускает её обновление.
func (s *Service) OpenConversation(ctx context.Context, otherUserID string) (messaging.View, error) {
	token, err := s.token()
	if err != nil {
		return messaging.View{}, err
	}

	view, err := s.messages.Open(ctx, otherUserID, token)
	if err != nil {
		return view, s.check(err)
	}
	return view, nil
}

// Messages возвращает сообщения открытой переписки по последней успешной загрузке.
func (s *Service) Messages() messaging.View {
	return s.messages.View()
}

// SendMessage отправляет сообщение в открытую переписку и перечитывает её.
func (s *Service) SendMessage(ctx context.Context, text string) (messaging.View, error) {
	token, err := s.token()
	if err != nil {
		return messaging.View{}, err
	}

	view, err := s.messages.Send(ctx, text, token)
	if err != nil {
		return view, s.check(err)
	}
	return view, nil
}

// LeaveConversation останавливает обновление открытой переписки.
func (s *Service) LeaveConversation() {
	s.messages.Close()
}

// CloseConversation закрывает открытую переписку на стороне backend.
func (s *Service) CloseConversation(ctx context.Context) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	return s.check(s.messages.CloseConversation(ctx, token))
}
