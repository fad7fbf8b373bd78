package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

// ErrItemNotInCart возвращается при изменении количества отсутствующей позиции.
var ErrItemNotInCart = errors.New("item is not in the cart")

// CartView — копия корзины с рассчитанными суммами.
type CartView struct {
	Lines    []model.CartLine `json:"lines"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Shipping decimal.Decimal  `json:"shipping"`
	Total    decimal.Decimal  `json:"total"`
}

// Furniture возвращает каталог, при непустой category — только её товары.
func (s *Service) Furniture(ctx context.Context, category string) ([]model.FurnitureItem, error) {
	res := s.backend.ListFurniture(ctx, strings.TrimSpace(category))
	if !res.Success {
		return nil, res.Err()
	}
	return nonNil(res.Data), nil
}

// SearchFurniture ищет товары по строке запроса. Пустой запрос возвращает весь каталог.
func (s *Service) SearchFurniture(ctx context.Context, query string) ([]model.FurnitureItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Furniture(ctx, "")
	}

	res := s.backend.SearchFurniture(ctx, query)
	if !res.Success {
		return nil, res.Err()
	}
	return nonNil(res.Data), nil
}

// FurnitureItem возвращает товар по идентификатору.
func (s *Service) FurnitureItem(ctx context.Context, id string) (model.FurnitureItem, error) {
	res := s.backend.GetFurniture(ctx, id)
	if !res.Success {
		return model.FurnitureItem{}, res.Err()
	}
	return res.Data, nil
}

// CreateFurniture добавляет товар в каталог. Только для администратора.
func (s *Service) CreateFurniture(ctx context.Context, item model.FurnitureItem) (model.FurnitureItem, error) {
	token, err := s.adminToken()
	if err != nil {
		return model.FurnitureItem{}, err
	}

	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)
	if err := validation.CatalogItem(item.Name, item.Price, item.Description); err != nil {
		return model.FurnitureItem{}, err
	}

	res := s.backend.CreateFurniture(ctx, item, token)
	if !res.Success {
		return model.FurnitureItem{}, s.check(res.Err())
	}
	return res.Data, nil
}

// Cart возвращает текущее содержимое корзины.
func (s *Service) Cart() CartView {
	v := s.cart.View()
	return CartView{
		Lines:    v.Lines,
		Subtotal: v.Subtotal,
		Shipping: v.Shipping,
		Total:    v.Total,
	}
}

// AddToCart загружает товар из каталога и добавляет его в корзину.
func (s *Service) AddToCart(ctx context.Context, itemID string) (CartView, error) {
	item, err := s.FurnitureItem(ctx, itemID)
	if err != nil {
		return s.Cart(), err
	}
	if err := s.cart.Add(item); err != nil {
		return s.Cart(), err
	}
	return s.Cart(), nil
}

// RemoveFromCart удаляет позицию из корзины.
func (s *Service) RemoveFromCart(itemID string) CartView {
	s.cart.Remove(itemID)
	return s.Cart()
}

// SetCartQuantity меняет количество; quantity <= 0 удаляет позицию.
func (s *Service) SetCartQuantity(itemID string, quantity int) (CartView, error) {
	if !s.cart.SetQuantity(itemID, quantity) {
		return s.Cart(), ErrItemNotInCart
	}
	return s.Cart(), nil
}

// ClearCart очищает корзину.
func (s *Service) ClearCart() CartView {
	s.cart.Clear()
	return s.Cart()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
