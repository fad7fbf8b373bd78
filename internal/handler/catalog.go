package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

type furnitureRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
}

type cartItemRequest struct {
	ItemID string `json:"itemId"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// ListFurniture возвращает каталог; параметр category фильтрует его.
func (h *Handler) ListFurniture(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Furniture(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, err, "list furniture")
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// SearchFurniture ищет товары по параметру q.
func (h *Handler) SearchFurniture(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.SearchFurniture(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err, "search furniture")
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// GetFurniture возвращает товар по идентификатору.
func (h *Handler) GetFurniture(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.FurnitureItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, "get furniture")
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// CreateFurniture добавляет товар в каталог.
func (h *Handler) CreateFurniture(w http.ResponseWriter, r *http.Request) {
	var req furnitureRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.service.CreateFurniture(r.Context(), model.FurnitureItem{
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Description: req.Description,
		Image:       req.Image,
		Stock:       req.Stock,
		Featured:    req.Featured,
	})
	if err != nil {
		h.fail(w, err, "create furniture")
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// GetCart возвращает корзину.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Cart())
}

// AddToCart добавляет товар в корзину.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		h.writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	view, err := h.service.AddToCart(r.Context(), req.ItemID)
	if err != nil {
		h.fail(w, err, "add to cart")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// UpdateCartItem меняет количество позиции.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.SetCartQuantity(chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.fail(w, err, "update cart item")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.RemoveFromCart(chi.URLParam(r, "id")))
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.ClearCart())
}
