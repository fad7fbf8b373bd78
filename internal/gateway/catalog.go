package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// ListFurniture возвращает каталог, при непустой category — только указанную категорию.
func (c *Client) ListFurniture(ctx context.Context, category string) Result[[]model.FurnitureItem] {
	path := "/furniture"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	return call(ctx, c, request{method: http.MethodGet, path: path}, dataOf[[]model.FurnitureItem])
}

// SearchFurniture выполняет полнотекстовый поиск по каталогу.
func (c *Client) SearchFurniture(ctx context.Context, query string) Result[[]model.FurnitureItem] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/furniture/search?query=" + url.QueryEscape(query),
	}, dataOf[[]model.FurnitureItem])
}

// GetFurniture возвращает позицию каталога по идентификатору.
func (c *Client) GetFurniture(ctx context.Context, id string) Result[model.FurnitureItem] {
	return call(ctx, c, request{
		method: http.MethodGet,
		path:   "/furniture/" + url.PathEscape(id),
	}, dataOf[model.FurnitureItem])
}

// CreateFurniture добавляет позицию в каталог. Требует прав администратора.
func (c *Client) CreateFurniture(ctx context.Context, item model.FurnitureItem, token string) Result[model.FurnitureItem] {
	return call(ctx, c, request{
		method: http.MethodPost,
		path:   "/furniture",
		token:  token,
		body:   item,
	}, dataOf[model.FurnitureItem])
}
