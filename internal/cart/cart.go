// Package cart реализует корзину покупателя, которая живёт только в памяти до оформления заказа.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// DefaultShippingFee — стоимость доставки по умолчанию.
var DefaultShippingFee = decimal.NewFromInt(50)

var (
	// ErrInvalidItem возвращается при попытке добавить позицию без идентификатора.
	ErrInvalidItem = errors.New("item id is required")
	// ErrNegativePrice возвращается при попытке добавить позицию с отрицательной ценой.
	ErrNegativePrice = errors.New("item price must not be negative")
)

// Cart — упорядоченный набор строк, не более одной строки на позицию каталога.
type Cart struct {
	shippingFee decimal.Decimal

	mu    sync.Mutex
	lines []model.CartLine
}

// New создаёт пустую корзину с указанной стоимостью доставки.
func New(shippingFee decimal.Decimal) *Cart {
	return &Cart{shippingFee: shippingFee}
}

// Add увеличивает количество существующей строки на единицу или добавляет новую строку в конец.
func (c *Cart) Add(item model.FurnitureItem) error {
	if item.ID == "" {
		return ErrInvalidItem
	}
	if item.Price.IsNegative() {
		return ErrNegativePrice
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return nil
	}

	c.lines = append(c.lines, model.CartLine{
		ItemID:   item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Image:    item.Image,
		Quantity: 1,
	})
	return nil
}

// Remove удаляет строку; отсутствие строки не считается ошибкой.
func (c *Cart) Remove(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(itemID)
}

// SetQuantity задаёт количество; значение <= 0 удаляет строку.
// Возвращает false, если строки нет.
func (c *Cart) SetQuantity(itemID string, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.remove(itemID)
		return true
	}
	c.lines[i].Quantity = quantity
	return true
}

// Lines возвращает копию строк в порядке добавления.
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len возвращает количество строк.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lines)
}

// Subtotal возвращает сумму price*quantity по всем строкам.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.subtotal()
}

// ShippingFee возвращает стоимость доставки для текущего содержимого. Пустая корзина не доставляется.
func (c *Cart) ShippingFee() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.shipping()
}

// Total возвращает subtotal плюс стоимость доставки.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.subtotal().Add(c.shipping())
}

// View — согласованный снимок корзины: строки и суммы получены под одной блокировкой.
type View struct {
	Lines    []model.CartLine
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// View возвращает снимок корзины, в котором Total всегда равен Subtotal + Shipping.
func (c *Cart) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]model.CartLine, len(c.lines))
	copy(lines, c.lines)

	subtotal := c.subtotal()
	shipping := c.shipping()
	return View{
		Lines:    lines,
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// Clear удаляет все строки.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

func (c *Cart) shipping() decimal.Decimal {
	if len(c.lines) == 0 {
		return decimal.Zero
	}
	return c.shippingFee
}

func (c *Cart) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

func (c *Cart) indexOf(itemID string) int {
	for i, l := range c.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(itemID string) {
	i := c.indexOf(itemID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
