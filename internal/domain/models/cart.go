package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartOwner определяет владельца корзины: пользователя или гостевую сессию.
// Ровно одно из полей должно быть заполнено.
type CartOwner struct {
	UserID    *int64
	SessionID *string
}

// Valid проверяет, что владелец задан ровно одним способом
func (o CartOwner) Valid() bool {
	return (o.UserID == nil) != (o.SessionID == nil)
}

// Cart - корзина пользователя или гостя
type Cart struct {
	ID        int64      `json:"id"`
	UserID    *int64     `json:"user_id,omitempty"`
	SessionID *string    `json:"session_id,omitempty"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem - позиция корзины. Ключ уникальности: (cart, product, color, size).
// Поля Product* заполняются через JOIN и равны nil, если товар уже удалён.
type CartItem struct {
	ID        int64  `json:"id"`
	CartID    int64  `json:"-"`
	ProductID int64  `json:"product_id"`
	ColorID   *int64 `json:"color_id,omitempty"`
	SizeID    *int64 `json:"size_id,omitempty"`
	Quantity  int    `json:"quantity"`

	ProductName  *string          `json:"product_name,omitempty"`
	ProductPrice *decimal.Decimal `json:"product_price,omitempty"`
	ProductStock *int             `json:"-"`
	ColorName    *string          `json:"color_name,omitempty"`
	SizeName     *string          `json:"size_name,omitempty"`

	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineTotal возвращает цену позиции; ok=false, если товар больше не существует
func (i CartItem) LineTotal() (decimal.Decimal, bool) {
	if i.ProductPrice == nil {
		return decimal.Zero, false
	}
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity))), true
}

// Total - сумма по всем позициям, позиции без товара пропускаются
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if line, ok := item.LineTotal(); ok {
			total = total.Add(line)
		}
	}
	return total
}
