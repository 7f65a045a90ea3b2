package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога. Stock - единственный ресурс,
// за который конкурируют параллельные оформления заказа.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	BrandID     *int64          `json:"brand_id,omitempty"`
	GenderID    *int64          `json:"gender_id,omitempty"`
	Colors      []Variant       `json:"colors,omitempty"`
	Sizes       []Variant       `json:"sizes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasStock - хватает ли остатка на qty единиц
func (p *Product) HasStock(qty int) bool {
	return qty <= p.Stock
}

// Variant - цвет или размер, доступный для товара
type Variant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Типы движения остатков
const (
	MovementCheckout      = "checkout"
	MovementCancelRestock = "cancel_restock"
)

// StockMovement - запись журнала остатков. Delta отрицательная при списании
// и положительная при возврате на склад.
type StockMovement struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	OrderID   *int64    `json:"order_id,omitempty"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
