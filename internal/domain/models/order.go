package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы заказа
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// Статусы оплаты
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Order - неизменяемый снимок оформленной корзины.
// Меняются только статусы, оплата и данные доставки.
type Order struct {
	ID                int64           `json:"id"`
	UserID            *int64          `json:"user_id,omitempty"`
	OrderNumber       string          `json:"order_number"`
	Status            string          `json:"status"`
	ShippingAddressID *int64          `json:"shipping_address_id,omitempty"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentStatus     string          `json:"payment_status"`
	TransactionID     *string         `json:"transaction_id,omitempty"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Tax               decimal.Decimal `json:"tax"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
	PromoCode         *string         `json:"promo_code,omitempty"` // код купона, не внешний ключ
	TrackingNumber    *string         `json:"tracking_number,omitempty"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	Items             []OrderItem     `json:"items,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RecalculateTotal пересчитывает итог: subtotal + shipping + tax - discount.
// Вызывается перед каждой записью заказа.
func (o *Order) RecalculateTotal() {
	o.Total = o.Subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.Discount)
}

// OrderItem хранит название, цену и варианты товара на момент покупки,
// поэтому последующие правки товара не меняют историю.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"-"`
	ProductID    *int64          `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ColorID      *int64          `json:"color_id,omitempty"`
	SizeID       *int64          `json:"size_id,omitempty"`
	ColorName    *string         `json:"color_name,omitempty"`
	SizeName     *string         `json:"size_name,omitempty"`
}

// RecalculateSubtotal - price * quantity
func (i *OrderItem) RecalculateSubtotal() {
	i.Subtotal = i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTracking - проекция заказа для отслеживания доставки
type OrderTracking struct {
	OrderNumber    string     `json:"order_number"`
	Status         string     `json:"status"`
	PaymentStatus  string     `json:"payment_status"`
	TrackingNumber *string    `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}
