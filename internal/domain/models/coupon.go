package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon - правило скидки по коду
type Coupon struct {
	ID           int64            `json:"id"`
	Code         string           `json:"code"`
	Description  string           `json:"description"`
	Amount       decimal.Decimal  `json:"amount"`
	IsPercentage bool             `json:"is_percentage"`
	MinPurchase  decimal.Decimal  `json:"min_purchase"`
	MaxDiscount  *decimal.Decimal `json:"max_discount,omitempty"`
	ValidFrom    time.Time        `json:"valid_from"`
	ValidTo      time.Time        `json:"valid_to"`
	UsageLimit   *int             `json:"usage_limit,omitempty"` // nil - без ограничений
	UsedCount    int              `json:"used_count"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
