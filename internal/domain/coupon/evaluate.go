// Package coupon содержит чистую логику расчёта скидки по купону.
// Пакет не обращается к БД и не меняет счётчик использований.
package coupon

import (
	"time"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Reason - код причины, по которой купон не может быть применён
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInactive          Reason = "inactive"
	ReasonNotYetValid       Reason = "not_yet_valid"
	ReasonExpired           Reason = "expired"
	ReasonUsageLimitReached Reason = "usage_limit_reached"
	ReasonBelowMinPurchase  Reason = "below_min_purchase"
)

// Message возвращает человекочитаемое описание причины
func (r Reason) Message() string {
	switch r {
	case ReasonInactive:
		return "coupon is not active"
	case ReasonNotYetValid:
		return "coupon is not valid yet"
	case ReasonExpired:
		return "coupon has expired"
	case ReasonUsageLimitReached:
		return "coupon usage limit reached"
	case ReasonBelowMinPurchase:
		return "cart total is below the coupon minimum purchase"
	default:
		return ""
	}
}

// Result - результат проверки купона
type Result struct {
	Discount decimal.Decimal
	Valid    bool
	Reason   Reason
}

var hundred = decimal.NewFromInt(100)

// IsUsable проверяет окно действия, активность и лимит использований без учёта суммы корзины
func IsUsable(c *models.Coupon, now time.Time) (bool, Reason) {
	if !c.IsActive {
		return false, ReasonInactive
	}
	if now.Before(c.ValidFrom) {
		return false, ReasonNotYetValid
	}
	if now.After(c.ValidTo) {
		return false, ReasonExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false, ReasonUsageLimitReached
	}
	return true, ReasonNone
}

// Evaluate считает скидку для суммы subtotal на момент now.
// Процентная скидка ограничивается max_discount (если он > 0),
// итоговая скидка никогда не превышает subtotal.
func Evaluate(c *models.Coupon, subtotal decimal.Decimal, now time.Time) Result {
	if ok, reason := IsUsable(c, now); !ok {
		return Result{Discount: decimal.Zero, Reason: reason}
	}
	if subtotal.LessThan(c.MinPurchase) {
		return Result{Discount: decimal.Zero, Reason: ReasonBelowMinPurchase}
	}

	var raw decimal.Decimal
	if c.IsPercentage {
		raw = subtotal.Mul(c.Amount).Div(hundred)
	} else {
		raw = c.Amount
	}

	if c.MaxDiscount != nil && c.MaxDiscount.IsPositive() {
		raw = decimal.Min(raw, *c.MaxDiscount)
	}

	discount := decimal.Min(raw, subtotal)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return Result{Discount: discount.Round(2), Valid: true}
}
