package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matintgp/ecommerce-proj/internal/domain/coupon"
	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
	"github.com/shopspring/decimal"
)

type CouponService struct {
	log        *slog.Logger
	couponRepo storage.CouponStorage
	carts      *CartService
	now        func() time.Time
}

func NewCouponService(log *slog.Logger, couponRepo storage.CouponStorage, carts *CartService) *CouponService {
	return &CouponService{log: log, couponRepo: couponRepo, carts: carts, now: time.Now}
}

// CouponValidation - результат успешной проверки купона
type CouponValidation struct {
	Valid              bool            `json:"valid"`
	Code               string          `json:"code"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TotalAfterDiscount decimal.Decimal `json:"total_after_discount"`
}

// Validate проверяет купон для суммы cartTotal; без суммы берётся текущая корзина владельца.
// Неприменимый купон - *CouponError, неизвестный код - ErrNotFound. Счётчик использований не меняется.
func (s *CouponService) Validate(ctx context.Context, owner models.CartOwner, code string, cartTotal *decimal.Decimal) (*CouponValidation, error) {
	const op = "service.CouponService.Validate"
	logger := s.log.With(slog.String("op", op), slog.String("coupon", code))

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationErr("code", "must not be empty")
	}

	var total decimal.Decimal
	if cartTotal != nil {
		if cartTotal.IsNegative() {
			return nil, validationErr("cart_total", "must not be negative")
		}
		total = *cartTotal
	} else {
		if !owner.Valid() {
			return nil, validationErr("cart_total", "is required without a cart")
		}
		t, err := s.carts.Total(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		total = t
	}

	c, err := s.couponRepo.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := coupon.Evaluate(c, total, s.now())
	if !res.Valid {
		logger.Info("coupon rejected", slog.String("reason", string(res.Reason)))
		return nil, &CouponError{Reason: res.Reason}
	}

	return &CouponValidation{
		Valid:              true,
		Code:               c.Code,
		DiscountAmount:     res.Discount,
		TotalAfterDiscount: total.Sub(res.Discount),
	}, nil
}

// List - купоны, которые можно применить прямо сейчас
func (s *CouponService) List(ctx context.Context) ([]*models.Coupon, error) {
	const op = "service.CouponService.List"

	coupons, err := s.couponRepo.ListValidCoupons(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if coupons == nil {
		coupons = []*models.Coupon{}
	}
	return coupons, nil
}
