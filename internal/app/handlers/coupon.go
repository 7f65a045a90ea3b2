package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
	"github.com/shopspring/decimal"
)

type CouponService interface {
	Validate(ctx context.Context, owner models.CartOwner, code string, cartTotal *decimal.Decimal) (*service.CouponValidation, error)
	List(ctx context.Context) ([]*models.Coupon, error)
}

type ValidateCouponRequest struct {
	Code      string           `json:"code" validate:"required,max=50"`
	CartTotal *decimal.Decimal `json:"cart_total"`
}

// ValidateCouponHandler обрабатывает POST /api/orders/coupons/validate.
// Без cart_total берётся сумма текущей корзины.
func ValidateCouponHandler(log *slog.Logger, coupons CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ValidateCouponHandler"))

		var req ValidateCouponRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		res, err := coupons.Validate(r.Context(), existingCartOwner(r), req.Code, req.CartTotal)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, res)
	}
}

// ListCouponsHandler обрабатывает GET /api/orders/coupons
func ListCouponsHandler(log *slog.Logger, coupons CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListCouponsHandler"))

		list, err := coupons.List(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}
