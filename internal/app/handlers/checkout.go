package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type CheckoutService interface {
	Checkout(ctx context.Context, in service.CheckoutInput) (*models.Order, error)
}

type CheckoutRequest struct {
	AddressID     int64  `json:"address_id" validate:"required,gt=0"`
	CouponCode    string `json:"coupon_code" validate:"max=50"`
	PaymentMethod string `json:"payment_method" validate:"max=50"`
}

// CheckoutHandler обрабатывает POST /api/orders/cart/checkout.
// Неприменимый купон не мешает оформлению, заказ создаётся без скидки.
func CheckoutHandler(log *slog.Logger, checkout CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.CheckoutHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		var req CheckoutRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		order, err := checkout.Checkout(r.Context(), service.CheckoutInput{
			UserID:            actor.UserID,
			ShippingAddressID: req.AddressID,
			CouponCode:        req.CouponCode,
			PaymentMethod:     req.PaymentMethod,
		})
		if err != nil {
			logger.Warn("checkout failed", slog.Int64("userID", actor.UserID), slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, order)
	}
}
