package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type OrderService interface {
	List(ctx context.Context, userID int64) ([]*models.Order, error)
	Get(ctx context.Context, actor service.Actor, orderID int64) (*models.Order, error)
	Tracking(ctx context.Context, actor service.Actor, orderID int64) (*models.OrderTracking, error)
	Cancel(ctx context.Context, actor service.Actor, orderID int64) (*models.Order, error)
	UpdatePayment(ctx context.Context, actor service.Actor, orderID int64, upd service.PaymentUpdate) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor service.Actor, orderID int64, upd service.StatusUpdate) (*models.Order, error)
}

type PaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=paid failed"`
	TransactionID string `json:"transaction_id" validate:"max=100"`
}

type StatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=100"`
}

// orderAction - общий каркас обработчиков заказа: пользователь из токена и id из пути
func orderAction(log *slog.Logger, op string, fn func(r *http.Request, actor service.Actor, id int64) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", op))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}

		res, err := fn(r, actor, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, res)
	}
}

// ListOrdersHandler обрабатывает GET /api/orders
func ListOrdersHandler(log *slog.Logger, orders OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListOrdersHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		list, err := orders.List(r.Context(), actor.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

func GetOrderHandler(log *slog.Logger, orders OrderService) http.HandlerFunc {
	return orderAction(log, "handlers.GetOrderHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		return orders.Get(r.Context(), actor, id)
	})
}

func TrackingHandler(log *slog.Logger, orders OrderService) http.HandlerFunc {
	return orderAction(log, "handlers.TrackingHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		return orders.Tracking(r.Context(), actor, id)
	})
}

// CancelOrderHandler обрабатывает POST /api/orders/{id}/cancel
func CancelOrderHandler(log *slog.Logger, orders OrderService) http.HandlerFunc {
	return orderAction(log, "handlers.CancelOrderHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		return orders.Cancel(r.Context(), actor, id)
	})
}

// PaymentHandler обрабатывает POST /api/orders/{id}/payment, только для персонала
func PaymentHandler(log *slog.Logger, orders OrderService) http.HandlerFunc {
	return orderAction(log, "handlers.PaymentHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		var req PaymentRequest
		if err := decodeRequest(r, &req); err != nil {
			return nil, err
		}
		return orders.UpdatePayment(r.Context(), actor, id, service.PaymentUpdate{
			Status:        req.PaymentStatus,
			TransactionID: req.TransactionID,
		})
	})
}

// OrderStatusHandler обрабатывает POST /api/orders/{id}/status, только для персонала
func OrderStatusHandler(log *slog.Logger, orders OrderService) http.HandlerFunc {
	return orderAction(log, "handlers.OrderStatusHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		var req StatusRequest
		if err := decodeRequest(r, &req); err != nil {
			return nil, err
		}
		return orders.UpdateStatus(r.Context(), actor, id, service.StatusUpdate{
			Status:         req.Status,
			TrackingNumber: req.TrackingNumber,
		})
	})
}
