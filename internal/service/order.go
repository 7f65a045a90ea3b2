package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/domain/orderstatus"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

type OrderService struct {
	log          *slog.Logger
	db           *sql.DB
	orderRepo    storage.OrderStorage
	productRepo  storage.ProductStorage
	couponRepo   storage.CouponStorage
	movementRepo storage.StockMovementStorage
	now          func() time.Time
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	productRepo storage.ProductStorage,
	couponRepo storage.CouponStorage,
	movementRepo storage.StockMovementStorage,
) *OrderService {
	return &OrderService{
		log:          log,
		db:           db,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		couponRepo:   couponRepo,
		movementRepo: movementRepo,
		now:          time.Now,
	}
}

// Actor - кто выполняет операцию над заказом
type Actor struct {
	UserID  int64
	IsStaff bool
}

// canSee - чужой заказ для не-персонала неотличим от несуществующего
func (a Actor) canSee(o *models.Order) bool {
	if a.IsStaff {
		return true
	}
	return o.UserID != nil && *o.UserID == a.UserID
}

// List возвращает заказы пользователя, новые первыми
func (s *OrderService) List(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.List"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.Get"

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !actor.canSee(order) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}
	return order, nil
}

func (s *OrderService) Tracking(ctx context.Context, actor Actor, orderID int64) (*models.OrderTracking, error) {
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderTracking{
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		TrackingNumber: order.TrackingNumber,
		ShippedAt:      order.ShippedAt,
		DeliveredAt:    order.DeliveredAt,
	}, nil
}

// withLockedOrder блокирует заказ, проверяет доступ и выполняет fn в одной транзакции
func (s *OrderService) withLockedOrder(ctx context.Context, op string, actor Actor, orderID int64, fn func(tx *sql.Tx, order *models.Order, logger *slog.Logger) error) (*models.Order, error) {
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", actor.UserID), slog.Int64("orderID", orderID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderTx(ctx, tx, orderID)
	if err != nil {
		rollback(logger, tx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !actor.canSee(order) {
		rollback(logger, tx)
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}

	if err := fn(tx, order, logger); err != nil {
		rollback(logger, tx)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return order, nil
}

// Cancel отменяет заказ в статусе pending или processing:
// возвращает остатки существующих товаров и откатывает использование купона.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.Cancel"

	return s.withLockedOrder(ctx, op, actor, orderID, func(tx *sql.Tx, order *models.Order, logger *slog.Logger) error {
		if !orderstatus.CanCancel(order.Status) {
			logger.Warn("order cannot be cancelled", slog.String("status", order.Status))
			return fmt.Errorf("%s: cannot cancel order in status %q: %w", op, order.Status, ErrIllegalTransition)
		}
		if err := s.cancelTx(ctx, tx, logger, order); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.orderRepo.UpdateOrderTx(ctx, tx, order); err != nil {
			logger.Error("failed to update order", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("order cancelled")
		return nil
	})
}

// cancelTx - компенсация оформления; статус меняется, но не сохраняется
func (s *OrderService) cancelTx(ctx context.Context, tx *sql.Tx, logger *slog.Logger, order *models.Order) error {
	items, err := s.orderRepo.GetOrderItemsTx(ctx, tx, order.ID)
	if err != nil {
		logger.Error("failed to get order items", slog.Any("error", err))
		return err
	}

	restock := make(map[int64]int)
	var ids []int64
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if _, seen := restock[*item.ProductID]; !seen {
			ids = append(ids, *item.ProductID)
		}
		restock[*item.ProductID] += item.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := s.productRepo.RestockTx(ctx, tx, id, restock[id]); err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				logger.Warn("product no longer exists, skipping restock", slog.Int64("productID", id))
				continue
			}
			logger.Error("failed to restock", slog.Any("error", err))
			return err
		}
		if err := s.movementRepo.CreateMovementTx(ctx, tx, id, &order.ID, restock[id], models.MovementCancelRestock); err != nil {
			logger.Error("failed to record stock movement", slog.Any("error", err))
			return err
		}
	}

	if order.PromoCode != nil && order.Discount.IsPositive() {
		if err := s.couponRepo.DecrementUsageTx(ctx, tx, *order.PromoCode); err != nil {
			logger.Error("failed to decrement coupon usage", slog.Any("error", err))
			return err
		}
	}

	order.Status = models.OrderStatusCancelled
	return nil
}

// PaymentUpdate - результат оплаты от платёжного шлюза
type PaymentUpdate struct {
	Status        string
	TransactionID string
}

// UpdatePayment применяет результат оплаты, только для персонала.
// Повторное paid для оплаченного заказа ничего не меняет, даже если заказ уже отменён.
func (s *OrderService) UpdatePayment(ctx context.Context, actor Actor, orderID int64, upd PaymentUpdate) (*models.Order, error) {
	const op = "service.OrderService.UpdatePayment"

	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	if upd.Status != models.PaymentStatusPaid && upd.Status != models.PaymentStatusFailed {
		return nil, validationErr("payment_status", "must be one of: paid, failed")
	}

	return s.withLockedOrder(ctx, op, actor, orderID, func(tx *sql.Tx, order *models.Order, logger *slog.Logger) error {
		if upd.Status == models.PaymentStatusPaid && order.PaymentStatus == models.PaymentStatusPaid {
			return nil
		}
		if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusRefunded {
			logger.Warn("payment for closed order", slog.String("status", order.Status))
			return fmt.Errorf("%s: order is %s: %w", op, order.Status, ErrIllegalTransition)
		}
		if !orderstatus.CanAcceptPayment(order) {
			return fmt.Errorf("%s: payment is already %s: %w", op, order.PaymentStatus, ErrIllegalTransition)
		}

		switch upd.Status {
		case models.PaymentStatusPaid:
			now := s.now()
			order.PaymentStatus = models.PaymentStatusPaid
			order.PaymentDate = &now
			if order.Status == models.OrderStatusPending {
				order.Status = models.OrderStatusProcessing
			}
			if txID := strings.TrimSpace(upd.TransactionID); txID != "" {
				order.TransactionID = &txID
			}
		case models.PaymentStatusFailed:
			order.PaymentStatus = models.PaymentStatusFailed
		}

		if err := s.orderRepo.UpdateOrderTx(ctx, tx, order); err != nil {
			logger.Error("failed to update order", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("payment status updated", slog.String("paymentStatus", order.PaymentStatus))
		return nil
	})
}

// StatusUpdate - ручная смена статуса персоналом
type StatusUpdate struct {
	Status         string
	TrackingNumber *string
}

// UpdateStatus двигает заказ по разрешённым переходам. Отмена выполняет ту же компенсацию, что и Cancel.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID int64, upd StatusUpdate) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"

	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	if !orderstatus.Known(upd.Status) {
		return nil, validationErr("status", fmt.Sprintf("unknown status %q", upd.Status))
	}

	return s.withLockedOrder(ctx, op, actor, orderID, func(tx *sql.Tx, order *models.Order, logger *slog.Logger) error {
		if !orderstatus.CanTransition(order.Status, upd.Status) {
			logger.Warn("illegal transition", slog.String("from", order.Status), slog.String("to", upd.Status))
			return fmt.Errorf("%s: %s -> %s: %w", op, order.Status, upd.Status, ErrIllegalTransition)
		}

		now := s.now()
		switch upd.Status {
		case models.OrderStatusCancelled:
			if err := s.cancelTx(ctx, tx, logger, order); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		case models.OrderStatusShipped:
			order.ShippedAt = &now
			if upd.TrackingNumber != nil {
				order.TrackingNumber = upd.TrackingNumber
			}
		case models.OrderStatusDelivered:
			order.DeliveredAt = &now
		}
		order.Status = upd.Status

		if err := s.orderRepo.UpdateOrderTx(ctx, tx, order); err != nil {
			logger.Error("failed to update order", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("order status updated", slog.String("status", order.Status))
		return nil
	})
}
