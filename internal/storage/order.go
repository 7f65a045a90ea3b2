package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// InsertOrderTx вставляет заказ; при совпадении order_number возвращает inserted=false,
	// не прерывая транзакцию (ON CONFLICT DO NOTHING).
	InsertOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (inserted bool, err error)
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	// LockOrderTx читает заказ с блокировкой строки.
	LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	GetOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]models.OrderItem, error)
	// UpdateOrderTx сохраняет изменяемые поля заказа (статусы, оплату, доставку), total пересчитывается.
	UpdateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// GetOrdersByUserID возвращает заказы пользователя без позиций, новые первыми.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
}

// orderRepository - конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, order_number, status, shipping_address_id, payment_method, payment_status,
	transaction_id, payment_date, subtotal, shipping_cost, tax, discount, total, promo_code,
	tracking_number, shipped_at, delivered_at, created_at, updated_at`

type scanner interface{ Scan(...any) error }

func scanOrder(row scanner) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.ShippingAddressID, &o.PaymentMethod,
		&o.PaymentStatus, &o.TransactionID, &o.PaymentDate, &o.Subtotal, &o.ShippingCost, &o.Tax,
		&o.Discount, &o.Total, &o.PromoCode, &o.TrackingNumber, &o.ShippedAt, &o.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) InsertOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (bool, error) {
	order.RecalculateTotal()
	query := `
		INSERT INTO orders (user_id, order_number, status, shipping_address_id, payment_method, payment_status,
		                    subtotal, shipping_cost, tax, discount, total, promo_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_number) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query, order.UserID, order.OrderNumber, order.Status, order.ShippingAddressID,
		order.PaymentMethod, order.PaymentStatus, order.Subtotal, order.ShippingCost, order.Tax,
		order.Discount, order.Total, order.PromoCode).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create order: %w", err)
	}
	return true, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	item.RecalculateSubtotal()
	query := `
		INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity, subtotal,
		                         color_id, size_id, color_name, size_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := tx.QueryRowContext(ctx, query, item.OrderID, item.ProductID, item.ProductName, item.ProductPrice,
		item.Quantity, item.Subtotal, item.ColorID, item.SizeID, item.ColorName, item.SizeName).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return nil, translatePQError(err)
	}
	return o, nil
}

const orderItemsQuery = `
	SELECT id, order_id, product_id, product_name, product_price, quantity, subtotal,
	       color_id, size_id, color_name, size_name
	FROM order_items
	WHERE order_id = $1
	ORDER BY id`

func scanOrderItems(rows *sql.Rows) ([]models.OrderItem, error) {
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductPrice, &it.Quantity,
			&it.Subtotal, &it.ColorID, &it.SizeID, &it.ColorName, &it.SizeName); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) GetOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]models.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, orderItemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	return scanOrderItems(rows)
}

func (r *orderRepository) UpdateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	order.RecalculateTotal()
	query := `
		UPDATE orders SET status = $1, payment_status = $2, transaction_id = $3, payment_date = $4,
		       tracking_number = $5, shipped_at = $6, delivered_at = $7, total = $8, updated_at = NOW()
		WHERE id = $9`
	res, err := tx.ExecContext(ctx, query, order.Status, order.PaymentStatus, order.TransactionID, order.PaymentDate,
		order.TrackingNumber, order.ShippedAt, order.DeliveredAt, order.Total, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetOrderByID возвращает заказ вместе с позициями
func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, orderItemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	if o.Items, err = scanOrderItems(rows); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
