package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// StockMovementStorage - журнал движения остатков
type StockMovementStorage interface {
	// CreateMovementTx записывает изменение остатка в той же транзакции, что и само изменение.
	CreateMovementTx(ctx context.Context, tx *sql.Tx, productID int64, orderID *int64, delta int, reason string) error
	GetMovementsByProductID(ctx context.Context, productID int64) ([]*models.StockMovement, error)
}

type stockMovementRepository struct {
	db *sql.DB
}

func NewStockMovementRepository(db *sql.DB) StockMovementStorage {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) CreateMovementTx(ctx context.Context, tx *sql.Tx, productID int64, orderID *int64, delta int, reason string) error {
	query := `INSERT INTO stock_movements (product_id, order_id, delta, reason, created_at)
	          VALUES ($1, $2, $3, $4, NOW())`
	_, err := tx.ExecContext(ctx, query, productID, orderID, delta, reason)
	if err != nil {
		return fmt.Errorf("failed to create stock movement: %w", err)
	}
	return nil
}

func (r *stockMovementRepository) GetMovementsByProductID(ctx context.Context, productID int64) ([]*models.StockMovement, error) {
	query := `
		SELECT id, product_id, order_id, delta, reason, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*models.StockMovement
	for rows.Next() {
		m := &models.StockMovement{}
		if err := rows.Scan(&m.ID, &m.ProductID, &m.OrderID, &m.Delta, &m.Reason, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}
