package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// CartStorage описывает методы для работы с корзинами и их позициями.
// Все методы работают внутри транзакции: строка корзины блокируется
// в GetOrCreateCartTx и сериализует изменения одной корзины.
type CartStorage interface {
	GetOrCreateCartTx(ctx context.Context, tx *sql.Tx, owner models.CartOwner) (*models.Cart, error)
	ListItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) ([]models.CartItem, error)
	// FindItemTx ищет позицию строго по (product, color, size), NULL сравнивается как значение.
	FindItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, colorID, sizeID *int64) (*models.CartItem, error)
	GetItemTx(ctx context.Context, tx *sql.Tx, cartID, itemID int64) (*models.CartItem, error)
	CreateItemTx(ctx context.Context, tx *sql.Tx, item *models.CartItem) error
	UpdateItemQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, qty int) error
	DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID, itemID int64) error
	ClearItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

// GetOrCreateCartTx лениво создаёт корзину владельца и блокирует её строку
func (r *cartRepository) GetOrCreateCartTx(ctx context.Context, tx *sql.Tx, owner models.CartOwner) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, errors.New("cart owner must be either user or session")
	}

	var insert, selectQuery string
	var key any
	if owner.UserID != nil {
		key = *owner.UserID
		insert = `INSERT INTO carts (user_id) VALUES ($1)
		          ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO NOTHING`
		selectQuery = `SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`
	} else {
		key = *owner.SessionID
		insert = `INSERT INTO carts (session_id) VALUES ($1)
		          ON CONFLICT (session_id) WHERE session_id IS NOT NULL DO NOTHING`
		selectQuery = `SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE session_id = $1 FOR UPDATE`
	}

	if _, err := tx.ExecContext(ctx, insert, key); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart := &models.Cart{}
	if err := tx.QueryRowContext(ctx, selectQuery, key).Scan(&cart.ID, &cart.UserID, &cart.SessionID,
		&cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", translatePQError(err))
	}
	return cart, nil
}

// ListItemsTx возвращает позиции корзины с данными товара через LEFT JOIN
func (r *cartRepository) ListItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) ([]models.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.color_id, ci.size_id, ci.quantity, ci.added_at, ci.updated_at,
		       p.name, p.price, p.stock, c.name, s.name
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		LEFT JOIN colors c ON c.id = ci.color_id
		LEFT JOIN sizes s ON s.id = ci.size_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`
	rows, err := tx.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ColorID, &item.SizeID,
			&item.Quantity, &item.AddedAt, &item.UpdatedAt,
			&item.ProductName, &item.ProductPrice, &item.ProductStock, &item.ColorName, &item.SizeName); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const cartItemColumns = "id, cart_id, product_id, color_id, size_id, quantity, added_at, updated_at"

func scanCartItem(row *sql.Row) (*models.CartItem, error) {
	item := &models.CartItem{}
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ColorID, &item.SizeID,
		&item.Quantity, &item.AddedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) FindItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, colorID, sizeID *int64) (*models.CartItem, error) {
	query := "SELECT " + cartItemColumns + ` FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		  AND color_id IS NOT DISTINCT FROM $3 AND size_id IS NOT DISTINCT FROM $4`
	return scanCartItem(tx.QueryRowContext(ctx, query, cartID, productID, colorID, sizeID))
}

func (r *cartRepository) GetItemTx(ctx context.Context, tx *sql.Tx, cartID, itemID int64) (*models.CartItem, error) {
	query := "SELECT " + cartItemColumns + " FROM cart_items WHERE id = $1 AND cart_id = $2"
	return scanCartItem(tx.QueryRowContext(ctx, query, itemID, cartID))
}

func (r *cartRepository) CreateItemTx(ctx context.Context, tx *sql.Tx, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, color_id, size_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, added_at, updated_at`
	err := tx.QueryRowContext(ctx, query, item.CartID, item.ProductID, item.ColorID, item.SizeID, item.Quantity).
		Scan(&item.ID, &item.AddedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", translatePQError(err))
	}
	return nil
}

func (r *cartRepository) UpdateItemQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, qty int) error {
	res, err := tx.ExecContext(ctx, "UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2", qty, itemID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID, itemID int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND cart_id = $2", itemID, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) ClearItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
