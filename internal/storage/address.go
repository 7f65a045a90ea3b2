package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// AddressStorage описывает методы для работы с адресами доставки.
type AddressStorage interface {
	ListAddresses(ctx context.Context, userID int64) ([]*models.UserAddress, error)
	GetAddress(ctx context.Context, userID, addressID int64) (*models.UserAddress, error)
	// CreateAddressTx добавляет адрес; сброс флага is_default у остальных адресов делает ClearDefaultTx.
	CreateAddressTx(ctx context.Context, tx *sql.Tx, addr *models.UserAddress) error
	ClearDefaultTx(ctx context.Context, tx *sql.Tx, userID int64) error
	DeleteAddress(ctx context.Context, userID, addressID int64) error
}

type addressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) AddressStorage {
	return &addressRepository{db: db}
}

func (r *addressRepository) ListAddresses(ctx context.Context, userID int64) ([]*models.UserAddress, error) {
	query := `
		SELECT id, user_id, address, city, postal_code, country, is_default, created_at, updated_at
		FROM user_addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*models.UserAddress
	for rows.Next() {
		a := &models.UserAddress{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Address, &a.City, &a.PostalCode, &a.Country,
			&a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}

// GetAddress ищет адрес только среди адресов пользователя
func (r *addressRepository) GetAddress(ctx context.Context, userID, addressID int64) (*models.UserAddress, error) {
	a := &models.UserAddress{}
	query := `
		SELECT id, user_id, address, city, postal_code, country, is_default, created_at, updated_at
		FROM user_addresses
		WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, addressID, userID).Scan(&a.ID, &a.UserID, &a.Address, &a.City,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *addressRepository) CreateAddressTx(ctx context.Context, tx *sql.Tx, addr *models.UserAddress) error {
	query := `
		INSERT INTO user_addresses (user_id, address, city, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query, addr.UserID, addr.Address, addr.City, addr.PostalCode,
		addr.Country, addr.IsDefault).Scan(&addr.ID, &addr.CreatedAt, &addr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *addressRepository) ClearDefaultTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE user_addresses SET is_default = FALSE WHERE user_id = $1 AND is_default", userID)
	if err != nil {
		return fmt.Errorf("failed to clear default address: %w", err)
	}
	return nil
}

func (r *addressRepository) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM user_addresses WHERE id = $1 AND user_id = $2", addressID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAddressNotFound
	}
	return nil
}
