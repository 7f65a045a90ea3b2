package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// CouponStorage описывает методы для работы с купонами
type CouponStorage interface {
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	// GetCouponByCodeForUpdateTx блокирует строку купона до конца транзакции.
	GetCouponByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, code string) (*models.Coupon, error)
	ListValidCoupons(ctx context.Context, now time.Time) ([]*models.Coupon, error)
	IncrementUsageTx(ctx context.Context, tx *sql.Tx, couponID int64) error
	// DecrementUsageTx уменьшает used_count не ниже нуля; отсутствующий купон игнорируется.
	DecrementUsageTx(ctx context.Context, tx *sql.Tx, code string) error
}

type couponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) CouponStorage {
	return &couponRepository{db: db}
}

const couponColumns = `id, code, description, amount, is_percentage, min_purchase, max_discount,
	valid_from, valid_to, usage_limit, used_count, is_active, created_at, updated_at`

func scanCoupon(row scanner) (*models.Coupon, error) {
	c := &models.Coupon{}
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.Amount, &c.IsPercentage, &c.MinPurchase, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidTo, &c.UsageLimit, &c.UsedCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return scanCoupon(r.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = $1", code))
}

func (r *couponRepository) GetCouponByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, code string) (*models.Coupon, error) {
	c, err := scanCoupon(tx.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = $1 FOR UPDATE", code))
	if err != nil {
		return nil, translatePQError(err)
	}
	return c, nil
}

// ListValidCoupons - активные купоны, действующие на момент now и не исчерпанные
func (r *couponRepository) ListValidCoupons(ctx context.Context, now time.Time) ([]*models.Coupon, error) {
	query := "SELECT " + couponColumns + ` FROM coupons
		WHERE is_active AND valid_from <= $1 AND valid_to >= $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		ORDER BY valid_to`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *couponRepository) IncrementUsageTx(ctx context.Context, tx *sql.Tx, couponID int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		 WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, couponID)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCouponNotFound
	}
	return nil
}

func (r *couponRepository) DecrementUsageTx(ctx context.Context, tx *sql.Tx, code string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE coupons SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to decrement coupon usage: %w", err)
	}
	return nil
}
