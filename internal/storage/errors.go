package storage

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound - общая ошибка отсутствия записи, все ErrXNotFound её оборачивают
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrAddressNotFound  = fmt.Errorf("address %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrVariantNotFound  = fmt.Errorf("variant %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", ErrNotFound)
	ErrCouponNotFound   = fmt.Errorf("coupon %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrTicketNotFound   = fmt.Errorf("ticket %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("ticket category %w", ErrNotFound)
	ErrOTPNotFound      = fmt.Errorf("verification code %w", ErrNotFound)
)

var (
	// ErrInsufficientStock - условное списание не затронуло ни одной строки
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadyExists - нарушение уникального ограничения
	ErrAlreadyExists = errors.New("already exists")
	// ErrLocked - ожидание блокировки строки (FOR UPDATE) прервано по lock_timeout,
	// postgres возвращает 55P03. Без lock_timeout запрос просто ждёт.
	ErrLocked = errors.New("resource is locked, please try again")
)

const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
)

// translatePQError переводит коды ошибок postgres в ошибки пакета
func translatePQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrAlreadyExists, pqErr.Constraint)
		case pqLockNotAvailable:
			return fmt.Errorf("%w: %v", ErrLocked, err)
		}
	}
	return err
}
