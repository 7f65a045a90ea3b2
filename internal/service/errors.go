package service

import (
	"errors"
	"fmt"

	"github.com/matintgp/ecommerce-proj/internal/domain/coupon"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

// ErrNotFound - любая отсутствующая или чужая сущность
var ErrNotFound = storage.ErrNotFound

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrUnauthorized       = errors.New("unauthorized")
)

// ValidationError - некорректные входные данные
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError - запрошено больше, чем есть на складе
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
	InCart      int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d, already in cart %d",
		e.ProductName, e.Available, e.Requested, e.InCart)
}

// CouponError - купон существует, но применить его нельзя
type CouponError struct {
	Reason coupon.Reason
}

func (e *CouponError) Error() string {
	return "invalid coupon: " + e.Reason.Message()
}
