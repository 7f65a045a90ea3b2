package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type checkoutFixture struct {
	mock      sqlmock.Sqlmock
	products  *fakeProductRepo
	carts     *fakeCartRepo
	coupons   *fakeCouponRepo
	orders    *fakeOrderRepo
	movements *fakeMovementRepo
	addresses *fakeAddressRepo
	checkout  *service.CheckoutService
	orderSvc  *service.OrderService
	userID    int64
	addressID int64
	cartID    int64
}

func newCheckoutFixture(t *testing.T, cfg service.CheckoutConfig) *checkoutFixture {
	db, mock := newMockDB(t)
	f := &checkoutFixture{
		mock:      mock,
		products:  newFakeProductRepo(),
		coupons:   newFakeCouponRepo(),
		orders:    newFakeOrderRepo(),
		movements: &fakeMovementRepo{},
		addresses: newFakeAddressRepo(),
		userID:    1,
	}
	f.carts = newFakeCartRepo(f.products)
	logger := newLogger()
	f.checkout = service.NewCheckoutService(logger, db, f.carts, f.products, f.coupons, f.orders, f.movements, f.addresses, cfg)
	f.orderSvc = service.NewOrderService(logger, db, f.orders, f.products, f.coupons, f.movements)

	addr := &models.UserAddress{UserID: f.userID, Address: "1 Main St", City: "Town", PostalCode: "12345", Country: "NL"}
	require.NoError(t, f.addresses.CreateAddressTx(context.Background(), nil, addr))
	f.addressID = addr.ID

	cart, err := f.carts.GetOrCreateCartTx(context.Background(), nil, models.CartOwner{UserID: &f.userID})
	require.NoError(t, err)
	f.cartID = cart.ID
	return f
}

func (f *checkoutFixture) input(code string) service.CheckoutInput {
	return service.CheckoutInput{UserID: f.userID, ShippingAddressID: f.addressID, CouponCode: code, PaymentMethod: "card"}
}

func save10() *models.Coupon {
	now := time.Now()
	return &models.Coupon{
		ID:           1,
		Code:         "SAVE10",
		Amount:       dec("10"),
		IsPercentage: true,
		MinPurchase:  dec("50"),
		MaxDiscount:  ptr(dec("5")),
		ValidFrom:    now.Add(-time.Hour),
		ValidTo:      now.Add(time.Hour),
		UsageLimit:   ptr(5),
		IsActive:     true,
	}
}

func TestCheckout_WithCoupon(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{ShippingCost: decimal.Zero, TaxRate: decimal.Zero})
	ctx := context.Background()
	f.products.add(1, "Shirt", "25.00", 10)
	f.products.add(2, "Cap", "50.00", 1)
	f.carts.put(f.cartID, 1, 2, ptr(colorRed), nil)
	f.carts.put(f.cartID, 2, 1, nil, nil)
	f.coupons.coupons["SAVE10"] = save10()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.checkout.Checkout(ctx, f.input("SAVE10"))
	require.NoError(t, err)

	// subtotal 100, скидка 10% ограничена max_discount = 5
	assert.True(t, order.Subtotal.Equal(dec("100")))
	assert.True(t, order.Discount.Equal(dec("5")))
	assert.True(t, order.Total.Equal(dec("95")))
	assert.Equal(t, "SAVE10", *order.PromoCode)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Len(t, order.OrderNumber, 10)

	sum := decimal.Zero
	for _, it := range order.Items {
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, sum.Equal(order.Subtotal))
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.ShippingCost).Add(order.Tax).Sub(order.Discount)))

	assert.Equal(t, 8, f.products.products[1].Stock)
	assert.Equal(t, 0, f.products.products[2].Stock)
	assert.Equal(t, 1, f.coupons.coupons["SAVE10"].UsedCount)
	assert.Empty(t, f.carts.items)
	require.Len(t, f.movements.movements, 2)
	assert.Equal(t, -2, f.movements.movements[0].Delta)
	assert.Equal(t, models.MovementCheckout, f.movements.movements[0].Reason)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_ShippingAndTax(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{ShippingCost: dec("4.99"), TaxRate: dec("0.1")})
	f.products.add(1, "Shirt", "19.99", 10)
	f.carts.put(f.cartID, 1, 3, nil, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.checkout.Checkout(context.Background(), f.input(""))
	require.NoError(t, err)

	assert.True(t, order.Subtotal.Equal(dec("59.97")))
	assert.True(t, order.Tax.Equal(dec("6")))
	assert.True(t, order.Total.Equal(dec("70.96")))
	assert.Nil(t, order.PromoCode)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_InvalidCouponIsIgnored(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})
	f.products.add(1, "Shirt", "10.00", 10)
	f.carts.put(f.cartID, 1, 2, nil, nil)
	exhausted := save10()
	exhausted.UsedCount = 5
	f.coupons.coupons["SAVE10"] = exhausted

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.checkout.Checkout(context.Background(), f.input("SAVE10"))
	require.NoError(t, err)
	assert.True(t, order.Discount.IsZero())
	assert.Nil(t, order.PromoCode)
	assert.Equal(t, 5, f.coupons.coupons["SAVE10"].UsedCount)

	// неизвестный код тоже не мешает оформлению
	f.carts.put(f.cartID, 1, 1, nil, nil)
	order, err = f.checkout.Checkout(context.Background(), f.input("NOPE"))
	require.NoError(t, err)
	assert.True(t, order.Discount.IsZero())

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.checkout.Checkout(context.Background(), f.input(""))
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Empty(t, f.orders.orders)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_UnknownAddress(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})
	f.products.add(1, "Shirt", "10.00", 10)
	f.carts.put(f.cartID, 1, 1, nil, nil)

	in := f.input("")
	in.ShippingAddressID = 999
	_, err := f.checkout.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, service.ErrNotFound)
	// транзакция не начиналась
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_StockSharedAcrossVariants(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})
	f.products.add(1, "Shirt", "10.00", 3)
	f.carts.put(f.cartID, 1, 2, ptr(colorRed), nil)
	f.carts.put(f.cartID, 1, 2, ptr(colorBlue), nil)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.checkout.Checkout(context.Background(), f.input(""))
	var stockErr *service.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Shirt", stockErr.ProductName)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)

	assert.Equal(t, 3, f.products.products[1].Stock)
	assert.Len(t, f.carts.items, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_LastUnitGoesToOneBuyer(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})
	f.products.add(1, "Shirt", "10.00", 1)
	f.carts.put(f.cartID, 1, 1, nil, nil)

	otherID := int64(2)
	otherAddr := &models.UserAddress{UserID: otherID, Address: "2 Side St"}
	require.NoError(t, f.addresses.CreateAddressTx(context.Background(), nil, otherAddr))
	otherCart, err := f.carts.GetOrCreateCartTx(context.Background(), nil, models.CartOwner{UserID: &otherID})
	require.NoError(t, err)
	f.carts.put(otherCart.ID, 1, 1, nil, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err = f.checkout.Checkout(context.Background(), f.input(""))
	require.NoError(t, err)

	_, err = f.checkout.Checkout(context.Background(), service.CheckoutInput{UserID: otherID, ShippingAddressID: otherAddr.ID})
	var stockErr *service.InsufficientStockError
	assert.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 0, f.products.products[1].Stock)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_OrderNumberCollisionRetries(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})
	f.products.add(1, "Shirt", "10.00", 10)
	f.carts.put(f.cartID, 1, 1, nil, nil)
	f.orders.taken["AAAAAAAAAA"] = true

	numbers := []string{"AAAAAAAAAA", "BBBBBBBBBB"}
	service.SetOrderNumberGenerator(f.checkout, func() (string, error) {
		n := numbers[0]
		numbers = numbers[1:]
		return n, nil
	})

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.checkout.Checkout(context.Background(), f.input(""))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBBBB", order.OrderNumber)
	assert.Equal(t, 1, f.orders.conflicts)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckout_OrderNumberExhausted(t *testing.T) {
	f := newCheckoutFixture(t, service.CheckoutConfig{})
	f.products.add(1, "Shirt", "10.00", 10)
	f.carts.put(f.cartID, 1, 1, nil, nil)
	f.orders.taken["AAAAAAAAAA"] = true
	service.SetOrderNumberGenerator(f.checkout, func() (string, error) { return "AAAAAAAAAA", nil })

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.checkout.Checkout(context.Background(), f.input(""))
	assert.Error(t, err)
	assert.Equal(t, 10, f.products.products[1].Stock)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
