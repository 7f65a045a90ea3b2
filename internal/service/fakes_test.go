package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// users

type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (f *fakeUserRepo) add(u *models.User) *models.User {
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, fmt.Errorf("%w: users_username_key", storage.ErrAlreadyExists)
		}
	}
	return f.add(user), nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.ID != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return fmt.Errorf("%w: users_email_key", storage.ErrAlreadyExists)
		}
	}
	if _, ok := f.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

// otp

type fakeOTPRepo struct {
	codes map[string]string
	ttl   time.Duration
}

var _ storage.OTPStorage = (*fakeOTPRepo)(nil)

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{codes: make(map[string]string)}
}

func (f *fakeOTPRepo) SaveOTP(_ context.Context, email, code string, ttl time.Duration) error {
	f.codes[email] = code
	f.ttl = ttl
	return nil
}

func (f *fakeOTPRepo) GetOTP(_ context.Context, email string) (string, error) {
	code, ok := f.codes[email]
	if !ok {
		return "", storage.ErrOTPNotFound
	}
	return code, nil
}

func (f *fakeOTPRepo) DeleteOTP(_ context.Context, email string) error {
	delete(f.codes, email)
	return nil
}

type sentCode struct {
	email     string
	code      string
	expiresAt time.Time
}

type fakeNotifier struct {
	sent []sentCode
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, email, code string, expiresAt time.Time) error {
	f.sent = append(f.sent, sentCode{email: email, code: code, expiresAt: expiresAt})
	return nil
}

func (f *fakeNotifier) Close() error { return nil }

// addresses

type fakeAddressRepo struct {
	addrs  map[int64]*models.UserAddress
	nextID int64
}

var _ storage.AddressStorage = (*fakeAddressRepo)(nil)

func newFakeAddressRepo() *fakeAddressRepo {
	return &fakeAddressRepo{addrs: make(map[int64]*models.UserAddress)}
}

func (f *fakeAddressRepo) ListAddresses(_ context.Context, userID int64) ([]*models.UserAddress, error) {
	var res []*models.UserAddress
	for _, a := range f.addrs {
		if a.UserID == userID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeAddressRepo) GetAddress(_ context.Context, userID, addressID int64) (*models.UserAddress, error) {
	a, ok := f.addrs[addressID]
	if !ok || a.UserID != userID {
		return nil, storage.ErrAddressNotFound
	}
	return a, nil
}

func (f *fakeAddressRepo) CreateAddressTx(_ context.Context, _ *sql.Tx, addr *models.UserAddress) error {
	f.nextID++
	addr.ID = f.nextID
	f.addrs[addr.ID] = addr
	return nil
}

func (f *fakeAddressRepo) ClearDefaultTx(_ context.Context, _ *sql.Tx, userID int64) error {
	for _, a := range f.addrs {
		if a.UserID == userID {
			a.IsDefault = false
		}
	}
	return nil
}

func (f *fakeAddressRepo) DeleteAddress(_ context.Context, userID, addressID int64) error {
	a, ok := f.addrs[addressID]
	if !ok || a.UserID != userID {
		return storage.ErrAddressNotFound
	}
	delete(f.addrs, addressID)
	return nil
}

// products

type fakeProductRepo struct {
	products   map[int64]*models.Product
	colors     map[int64]map[int64]string
	sizes      map[int64]map[int64]string
	categories []*models.Category
	brands     []*models.Brand
	filter     models.ProductFilter
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products: make(map[int64]*models.Product),
		colors:   make(map[int64]map[int64]string),
		sizes:    make(map[int64]map[int64]string),
	}
}

func (f *fakeProductRepo) add(id int64, name, price string, stock int) *models.Product {
	p := &models.Product{ID: id, Name: name, Price: dec(price), Stock: stock, IsActive: true}
	f.products[id] = p
	return p
}

func (f *fakeProductRepo) addColor(productID, colorID int64, name string) {
	if f.colors[productID] == nil {
		f.colors[productID] = make(map[int64]string)
	}
	f.colors[productID][colorID] = name
}

func (f *fakeProductRepo) addSize(productID, sizeID int64, name string) {
	if f.sizes[productID] == nil {
		f.sizes[productID] = make(map[int64]string)
	}
	f.sizes[productID][sizeID] = name
}

func (f *fakeProductRepo) ListCategories(_ context.Context) ([]*models.Category, error) {
	return f.categories, nil
}

func (f *fakeProductRepo) ListBrands(_ context.Context) ([]*models.Brand, error) {
	return f.brands, nil
}

func (f *fakeProductRepo) ListGenders(_ context.Context) ([]*models.Gender, error) {
	return nil, nil
}

// ListProducts только запоминает фильтр, сам отбор проверяется в storage
func (f *fakeProductRepo) ListProducts(_ context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.filter = filter
	var res []*models.Product
	for _, p := range f.products {
		if p.IsActive {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeProductRepo) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok || !p.IsActive {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) GetProductTx(_ context.Context, _ *sql.Tx, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) LockProductsTx(_ context.Context, _ *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	res := make(map[int64]*models.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			cp := *p
			res[id] = &cp
		}
	}
	return res, nil
}

func (f *fakeProductRepo) GetColorNameTx(_ context.Context, _ *sql.Tx, productID, colorID int64) (string, error) {
	name, ok := f.colors[productID][colorID]
	if !ok {
		return "", storage.ErrVariantNotFound
	}
	return name, nil
}

func (f *fakeProductRepo) GetSizeNameTx(_ context.Context, _ *sql.Tx, productID, sizeID int64) (string, error) {
	name, ok := f.sizes[productID][sizeID]
	if !ok {
		return "", storage.ErrVariantNotFound
	}
	return name, nil
}

func (f *fakeProductRepo) DeductStockTx(_ context.Context, _ *sql.Tx, productID int64, qty int) error {
	p, ok := f.products[productID]
	if !ok || p.Stock < qty {
		return storage.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (f *fakeProductRepo) RestockTx(_ context.Context, _ *sql.Tx, productID int64, qty int) error {
	p, ok := f.products[productID]
	if !ok {
		return storage.ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

// stock movements

type fakeMovementRepo struct {
	movements []models.StockMovement
}

var _ storage.StockMovementStorage = (*fakeMovementRepo)(nil)

func (f *fakeMovementRepo) CreateMovementTx(_ context.Context, _ *sql.Tx, productID int64, orderID *int64, delta int, reason string) error {
	f.movements = append(f.movements, models.StockMovement{
		ID:        int64(len(f.movements) + 1),
		ProductID: productID,
		OrderID:   orderID,
		Delta:     delta,
		Reason:    reason,
	})
	return nil
}

func (f *fakeMovementRepo) GetMovementsByProductID(_ context.Context, productID int64) ([]*models.StockMovement, error) {
	var res []*models.StockMovement
	for i := range f.movements {
		if f.movements[i].ProductID == productID {
			res = append(res, &f.movements[i])
		}
	}
	return res, nil
}

// carts

type fakeCartRepo struct {
	products   *fakeProductRepo
	carts      map[int64]*models.Cart
	items      map[int64]*models.CartItem
	nextCartID int64
	nextItemID int64
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo(products *fakeProductRepo) *fakeCartRepo {
	return &fakeCartRepo{
		products: products,
		carts:    make(map[int64]*models.Cart),
		items:    make(map[int64]*models.CartItem),
	}
}

func (f *fakeCartRepo) GetOrCreateCartTx(_ context.Context, _ *sql.Tx, owner models.CartOwner) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("cart owner must be either user or session")
	}
	for _, c := range f.carts {
		if owner.UserID != nil && c.UserID != nil && *c.UserID == *owner.UserID {
			return c, nil
		}
		if owner.SessionID != nil && c.SessionID != nil && *c.SessionID == *owner.SessionID {
			return c, nil
		}
	}
	f.nextCartID++
	c := &models.Cart{ID: f.nextCartID, UserID: owner.UserID, SessionID: owner.SessionID}
	f.carts[c.ID] = c
	return c, nil
}

// put кладёт позицию напрямую, минуя сервис
func (f *fakeCartRepo) put(cartID, productID int64, qty int, colorID, sizeID *int64) *models.CartItem {
	f.nextItemID++
	item := &models.CartItem{ID: f.nextItemID, CartID: cartID, ProductID: productID, Quantity: qty, ColorID: colorID, SizeID: sizeID}
	f.items[item.ID] = item
	return item
}

func (f *fakeCartRepo) ListItemsTx(_ context.Context, _ *sql.Tx, cartID int64) ([]models.CartItem, error) {
	var res []models.CartItem
	for _, it := range f.items {
		if it.CartID != cartID {
			continue
		}
		item := *it
		if p, ok := f.products.products[item.ProductID]; ok {
			item.ProductName = ptr(p.Name)
			item.ProductPrice = ptr(p.Price)
			item.ProductStock = ptr(p.Stock)
		}
		if item.ColorID != nil {
			if name, ok := f.products.colors[item.ProductID][*item.ColorID]; ok {
				item.ColorName = ptr(name)
			}
		}
		if item.SizeID != nil {
			if name, ok := f.products.sizes[item.ProductID][*item.SizeID]; ok {
				item.SizeName = ptr(name)
			}
		}
		res = append(res, item)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func sameVariant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeCartRepo) FindItemTx(_ context.Context, _ *sql.Tx, cartID, productID int64, colorID, sizeID *int64) (*models.CartItem, error) {
	for _, it := range f.items {
		if it.CartID == cartID && it.ProductID == productID && sameVariant(it.ColorID, colorID) && sameVariant(it.SizeID, sizeID) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) GetItemTx(_ context.Context, _ *sql.Tx, cartID, itemID int64) (*models.CartItem, error) {
	it, ok := f.items[itemID]
	if !ok || it.CartID != cartID {
		return nil, storage.ErrCartItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeCartRepo) CreateItemTx(_ context.Context, _ *sql.Tx, item *models.CartItem) error {
	f.nextItemID++
	item.ID = f.nextItemID
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeCartRepo) UpdateItemQuantityTx(_ context.Context, _ *sql.Tx, itemID int64, qty int) error {
	it, ok := f.items[itemID]
	if !ok {
		return storage.ErrCartItemNotFound
	}
	it.Quantity = qty
	return nil
}

func (f *fakeCartRepo) DeleteItemTx(_ context.Context, _ *sql.Tx, cartID, itemID int64) error {
	it, ok := f.items[itemID]
	if !ok || it.CartID != cartID {
		return storage.ErrCartItemNotFound
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeCartRepo) ClearItemsTx(_ context.Context, _ *sql.Tx, cartID int64) error {
	for id, it := range f.items {
		if it.CartID == cartID {
			delete(f.items, id)
		}
	}
	return nil
}

// coupons

type fakeCouponRepo struct {
	coupons map[string]*models.Coupon
}

var _ storage.CouponStorage = (*fakeCouponRepo)(nil)

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (f *fakeCouponRepo) GetCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, storage.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCouponRepo) GetCouponByCodeForUpdateTx(ctx context.Context, _ *sql.Tx, code string) (*models.Coupon, error) {
	return f.GetCouponByCode(ctx, code)
}

func (f *fakeCouponRepo) ListValidCoupons(_ context.Context, now time.Time) ([]*models.Coupon, error) {
	var res []*models.Coupon
	for _, c := range f.coupons {
		if c.IsActive && !now.Before(c.ValidFrom) && !now.After(c.ValidTo) {
			res = append(res, c)
		}
	}
	return res, nil
}

func (f *fakeCouponRepo) IncrementUsageTx(_ context.Context, _ *sql.Tx, couponID int64) error {
	for _, c := range f.coupons {
		if c.ID == couponID {
			c.UsedCount++
			return nil
		}
	}
	return storage.ErrCouponNotFound
}

func (f *fakeCouponRepo) DecrementUsageTx(_ context.Context, _ *sql.Tx, code string) error {
	if c, ok := f.coupons[code]; ok && c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}

// orders

type fakeOrderRepo struct {
	orders    map[int64]*models.Order
	items     map[int64][]models.OrderItem
	taken     map[string]bool
	nextID    int64
	nextItem  int64
	conflicts int
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[int64]*models.Order),
		items:  make(map[int64][]models.OrderItem),
		taken:  make(map[string]bool),
	}
}

func (f *fakeOrderRepo) InsertOrderTx(_ context.Context, _ *sql.Tx, order *models.Order) (bool, error) {
	if f.taken[order.OrderNumber] {
		f.conflicts++
		return false, nil
	}
	order.RecalculateTotal()
	f.nextID++
	order.ID = f.nextID
	f.taken[order.OrderNumber] = true
	cp := *order
	f.orders[order.ID] = &cp
	return true, nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(_ context.Context, _ *sql.Tx, item *models.OrderItem) error {
	item.RecalculateSubtotal()
	f.nextItem++
	item.ID = f.nextItem
	f.items[item.OrderID] = append(f.items[item.OrderID], *item)
	return nil
}

func (f *fakeOrderRepo) LockOrderTx(_ context.Context, _ *sql.Tx, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrderItemsTx(_ context.Context, _ *sql.Tx, orderID int64) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) UpdateOrderTx(_ context.Context, _ *sql.Tx, order *models.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return storage.ErrOrderNotFound
	}
	order.RecalculateTotal()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	cp.Items = f.items[id]
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(_ context.Context, userID int64) ([]*models.Order, error) {
	var res []*models.Order
	for _, o := range f.orders {
		if o.UserID != nil && *o.UserID == userID {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// tickets

type fakeTicketRepo struct {
	categories map[int64]*models.TicketCategory
	tickets    map[int64]*models.Ticket
	nextID     int64
}

var _ storage.TicketStorage = (*fakeTicketRepo)(nil)

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		categories: make(map[int64]*models.TicketCategory),
		tickets:    make(map[int64]*models.Ticket),
	}
}

func (f *fakeTicketRepo) ListCategories(_ context.Context) ([]*models.TicketCategory, error) {
	var res []*models.TicketCategory
	for _, c := range f.categories {
		if c.IsActive {
			res = append(res, c)
		}
	}
	return res, nil
}

func (f *fakeTicketRepo) GetCategory(_ context.Context, id int64) (*models.TicketCategory, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeTicketRepo) CreateTicket(_ context.Context, t *models.Ticket) error {
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.tickets[t.ID] = &cp
	return nil
}

func (f *fakeTicketRepo) ListTickets(_ context.Context, filter storage.TicketFilter) ([]*models.Ticket, error) {
	var res []*models.Ticket
	for _, t := range f.tickets {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		res = append(res, t)
	}
	return res, nil
}

func (f *fakeTicketRepo) GetTicket(_ context.Context, id int64) (*models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, storage.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketRepo) UpdateTicket(_ context.Context, t *models.Ticket) error {
	if _, ok := f.tickets[t.ID]; !ok {
		return storage.ErrTicketNotFound
	}
	cp := *t
	f.tickets[t.ID] = &cp
	return nil
}
