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

	"github.com/matintgp/ecommerce-proj/internal/domain/coupon"
	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
	"github.com/shopspring/decimal"
)

// CheckoutConfig - плоская стоимость доставки и ставка налога (0.2 = 20%)
type CheckoutConfig struct {
	ShippingCost decimal.Decimal
	TaxRate      decimal.Decimal
}

type CheckoutService struct {
	log          *slog.Logger
	db           *sql.DB
	cartRepo     storage.CartStorage
	productRepo  storage.ProductStorage
	couponRepo   storage.CouponStorage
	orderRepo    storage.OrderStorage
	movementRepo storage.StockMovementStorage
	addressRepo  storage.AddressStorage
	cfg          CheckoutConfig

	now            func() time.Time
	newOrderNumber func() (string, error)
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	productRepo storage.ProductStorage,
	couponRepo storage.CouponStorage,
	orderRepo storage.OrderStorage,
	movementRepo storage.StockMovementStorage,
	addressRepo storage.AddressStorage,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		log:            log,
		db:             db,
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		couponRepo:     couponRepo,
		orderRepo:      orderRepo,
		movementRepo:   movementRepo,
		addressRepo:    addressRepo,
		cfg:            cfg,
		now:            time.Now,
		newOrderNumber: generateOrderNumber,
	}
}

type CheckoutInput struct {
	UserID            int64
	ShippingAddressID int64
	CouponCode        string
	PaymentMethod     string
}

// Checkout превращает корзину пользователя в заказ одной транзакцией:
// блокировка корзины и товаров, проверка остатков, купон, снимок позиций,
// списание остатков и очистка корзины. Любая ошибка откатывает всё.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", in.UserID))
	logger.Info("starting checkout transaction")

	address, err := s.addressRepo.GetAddress(ctx, in.UserID, in.ShippingAddressID)
	if err != nil {
		logger.Warn("shipping address not found", slog.Int64("addressID", in.ShippingAddressID))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.checkoutTx(ctx, tx, logger, in, address.ID)
	if err != nil {
		rollback(logger, tx)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("checkout completed",
		slog.Int64("orderID", order.ID),
		slog.String("orderNumber", order.OrderNumber),
		slog.String("total", order.Total.String()))
	return order, nil
}

func (s *CheckoutService) checkoutTx(ctx context.Context, tx *sql.Tx, logger *slog.Logger, in CheckoutInput, addressID int64) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"

	cart, err := s.cartRepo.GetOrCreateCartTx(ctx, tx, models.CartOwner{UserID: &in.UserID})
	if err != nil {
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}
	items, err := s.cartRepo.ListItemsTx(ctx, tx, cart.ID)
	if err != nil {
		logger.Error("failed to list cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list cart items: %w", op, err)
	}

	// спрос по товару суммируется по всем вариантам
	demand := make(map[int64]int)
	var ids []int64
	for _, item := range items {
		if _, seen := demand[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		demand[item.ProductID] += item.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var products map[int64]*models.Product
	if len(ids) > 0 {
		products, err = s.productRepo.LockProductsTx(ctx, tx, ids)
		if err != nil {
			logger.Error("failed to lock products", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to lock products: %w", op, err)
		}
	}

	// позиции удалённых товаров в заказ не попадают
	var lines []models.CartItem
	for _, item := range items {
		if _, ok := products[item.ProductID]; ok {
			lines = append(lines, item)
		}
	}
	if len(lines) == 0 {
		logger.Warn("cart is empty")
		return nil, ErrEmptyCart
	}

	checked := make(map[int64]bool)
	subtotal := decimal.Zero
	for _, item := range lines {
		p := products[item.ProductID]
		if !checked[p.ID] {
			checked[p.ID] = true
			if !p.IsActive {
				return nil, validationErr("product_id", fmt.Sprintf("product %q is no longer available", p.Name))
			}
			if !p.HasStock(demand[p.ID]) {
				logger.Warn("insufficient stock", slog.Int64("productID", p.ID),
					slog.Int("stock", p.Stock), slog.Int("requested", demand[p.ID]))
				return nil, &InsufficientStockError{
					ProductName: p.Name,
					Available:   p.Stock,
					Requested:   demand[p.ID],
				}
			}
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount, promoCode, err := s.applyCoupon(ctx, tx, logger, in.CouponCode, subtotal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "online"
	}
	userID := in.UserID
	order := &models.Order{
		UserID:            &userID,
		Status:            models.OrderStatusPending,
		ShippingAddressID: &addressID,
		PaymentMethod:     paymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		Subtotal:          subtotal,
		ShippingCost:      s.cfg.ShippingCost,
		Tax:               subtotal.Sub(discount).Mul(s.cfg.TaxRate).Round(2),
		Discount:          discount,
		PromoCode:         promoCode,
	}

	if err := s.insertOrder(ctx, tx, order); err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, item := range lines {
		p := products[item.ProductID]
		productID := p.ID
		oi := models.OrderItem{
			OrderID:      order.ID,
			ProductID:    &productID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     item.Quantity,
			ColorID:      item.ColorID,
			SizeID:       item.SizeID,
			ColorName:    item.ColorName,
			SizeName:     item.SizeName,
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, &oi); err != nil {
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		order.Items = append(order.Items, oi)
	}

	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			continue
		}
		if err := s.productRepo.DeductStockTx(ctx, tx, id, demand[id]); err != nil {
			if errors.Is(err, storage.ErrInsufficientStock) {
				return nil, &InsufficientStockError{ProductName: p.Name, Available: p.Stock, Requested: demand[id]}
			}
			logger.Error("failed to deduct stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.movementRepo.CreateMovementTx(ctx, tx, id, &order.ID, -demand[id], models.MovementCheckout); err != nil {
			logger.Error("failed to record stock movement", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.cartRepo.ClearItemsTx(ctx, tx, cart.ID); err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// applyCoupon возвращает скидку и код купона для заказа.
// Неизвестный или неприменимый купон не прерывает оформление: скидка 0, предупреждение в лог.
func (s *CheckoutService) applyCoupon(ctx context.Context, tx *sql.Tx, logger *slog.Logger, code string, subtotal decimal.Decimal) (decimal.Decimal, *string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, nil, nil
	}
	logger = logger.With(slog.String("coupon", code))

	c, err := s.couponRepo.GetCouponByCodeForUpdateTx(ctx, tx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCouponNotFound) {
			logger.Warn("coupon not found, checkout continues without discount")
			return decimal.Zero, nil, nil
		}
		return decimal.Zero, nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	res := coupon.Evaluate(c, subtotal, s.now())
	if !res.Valid {
		logger.Warn("coupon rejected, checkout continues without discount", slog.String("reason", string(res.Reason)))
		return decimal.Zero, nil, nil
	}

	if err := s.couponRepo.IncrementUsageTx(ctx, tx, c.ID); err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	promo := c.Code
	return res.Discount, &promo, nil
}

// insertOrder подбирает свободный номер заказа, не прерывая транзакцию при конфликте
func (s *CheckoutService) insertOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		number, err := s.newOrderNumber()
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}
		order.OrderNumber = number

		inserted, err := s.orderRepo.InsertOrderTx(ctx, tx, order)
		if err != nil {
			return err
		}
		if inserted {
			return nil
		}
		s.log.Warn("order number collision, retrying", slog.String("orderNumber", number))
	}
	return fmt.Errorf("failed to allocate unique order number after %d attempts", maxOrderNumberAttempts)
}
