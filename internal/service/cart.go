package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
	"github.com/shopspring/decimal"
)

type CartService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage) *CartService {
	return &CartService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddItemInput - позиция определяется тройкой (товар, цвет, размер)
type AddItemInput struct {
	ProductID int64
	Quantity  int
	ColorID   *int64
	SizeID    *int64
}

func ownerAttrs(owner models.CartOwner) slog.Attr {
	if owner.UserID != nil {
		return slog.Int64("userID", *owner.UserID)
	}
	if owner.SessionID != nil {
		return slog.String("session", *owner.SessionID)
	}
	return slog.String("owner", "none")
}

// withCart выполняет fn в транзакции над заблокированной корзиной владельца
// и возвращает корзину с актуальными позициями.
func (s *CartService) withCart(ctx context.Context, op string, owner models.CartOwner, fn func(tx *sql.Tx, cart *models.Cart) error) (*models.Cart, error) {
	logger := s.log.With(slog.String("op", op), ownerAttrs(owner))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	cart, err := s.cartRepo.GetOrCreateCartTx(ctx, tx, owner)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to get cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart: %w", op, err)
	}

	if fn != nil {
		if err := fn(tx, cart); err != nil {
			rollback(logger, tx)
			return nil, err
		}
	}

	cart.Items, err = s.cartRepo.ListItemsTx(ctx, tx, cart.ID)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to list cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list cart items: %w", op, err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	return s.withCart(ctx, "service.CartService.GetCart", owner, nil)
}

// Total - сумма корзины без позиций удалённых товаров
func (s *CartService) Total(ctx context.Context, owner models.CartOwner) (decimal.Decimal, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Total(), nil
}

// productQuantityTx - сколько единиц товара уже лежит в корзине во всех вариантах,
// без позиции skipItemID
func (s *CartService) productQuantityTx(ctx context.Context, tx *sql.Tx, cartID, productID, skipItemID int64) (int, error) {
	items, err := s.cartRepo.ListItemsTx(ctx, tx, cartID)
	if err != nil {
		return 0, fmt.Errorf("failed to list cart items: %w", err)
	}
	total := 0
	for _, item := range items {
		if item.ProductID == productID && item.ID != skipItemID {
			total += item.Quantity
		}
	}
	return total, nil
}

// AddItem добавляет товар или увеличивает количество существующей позиции
// с тем же цветом и размером. Остаток проверяется по сумме всех вариантов товара в корзине.
func (s *CartService) AddItem(ctx context.Context, owner models.CartOwner, in AddItemInput) (*models.Cart, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), ownerAttrs(owner), slog.Int64("productID", in.ProductID))

	if in.Quantity <= 0 {
		return nil, validationErr("quantity", "must be greater than zero")
	}

	return s.withCart(ctx, op, owner, func(tx *sql.Tx, cart *models.Cart) error {
		product, err := s.productRepo.GetProductTx(ctx, tx, in.ProductID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !product.IsActive {
			return validationErr("product_id", "product is not available")
		}
		if in.ColorID != nil {
			if _, err := s.productRepo.GetColorNameTx(ctx, tx, product.ID, *in.ColorID); err != nil {
				if errors.Is(err, storage.ErrVariantNotFound) {
					return validationErr("color_id", "color is not available for this product")
				}
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		if in.SizeID != nil {
			if _, err := s.productRepo.GetSizeNameTx(ctx, tx, product.ID, *in.SizeID); err != nil {
				if errors.Is(err, storage.ErrVariantNotFound) {
					return validationErr("size_id", "size is not available for this product")
				}
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		existing, err := s.cartRepo.FindItemTx(ctx, tx, cart.ID, product.ID, in.ColorID, in.SizeID)
		if err != nil && !errors.Is(err, storage.ErrCartItemNotFound) {
			return fmt.Errorf("%s: failed to find cart item: %w", op, err)
		}

		inCart, err := s.productQuantityTx(ctx, tx, cart.ID, product.ID, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !product.HasStock(inCart + in.Quantity) {
			logger.Warn("insufficient stock", slog.Int("stock", product.Stock), slog.Int("inCart", inCart))
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   in.Quantity,
				InCart:      inCart,
			}
		}

		if existing != nil {
			if err := s.cartRepo.UpdateItemQuantityTx(ctx, tx, existing.ID, existing.Quantity+in.Quantity); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			return nil
		}

		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			ColorID:   in.ColorID,
			SizeID:    in.SizeID,
			Quantity:  in.Quantity,
		}
		if err := s.cartRepo.CreateItemTx(ctx, tx, item); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("item added to cart", slog.Int64("itemID", item.ID))
		return nil
	})
}

// UpdateItem задаёт абсолютное количество позиции
func (s *CartService) UpdateItem(ctx context.Context, owner models.CartOwner, itemID int64, qty int) (*models.Cart, error) {
	const op = "service.CartService.UpdateItem"

	if qty <= 0 {
		return nil, validationErr("quantity", "must be greater than zero")
	}

	return s.withCart(ctx, op, owner, func(tx *sql.Tx, cart *models.Cart) error {
		item, err := s.cartRepo.GetItemTx(ctx, tx, cart.ID, itemID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		product, err := s.productRepo.GetProductTx(ctx, tx, item.ProductID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		others, err := s.productQuantityTx(ctx, tx, cart.ID, product.ID, item.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !product.HasStock(others + qty) {
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   qty,
				InCart:      others,
			}
		}
		if err := s.cartRepo.UpdateItemQuantityTx(ctx, tx, item.ID, qty); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// DecreaseItem уменьшает количество; если amount не меньше количества, позиция удаляется
func (s *CartService) DecreaseItem(ctx context.Context, owner models.CartOwner, itemID int64, amount int) (*models.Cart, error) {
	const op = "service.CartService.DecreaseItem"

	if amount <= 0 {
		return nil, validationErr("amount", "must be greater than zero")
	}

	return s.withCart(ctx, op, owner, func(tx *sql.Tx, cart *models.Cart) error {
		item, err := s.cartRepo.GetItemTx(ctx, tx, cart.ID, itemID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if amount >= item.Quantity {
			if err := s.cartRepo.DeleteItemTx(ctx, tx, cart.ID, item.ID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			return nil
		}
		if err := s.cartRepo.UpdateItemQuantityTx(ctx, tx, item.ID, item.Quantity-amount); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, owner models.CartOwner, itemID int64) (*models.Cart, error) {
	const op = "service.CartService.RemoveItem"

	return s.withCart(ctx, op, owner, func(tx *sql.Tx, cart *models.Cart) error {
		if err := s.cartRepo.DeleteItemTx(ctx, tx, cart.ID, itemID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	const op = "service.CartService.Clear"

	return s.withCart(ctx, op, owner, func(tx *sql.Tx, cart *models.Cart) error {
		if err := s.cartRepo.ClearItemsTx(ctx, tx, cart.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}
