package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/jwt-new/jwtmiddleware"
	"github.com/matintgp/ecommerce-proj/internal/service"
	"github.com/shopspring/decimal"
)

// CartSessionHeader - идентификатор гостевой корзины
const CartSessionHeader = "X-Cart-Session"

type CartService interface {
	GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	AddItem(ctx context.Context, owner models.CartOwner, in service.AddItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, owner models.CartOwner, itemID int64, qty int) (*models.Cart, error)
	DecreaseItem(ctx context.Context, owner models.CartOwner, itemID int64, amount int) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner models.CartOwner, itemID int64) (*models.Cart, error)
	Clear(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
}

type AddCartItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	ColorID   *int64 `json:"color_id" validate:"omitempty,gt=0"`
	SizeID    *int64 `json:"size_id" validate:"omitempty,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type DecreaseCartItemRequest struct {
	Amount int `json:"amount" validate:"required,gt=0"`
}

type CartItemView struct {
	models.CartItem
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
}

// CartView - корзина с суммами по позициям и итогом
type CartView struct {
	ID        int64           `json:"id"`
	SessionID *string         `json:"session_id,omitempty"`
	Items     []CartItemView  `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

func newCartView(cart *models.Cart) CartView {
	view := CartView{
		ID:        cart.ID,
		SessionID: cart.SessionID,
		Items:     make([]CartItemView, 0, len(cart.Items)),
		Total:     cart.Total(),
	}
	for _, item := range cart.Items {
		iv := CartItemView{CartItem: item}
		if line, ok := item.LineTotal(); ok {
			iv.Subtotal = &line
		}
		view.Items = append(view.Items, iv)
	}
	return view
}

// cartOwner определяет владельца корзины: авторизованный пользователь или гость.
// Гостю без корректной сессии выдаётся новая в заголовке ответа.
func cartOwner(w http.ResponseWriter, r *http.Request) models.CartOwner {
	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		return models.CartOwner{UserID: &userID}
	}
	session := r.Header.Get(CartSessionHeader)
	if _, err := uuid.Parse(session); err != nil {
		session = uuid.NewString()
	}
	w.Header().Set(CartSessionHeader, session)
	return models.CartOwner{SessionID: &session}
}

// existingCartOwner не создаёт новую гостевую сессию, владелец может быть пустым
func existingCartOwner(r *http.Request) models.CartOwner {
	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		return models.CartOwner{UserID: &userID}
	}
	session := r.Header.Get(CartSessionHeader)
	if _, err := uuid.Parse(session); err != nil {
		return models.CartOwner{}
	}
	return models.CartOwner{SessionID: &session}
}

func writeCart(w http.ResponseWriter, logger *slog.Logger, status int, cart *models.Cart, err error) {
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, logger, status, newCartView(cart))
}

// GetCartHandler обрабатывает GET /api/orders/cart и GET /api/orders/cart/items
func GetCartHandler(log *slog.Logger, carts CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetCartHandler"))

		cart, err := carts.GetCart(r.Context(), cartOwner(w, r))
		writeCart(w, logger, http.StatusOK, cart, err)
	}
}

// AddCartItemHandler обрабатывает POST /api/orders/cart/items
func AddCartItemHandler(log *slog.Logger, carts CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.AddCartItemHandler"))

		var req AddCartItemRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		cart, err := carts.AddItem(r.Context(), cartOwner(w, r), service.AddItemInput{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			ColorID:   req.ColorID,
			SizeID:    req.SizeID,
		})
		writeCart(w, logger, http.StatusCreated, cart, err)
	}
}

// UpdateCartItemHandler обрабатывает PATCH /api/orders/cart/items/{id}
func UpdateCartItemHandler(log *slog.Logger, carts CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.UpdateCartItemHandler"))

		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		var req UpdateCartItemRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		cart, err := carts.UpdateItem(r.Context(), cartOwner(w, r), id, req.Quantity)
		writeCart(w, logger, http.StatusOK, cart, err)
	}
}

// DecreaseCartItemHandler обрабатывает POST /api/orders/cart/items/{id}/decrease
func DecreaseCartItemHandler(log *slog.Logger, carts CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.DecreaseCartItemHandler"))

		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		var req DecreaseCartItemRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		cart, err := carts.DecreaseItem(r.Context(), cartOwner(w, r), id, req.Amount)
		writeCart(w, logger, http.StatusOK, cart, err)
	}
}

// RemoveCartItemHandler обрабатывает DELETE /api/orders/cart/items/{id}
func RemoveCartItemHandler(log *slog.Logger, carts CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.RemoveCartItemHandler"))

		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		cart, err := carts.RemoveItem(r.Context(), cartOwner(w, r), id)
		writeCart(w, logger, http.StatusOK, cart, err)
	}
}

// ClearCartHandler обрабатывает DELETE /api/orders/cart/items
func ClearCartHandler(log *slog.Logger, carts CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ClearCartHandler"))

		cart, err := carts.Clear(r.Context(), cartOwner(w, r))
		writeCart(w, logger, http.StatusOK, cart, err)
	}
}
