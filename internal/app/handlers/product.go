package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type ProductService interface {
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	Categories(ctx context.Context) ([]*models.Category, error)
	Brands(ctx context.Context) ([]*models.Brand, error)
	Genders(ctx context.Context) ([]*models.Gender, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	StockMovements(ctx context.Context, productID int64, isStaff bool) ([]*models.StockMovement, error)
}

// ListProductsHandler - каталог с фильтрами ?category=, ?brand=, ?gender= (slug)
func ListProductsHandler(log *slog.Logger, products ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListProductsHandler"))

		q := r.URL.Query()
		list, err := products.List(r.Context(), models.ProductFilter{
			Category: q.Get("category"),
			Brand:    q.Get("brand"),
			Gender:   q.Get("gender"),
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if list == nil {
			list = []*models.Product{}
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

func GetProductHandler(log *slog.Logger, products ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetProductHandler"))

		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		product, err := products.Get(r.Context(), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, product)
	}
}

// StockMovementsHandler - журнал остатков товара для персонала
func StockMovementsHandler(log *slog.Logger, products ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.StockMovementsHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		movements, err := products.StockMovements(r.Context(), id, actor.IsStaff)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if movements == nil {
			movements = []*models.StockMovement{}
		}
		writeJSON(w, logger, http.StatusOK, movements)
	}
}

// CategoriesHandler отдаёт дерево категорий
func CategoriesHandler(log *slog.Logger, products ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.CategoriesHandler"))

		tree, err := products.Categories(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, tree)
	}
}

func BrandsHandler(log *slog.Logger, products ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.BrandsHandler"))

		brands, err := products.Brands(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if brands == nil {
			brands = []*models.Brand{}
		}
		writeJSON(w, logger, http.StatusOK, brands)
	}
}

func GendersHandler(log *slog.Logger, products ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GendersHandler"))

		genders, err := products.Genders(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if genders == nil {
			genders = []*models.Gender{}
		}
		writeJSON(w, logger, http.StatusOK, genders)
	}
}
