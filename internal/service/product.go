package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

type ProductService struct {
	log          *slog.Logger
	productRepo  storage.ProductStorage
	movementRepo storage.StockMovementStorage
}

func NewProductService(log *slog.Logger, productRepo storage.ProductStorage, movementRepo storage.StockMovementStorage) *ProductService {
	return &ProductService{log: log, productRepo: productRepo, movementRepo: movementRepo}
}

// List - активные товары; неизвестный slug в фильтре даёт пустой список
func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	const op = "service.ProductService.List"

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// Categories собирает дерево категорий: в ответе только корни, подкатегории в Children
func (s *ProductService) Categories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.ProductService.Categories"

	flat, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byID := make(map[int64]*models.Category, len(flat))
	for _, c := range flat {
		c.Children = []*models.Category{}
		byID[c.ID] = c
	}
	roots := []*models.Category{}
	for _, c := range flat {
		parent, ok := byID[derefID(c.ParentID)]
		if c.ParentID == nil || !ok {
			roots = append(roots, c)
			continue
		}
		parent.Children = append(parent.Children, c)
	}
	return roots, nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func (s *ProductService) Brands(ctx context.Context) ([]*models.Brand, error) {
	const op = "service.ProductService.Brands"

	brands, err := s.productRepo.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return brands, nil
}

func (s *ProductService) Genders(ctx context.Context) ([]*models.Gender, error) {
	const op = "service.ProductService.Genders"

	genders, err := s.productRepo.ListGenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return genders, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.ProductService.Get"

	product, err := s.productRepo.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return product, nil
}

// StockMovements - журнал остатков товара, доступен только персоналу
func (s *ProductService) StockMovements(ctx context.Context, productID int64, isStaff bool) ([]*models.StockMovement, error) {
	const op = "service.ProductService.StockMovements"

	if !isStaff {
		return nil, ErrForbidden
	}
	movements, err := s.movementRepo.GetMovementsByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return movements, nil
}
