package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// ProductStorage описывает чтение каталога и изменение остатков.
// Все изменения остатков выполняются только внутри транзакции вызывающего.
type ProductStorage interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	// ListCategories возвращает плоский список категорий, упорядоченный по id.
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListBrands(ctx context.Context) ([]*models.Brand, error)
	ListGenders(ctx context.Context) ([]*models.Gender, error)
	// GetProduct возвращает активный товар вместе с доступными цветами и размерами.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	// LockProductsTx блокирует строки товаров (FOR UPDATE) в порядке возрастания id.
	LockProductsTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error)
	GetColorNameTx(ctx context.Context, tx *sql.Tx, productID, colorID int64) (string, error)
	GetSizeNameTx(ctx context.Context, tx *sql.Tx, productID, sizeID int64) (string, error)
	// DeductStockTx списывает остаток; если остатка не хватает - ErrInsufficientStock.
	DeductStockTx(ctx context.Context, tx *sql.Tx, productID int64, qty int) error
	// RestockTx возвращает остаток; удалённый товар - ErrProductNotFound.
	RestockTx(ctx context.Context, tx *sql.Tx, productID int64, qty int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, name, slug, description, price, stock, is_active, category_id, brand_id, gender_id, created_at, updated_at"

func scanProduct(row scanner) (*models.Product, error) {
	p := &models.Product{}
	var categoryID, brandID, genderID sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
		&p.IsActive, &categoryID, &brandID, &genderID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CategoryID = nullInt64(categoryID)
	p.BrandID = nullInt64(brandID)
	p.GenderID = nullInt64(genderID)
	return p, nil
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// категория вместе со всеми потомками
const categoryTreeQuery = `category_id IN (
	WITH RECURSIVE tree AS (
		SELECT id FROM categories WHERE slug = $%d
		UNION ALL
		SELECT c.id FROM categories c JOIN tree t ON c.parent_id = t.id
	)
	SELECT id FROM tree)`

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE is_active"
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += " AND " + fmt.Sprintf(categoryTreeQuery, len(args))
	}
	if filter.Brand != "" {
		args = append(args, filter.Brand)
		query += fmt.Sprintf(" AND brand_id = (SELECT id FROM brands WHERE slug = $%d)", len(args))
	}
	if filter.Gender != "" {
		args = append(args, filter.Gender)
		query += fmt.Sprintf(" AND gender_id = (SELECT id FROM genders WHERE slug = $%d)", len(args))
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug, parent_id FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		var parentID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &parentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.ParentID = nullInt64(parentID)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *productRepository) ListBrands(ctx context.Context) ([]*models.Brand, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug FROM brands ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	var brands []*models.Brand
	for rows.Next() {
		b := &models.Brand{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *productRepository) ListGenders(ctx context.Context) ([]*models.Gender, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug FROM genders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query genders: %w", err)
	}
	defer rows.Close()

	var genders []*models.Gender
	for rows.Next() {
		g := &models.Gender{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan gender: %w", err)
		}
		genders = append(genders, g)
	}
	return genders, rows.Err()
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND is_active", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	p.Colors, err = r.listVariants(ctx, `
		SELECT c.id, c.name FROM colors c
		JOIN product_colors pc ON pc.color_id = c.id
		WHERE pc.product_id = $1 ORDER BY c.id`, id)
	if err != nil {
		return nil, err
	}
	p.Sizes, err = r.listVariants(ctx, `
		SELECT s.id, s.name FROM sizes s
		JOIN product_sizes ps ON ps.size_id = s.id
		WHERE ps.product_id = $1 ORDER BY s.id`, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) listVariants(ctx context.Context, query string, productID int64) ([]models.Variant, error) {
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []models.Variant
	for rows.Next() {
		var v models.Variant
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *productRepository) GetProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	p, err := scanProduct(tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) LockProductsTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE"
	rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", translatePQError(err))
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetColorNameTx(ctx context.Context, tx *sql.Tx, productID, colorID int64) (string, error) {
	return variantName(ctx, tx, `
		SELECT c.name FROM colors c
		JOIN product_colors pc ON pc.color_id = c.id
		WHERE pc.product_id = $1 AND c.id = $2`, productID, colorID)
}

func (r *productRepository) GetSizeNameTx(ctx context.Context, tx *sql.Tx, productID, sizeID int64) (string, error) {
	return variantName(ctx, tx, `
		SELECT s.name FROM sizes s
		JOIN product_sizes ps ON ps.size_id = s.id
		WHERE ps.product_id = $1 AND s.id = $2`, productID, sizeID)
}

func variantName(ctx context.Context, tx *sql.Tx, query string, productID, variantID int64) (string, error) {
	var name string
	if err := tx.QueryRowContext(ctx, query, productID, variantID).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrVariantNotFound
		}
		return "", err
	}
	return name, nil
}

func (r *productRepository) DeductStockTx(ctx context.Context, tx *sql.Tx, productID int64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepository) RestockTx(ctx context.Context, tx *sql.Tx, productID int64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
