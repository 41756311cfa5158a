package repositories

import (
	"context"
	"errors"
	"fmt"

	"lotwise/internal/common"
	"lotwise/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	List(ctx context.Context, limit, offset int) ([]*models.Product, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]*models.Variant, error)
	UpdateStockCached(ctx context.Context, productID uuid.UUID, qty int) error
	UpdateVariantStockCached(ctx context.Context, variantID uuid.UUID, qty int) error
}

type productRepo struct {
	db Database
}

func NewProductRepo(db Database) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product := &models.Product{}
	query := `
		SELECT id, name, sku, has_variants, stock_cached, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&product.ID, &product.Name, &product.SKU,
		&product.HasVariants, &product.StockCached, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepo) GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	variant := &models.Variant{}
	query := `
		SELECT id, product_id, name, sku, stock_cached, created_at, updated_at
		FROM variants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&variant.ID, &variant.ProductID, &variant.Name,
		&variant.SKU, &variant.StockCached, &variant.CreatedAt, &variant.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return variant, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT id, name, sku, has_variants, stock_cached, created_at, updated_at
		FROM products
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.Name, &product.SKU,
			&product.HasVariants, &product.StockCached, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]*models.Variant, error) {
	query := `
		SELECT id, product_id, name, sku, stock_cached, created_at, updated_at
		FROM variants
		WHERE product_id = $1
		ORDER BY name ASC
	`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []*models.Variant
	for rows.Next() {
		variant := &models.Variant{}
		if err := rows.Scan(&variant.ID, &variant.ProductID, &variant.Name,
			&variant.SKU, &variant.StockCached, &variant.CreatedAt, &variant.UpdatedAt); err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
	return variants, rows.Err()
}

func (r *productRepo) UpdateStockCached(ctx context.Context, productID uuid.UUID, qty int) error {
	query := `UPDATE products SET stock_cached = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, productID, qty)
	return err
}

func (r *productRepo) UpdateVariantStockCached(ctx context.Context, variantID uuid.UUID, qty int) error {
	query := `UPDATE variants SET stock_cached = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, variantID, qty)
	return err
}
