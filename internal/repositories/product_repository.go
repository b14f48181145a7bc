package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
)

type ProductRepository interface {
	GetProductByID(ctx context.Context, id models.ProductID) (*models.Product, error)
	ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error)
	DecrementStock(ctx context.Context, id models.ProductID, amount int64) error
}

type productRepository struct {
	DB DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id models.ProductID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}

	query := `
		SELECT id, name, description, price, stock, image, created_at, updated_at
		FROM products
		WHERE id = $1`

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock, &product.Image, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return product, nil
}

func (r *productRepository) ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM products`

	if err := r.DB.QueryRowContext(dbCtx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	// Offset
	offset := (page - 1) * size

	query := `
		SELECT id, name, description, price, stock, image, created_at, updated_at
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}

	defer rows.Close()

	products := make([]*models.Product, 0, size)

	for rows.Next() {
		product := &models.Product{}

		err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock, &product.Image, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// DecrementStock removes amount units in a single conditional statement, so
// concurrent callers can never drive stock below zero.
func (r *productRepository) DecrementStock(ctx context.Context, id models.ProductID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("decrement amount must be positive, got %d", amount)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`

	result, err := r.DB.ExecContext(dbCtx, query, id, amount)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if affected == 1 {
		return nil
	}

	var exists bool

	if err := r.DB.QueryRowContext(dbCtx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking product existence: %w", err)
	}

	if !exists {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
}
