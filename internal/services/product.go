package service

import (
	"context"
	"errors"
	"fmt"

	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"golang.org/x/sync/singleflight"
)

type ProductService interface {
	GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error)
	ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error)
}

type productService struct {
	repo  repository.ProductRepository
	group singleflight.Group
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

func (s *productService) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}

type productPage struct {
	products []*models.Product
	total    int
}

// ListProducts coalesces identical concurrent page requests into one query.
// The shared query outlives the caller that started it so that a cancelled
// leader does not fail every waiter.
func (s *productService) ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error) {
	key := fmt.Sprintf("%d:%d", page, size)

	v, err, _ := s.group.Do(key, func() (any, error) {
		queryCtx, cancel := utils.WithDBTimeout(context.WithoutCancel(ctx))
		defer cancel()

		products, total, err := s.repo.ListProducts(queryCtx, page, size)
		if err != nil {
			return nil, err
		}

		return productPage{products: products, total: total}, nil
	})
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to fetch products").WithError(err)
	}

	result := v.(productPage)

	return result.products, result.total, nil
}
