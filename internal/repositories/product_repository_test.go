package repository_test

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "name", "description", "price", "stock", "image", "created_at", "updated_at"}

func setupProductRepoTest(t *testing.T) (repository.ProductRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	return repository.NewProductRepo(db), mock
}

func TestProductRepository_GetProductByID(t *testing.T) {
	ctx := t.Context()
	expectedSQL := regexp.QuoteMeta(`SELECT id, name, description, price, stock, image, created_at, updated_at FROM products WHERE id = $1`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		repo, mock := setupProductRepoTest(t)
		now := time.Now()

		mock.ExpectQuery(expectedSQL).
			WithArgs(models.ProductID(7)).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow(int64(7), "Desk Lamp", "Warm light", "19.99", int64(12), "lamp.png", now, now))

		// Act
		product, err := repo.GetProductByID(ctx, 7)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.ProductID(7), product.ID)
		assert.Equal(t, "Desk Lamp", product.Name)
		assert.True(t, decimal.RequireFromString("19.99").Equal(product.Price))
		assert.Equal(t, int64(12), product.Stock)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)

		mock.ExpectQuery(expectedSQL).
			WithArgs(models.ProductID(99)).
			WillReturnError(sql.ErrNoRows)

		product, err := repo.GetProductByID(ctx, 99)

		require.Error(t, err)
		assert.Nil(t, product)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)
		dbErr := errors.New("connection reset")

		mock.ExpectQuery(expectedSQL).
			WithArgs(models.ProductID(3)).
			WillReturnError(dbErr)

		product, err := repo.GetProductByID(ctx, 3)

		require.Error(t, err)
		assert.Nil(t, product)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_ListProducts(t *testing.T) {
	ctx := t.Context()
	countSQL := regexp.QuoteMeta(`SELECT COUNT(*) FROM products`)
	listSQL := regexp.QuoteMeta(`FROM products ORDER BY id LIMIT $1 OFFSET $2`)

	t.Run("Success", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)
		now := time.Now()

		mock.ExpectQuery(countSQL).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
		mock.ExpectQuery(listSQL).
			WithArgs(5, 5).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow(int64(6), "Mug", "", "8.50", int64(3), "", now, now).
				AddRow(int64(7), "Pen", "", "1.25", int64(40), "", now, now))

		products, total, err := repo.ListProducts(ctx, 2, 5)

		require.NoError(t, err)
		assert.Equal(t, 12, total)
		require.Len(t, products, 2)
		assert.Equal(t, models.ProductID(6), products[0].ID)
		assert.Equal(t, "Pen", products[1].Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Count Error", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)

		mock.ExpectQuery(countSQL).WillReturnError(errors.New("boom"))

		products, total, err := repo.ListProducts(ctx, 1, 10)

		require.Error(t, err)
		assert.Nil(t, products)
		assert.Zero(t, total)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Scan Error", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)
		now := time.Now()

		mock.ExpectQuery(countSQL).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(listSQL).
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow("not-a-number", "Mug", "", "8.50", int64(3), "", now, now))

		_, _, err := repo.ListProducts(ctx, 1, 10)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "scanning product")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_DecrementStock(t *testing.T) {
	ctx := t.Context()
	updateSQL := regexp.QuoteMeta(`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`)
	existsSQL := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`)

	t.Run("Success", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)

		mock.ExpectExec(updateSQL).
			WithArgs(models.ProductID(7), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DecrementStock(ctx, 7, 2)

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient Stock", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)

		mock.ExpectExec(updateSQL).
			WithArgs(models.ProductID(7), int64(20)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(existsSQL).
			WithArgs(models.ProductID(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.DecrementStock(ctx, 7, 20)

		require.Error(t, err)
		assert.ErrorIs(t, err, repository.ErrInsufficientStock)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Product", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)

		mock.ExpectExec(updateSQL).
			WithArgs(models.ProductID(404), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(existsSQL).
			WithArgs(models.ProductID(404)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := repo.DecrementStock(ctx, 404, 1)

		require.Error(t, err)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Non-Positive Amount", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)

		err := repo.DecrementStock(ctx, 7, 0)

		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exec Error", func(t *testing.T) {
		repo, mock := setupProductRepoTest(t)
		dbErr := errors.New("deadlock detected")

		mock.ExpectExec(updateSQL).
			WithArgs(models.ProductID(7), int64(1)).
			WillReturnError(dbErr)

		err := repo.DecrementStock(ctx, 7, 1)

		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
