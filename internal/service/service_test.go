package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/opticstore/server/internal/models"
	"github.com/opticstore/server/internal/repository"
	"github.com/opticstore/server/internal/service"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	repo     *repository.MemoryRepository
	auth     service.AuthService
	products service.ProductService
	sales    service.SaleService
}

func newTestEnv() *testEnv {
	repo := repository.NewMemoryRepository()
	return &testEnv{
		repo:     repo,
		auth:     service.NewAuthService(repo, testJWTSecret, 30*time.Minute),
		products: service.NewProductService(repo),
		sales:    service.NewSaleService(repo),
	}
}

func seedUser(t *testing.T, repo repository.Repository, name, email string) *models.User {
	t.Helper()

	user := &models.User{Name: name, Email: email, Password: "hashed"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, repo repository.Repository, name, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), product))
	return product
}

func decimalFromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func decimalFromString(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func currentStock(t *testing.T, repo repository.Repository, productID int64) int {
	t.Helper()

	product, err := repo.GetProductByID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, product)
	return product.Stock
}
