package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
)

func TestCreateSale(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 5)

	sale, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, product.ID, sale.ProductID)
	assert.Equal(t, user.ID, sale.UserID)
	assert.Equal(t, 2, sale.Quantity)
	assert.Equal(t, "Lunettes", sale.ProductName)
	assert.Equal(t, "Alice", sale.UserName)
	assert.True(t, sale.UnitPrice.Equal(product.Price))
	assert.True(t, sale.LineTotal.Equal(product.Price.Mul(decimalFromInt(2))),
		"line total should be unit price * quantity, got %s", sale.LineTotal)
	assert.False(t, sale.Date.IsZero())

	assert.Equal(t, 3, currentStock(t, env.repo, product.ID))
}

func TestCreateSaleUnknownReferences(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 5)

	var notFound *domain.NotFoundError

	_, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID + 100,
		Quantity:  1,
	})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Entity)

	_, err = env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID + 100,
		UserID:    user.ID,
		Quantity:  1,
	})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "product", notFound.Entity)

	// No write happened
	assert.Equal(t, 5, currentStock(t, env.repo, product.ID))
}

func TestCreateSaleInvalidQuantity(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 5)

	for _, quantity := range []int{0, -3} {
		_, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
			ProductID: product.ID,
			UserID:    user.ID,
			Quantity:  quantity,
		})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
	}

	assert.Equal(t, 5, currentStock(t, env.repo, product.ID))
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 5)

	_, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  6,
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)

	// Neither a sale row nor a stock change was persisted
	sales, err := env.sales.GetAllSales(ctx, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, 5, currentStock(t, env.repo, product.ID))
}

func TestCreateSaleExactStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 4)

	// stock == quantity is the boundary case and must succeed
	_, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  4,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, currentStock(t, env.repo, product.ID))
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 10)

	sale, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  4,
	})
	require.NoError(t, err)
	require.Equal(t, 6, currentStock(t, env.repo, product.ID))

	require.NoError(t, env.sales.DeleteSale(ctx, sale.ID))

	// Delete(Create(p, u, q)) restores the pre-create stock
	assert.Equal(t, 10, currentStock(t, env.repo, product.ID))

	var notFound *domain.NotFoundError
	_, err = env.sales.GetSaleByID(ctx, sale.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestDeleteSaleNotFound(t *testing.T) {
	env := newTestEnv()

	var notFound *domain.NotFoundError
	err := env.sales.DeleteSale(context.Background(), 42)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "sale", notFound.Entity)
}

func TestUpdateSaleQuantityDelta(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 5)

	sale, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  3,
	})
	require.NoError(t, err)
	require.Equal(t, 2, currentStock(t, env.repo, product.ID))

	// Raising the quantity applies only the delta
	quantity := 4
	updated, err := env.sales.UpdateSale(ctx, sale.ID, models.SaleUpdateRequest{Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, 1, currentStock(t, env.repo, product.ID))

	// Lowering it gives the difference back
	quantity = 1
	updated, err = env.sales.UpdateSale(ctx, sale.ID, models.SaleUpdateRequest{Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Quantity)
	assert.Equal(t, 4, currentStock(t, env.repo, product.ID))
}

func TestUpdateSaleQuantityInsufficientStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 5)

	sale, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  3,
	})
	require.NoError(t, err)

	// delta = 6 - 3 = 3 exceeds the remaining stock of 2
	quantity := 6
	_, err = env.sales.UpdateSale(ctx, sale.ID, models.SaleUpdateRequest{Quantity: &quantity})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	// Nothing changed
	assert.Equal(t, 2, currentStock(t, env.repo, product.ID))
	current, err := env.sales.GetSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, current.Quantity)
}

func TestUpdateSaleMoveBetweenProducts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	oldProduct := seedProduct(t, env.repo, "Lunettes", "49.90", 5)
	newProduct := seedProduct(t, env.repo, "Montures", "30.00", 10)

	sale, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: oldProduct.ID,
		UserID:    user.ID,
		Quantity:  3,
	})
	require.NoError(t, err)

	// Moving the sale restores the old product and charges the new one
	quantity := 7
	updated, err := env.sales.UpdateSale(ctx, sale.ID, models.SaleUpdateRequest{
		ProductID: &newProduct.ID,
		Quantity:  &quantity,
	})
	require.NoError(t, err)

	assert.Equal(t, newProduct.ID, updated.ProductID)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, 5, currentStock(t, env.repo, oldProduct.ID))
	assert.Equal(t, 3, currentStock(t, env.repo, newProduct.ID))
}

func TestUpdateSaleMoveInsufficientStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	oldProduct := seedProduct(t, env.repo, "Lunettes", "49.90", 5)
	newProduct := seedProduct(t, env.repo, "Montures", "30.00", 2)

	sale, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: oldProduct.ID,
		UserID:    user.ID,
		Quantity:  3,
	})
	require.NoError(t, err)

	// The new product cannot cover the sale's quantity
	_, err = env.sales.UpdateSale(ctx, sale.ID, models.SaleUpdateRequest{ProductID: &newProduct.ID})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	assert.Equal(t, 2, currentStock(t, env.repo, oldProduct.ID))
	assert.Equal(t, 2, currentStock(t, env.repo, newProduct.ID))
	current, err := env.sales.GetSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, oldProduct.ID, current.ProductID)
}

func TestGetSalesByDateRange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedUser(t, env.repo, "Alice", "alice@example.com")

	// Inverted range fails before any query
	_, err := env.sales.GetSalesByDateRange(ctx,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestGetTotalSalesAmount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "10.50", 100)

	for _, quantity := range []int{2, 3} {
		_, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
			ProductID: product.ID,
			UserID:    user.ID,
			Quantity:  quantity,
		})
		require.NoError(t, err)
	}

	total, err := env.sales.GetTotalSalesAmount(ctx, nil, nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimalFromString("52.50")), "got %s", total)

	// A range covering everything gives the same total
	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)
	total, err = env.sales.GetTotalSalesAmount(ctx, &start, &end)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimalFromString("52.50")), "got %s", total)

	// An empty range sums to zero
	farStart := start.Add(-48 * time.Hour)
	farEnd := start.Add(-47 * time.Hour)
	total, err = env.sales.GetTotalSalesAmount(ctx, &farStart, &farEnd)
	require.NoError(t, err)
	assert.True(t, total.IsZero(), "got %s", total)
}

// The worked example: stock 10 at 5.00, sell 3, fail to sell 8, delete the
// first sale, end back at 10.
func TestSaleWorkflowScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := seedUser(t, env.repo, "Alice", "alice@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "5.00", 10)

	first, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, currentStock(t, env.repo, product.ID))
	assert.True(t, first.LineTotal.Equal(decimalFromString("15.00")), "got %s", first.LineTotal)

	_, err = env.sales.CreateSale(ctx, models.SaleCreateRequest{
		ProductID: product.ID,
		UserID:    user.ID,
		Quantity:  8,
	})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Contains(t, err.Error(), "7")

	require.NoError(t, env.sales.DeleteSale(ctx, first.ID))
	assert.Equal(t, 10, currentStock(t, env.repo, product.ID))
}

func TestGetSalesByUserAndProduct(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	alice := seedUser(t, env.repo, "Alice", "alice@example.com")
	bob := seedUser(t, env.repo, "Bob", "bob@example.com")
	product := seedProduct(t, env.repo, "Lunettes", "49.90", 10)

	for _, userID := range []int64{alice.ID, alice.ID, bob.ID} {
		_, err := env.sales.CreateSale(ctx, models.SaleCreateRequest{
			ProductID: product.ID,
			UserID:    userID,
			Quantity:  1,
		})
		require.NoError(t, err)
	}

	byAlice, err := env.sales.GetSalesByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, byAlice, 2)

	byProduct, err := env.sales.GetSalesByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, byProduct, 3)

	var notFound *domain.NotFoundError
	_, err = env.sales.GetSalesByUser(ctx, bob.ID+100)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Entity)
}
