package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/testutil"
)

func TestCatalogStore_GetProduct(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewCatalogStore(db)
	product := testutil.CreateProduct(t, db, "Widget", "10.00", 5)

	got, err := store.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("10.00")))

	_, err = store.GetProduct(context.Background(), 9999)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestCatalogStore_ApplyStockDelta(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewCatalogStore(db)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Widget", "10.00", 5)

	require.NoError(t, store.ApplyStockDelta(ctx, product.ID, -5))
	assert.Equal(t, 0, testutil.ProductStock(t, db, product.ID))

	err := store.ApplyStockDelta(ctx, product.ID, -1)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.Equal(t, 0, testutil.ProductStock(t, db, product.ID))

	require.NoError(t, store.ApplyStockDelta(ctx, product.ID, 3))
	assert.Equal(t, 3, testutil.ProductStock(t, db, product.ID))

	err = store.ApplyStockDelta(ctx, 9999, 1)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestCatalogStore_ApplyStockDelta_Concurrent(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewCatalogStore(db)
	product := testutil.CreateProduct(t, db, "Widget", "10.00", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.ApplyStockDelta(context.Background(), product.ID, -1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, testutil.ProductStock(t, db, product.ID))
}

func TestCatalogStore_UpdateAggregateRating(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewCatalogStore(db)
	product := testutil.CreateProduct(t, db, "Widget", "10.00", 5)

	require.NoError(t, store.UpdateAggregateRating(context.Background(), product.ID, 4.5, 2))

	got, err := store.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.NumReviews)

	err = store.UpdateAggregateRating(context.Background(), 9999, 1, 1)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	t.Run("rating outside 0 to 5 is rejected by the database", func(t *testing.T) {
		for _, rating := range []float64{-0.5, 5.5} {
			err := store.UpdateAggregateRating(context.Background(), product.ID, rating, 2)
			assert.True(t, apperrors.Is(err, apperrors.KindUnexpected), "rating %v", rating)
		}
		err := store.UpdateAggregateRating(context.Background(), product.ID, 3, -1)
		assert.True(t, apperrors.Is(err, apperrors.KindUnexpected))

		got, err := store.GetProduct(context.Background(), product.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.5, got.Rating)
		assert.Equal(t, 2, got.NumReviews)
	})
}

func TestCatalogStore_ListProducts(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewCatalogStore(db)
	ctx := context.Background()

	category := models.Category{Name: "Office"}
	require.NoError(t, db.Create(&category).Error)

	cheap := testutil.CreateProduct(t, db, "Pencil", "1.50", 100)
	mid := testutil.CreateProduct(t, db, "Stapler", "12.00", 10)
	pricey := testutil.CreateProduct(t, db, "Chair", "150.00", 2)
	hidden := testutil.CreateProduct(t, db, "Retired", "5.00", 1)

	require.NoError(t, db.Model(&mid).Updates(map[string]interface{}{"category_id": category.ID, "rating": 4.8}).Error)
	require.NoError(t, db.Model(&pricey).Update("rating", 3.2).Error)
	require.NoError(t, db.Model(&hidden).Update("is_active", false).Error)

	t.Run("active only", func(t *testing.T) {
		products, total, err := store.ListProducts(ctx, ProductFilter{ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, products, 3)
	})

	t.Run("price range", func(t *testing.T) {
		minPrice := decimal.RequireFromString("1.00")
		maxPrice := decimal.RequireFromString("20.00")
		products, total, err := store.ListProducts(ctx, ProductFilter{ActiveOnly: true, MinPrice: &minPrice, MaxPrice: &maxPrice, Sort: SortPriceAsc})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, products, 2)
		assert.Equal(t, cheap.ID, products[0].ID)
		assert.Equal(t, mid.ID, products[1].ID)
	})

	t.Run("category", func(t *testing.T) {
		products, _, err := store.ListProducts(ctx, ProductFilter{CategoryID: &category.ID})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, mid.ID, products[0].ID)
	})

	t.Run("sort by price desc", func(t *testing.T) {
		products, _, err := store.ListProducts(ctx, ProductFilter{ActiveOnly: true, Sort: SortPriceDesc})
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, pricey.ID, products[0].ID)
	})

	t.Run("sort by rating", func(t *testing.T) {
		products, _, err := store.ListProducts(ctx, ProductFilter{ActiveOnly: true, Sort: SortRating})
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, mid.ID, products[0].ID)
		assert.Equal(t, pricey.ID, products[1].ID)
	})

	t.Run("paged", func(t *testing.T) {
		products, total, err := store.ListProducts(ctx, ProductFilter{ActiveOnly: true, Sort: SortPriceAsc, Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, products, 1)
		assert.Equal(t, mid.ID, products[0].ID)
	})
}

func TestCatalogStore_DeleteProduct(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewCatalogStore(db)
	orders := NewOrderService(db, nil)
	ctx := context.Background()
	customer := testutil.CreateUser(t, db, "buyer@example.com", models.RoleCustomer)

	t.Run("blocked by open order", func(t *testing.T) {
		product := testutil.CreateProduct(t, db, "Widget", "10.00", 5)
		_, err := orders.PlaceOrder(ctx, customer.ID, []LineItem{{ProductID: product.ID, Quantity: 1}}, testAddress)
		require.NoError(t, err)

		err = store.DeleteProduct(ctx, product.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindConflict))

		_, err = store.GetProduct(ctx, product.ID)
		assert.NoError(t, err)
	})

	t.Run("allowed once the order is cancelled", func(t *testing.T) {
		product := testutil.CreateProduct(t, db, "Gadget", "10.00", 5)
		order, err := orders.PlaceOrder(ctx, customer.ID, []LineItem{{ProductID: product.ID, Quantity: 1}}, testAddress)
		require.NoError(t, err)
		_, err = orders.UpdateStatus(ctx, order.ID, StatusUpdate{OrderStatus: stringPtr(models.OrderStatusCancelled)})
		require.NoError(t, err)

		require.NoError(t, store.DeleteProduct(ctx, product.ID))

		_, err = store.GetProduct(ctx, product.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("missing product", func(t *testing.T) {
		err := store.DeleteProduct(ctx, 9999)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})
}
