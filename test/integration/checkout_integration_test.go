package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-orders/internal/checkout"
	"storefront-orders/internal/fanout"
	"storefront-orders/internal/idempotency"
	"storefront-orders/internal/model"
	"storefront-orders/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckoutSession(t *testing.T, baseURL string) *checkout.Session {
	t.Helper()

	logger := zerolog.Nop()
	return checkout.NewSession(
		checkout.NewClient(baseURL, testAPIKey, logger),
		validation.NewValidator(logger),
		fanout.NewPlanner(logger),
		idempotency.NewResumeManager(idempotency.NewMemoryStore(), logger),
		checkout.Options{SubmitTimeout: 10 * time.Second},
		logger,
	)
}

func TestCheckout_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	api := httptest.NewServer(setupTestServer(t, testDB))
	t.Cleanup(api.Close)

	t.Run("single seller cart is submitted unified and stock is sold", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		session := newCheckoutSession(t, api.URL)
		result, err := session.Submit(context.Background(), validation.CheckoutInput{
			Customer: model.Customer{Name: "Sara", Phone: "0770 123 4567", Address: "Basra, Al-Ashar"},
			Items: []validation.ItemInput{
				{ProductID: "P001", Quantity: "3", Price: "10000", SellerName: "Store A"},
			},
		}, "")

		require.NoError(t, err)
		require.True(t, result.Success, result.Message)
		assert.Equal(t, model.ShippingUnified, result.Batch.ShippingType)
		require.Len(t, result.Batch.Orders, 1)
		assert.Equal(t, "البصرة", result.Batch.Orders[0].City)

		stock, reserved := Counters(t, testDB.Pool, "P001")
		assert.Equal(t, 7, stock)
		assert.Zero(t, reserved)
	})

	t.Run("multi seller cart fans out and confirms every item", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		session := newCheckoutSession(t, api.URL)
		result, err := session.Submit(context.Background(), validation.CheckoutInput{
			Customer: model.Customer{Name: "Sara", Phone: "07701234567", Address: "Erbil"},
			Items: []validation.ItemInput{
				{ProductID: "P002", Quantity: "1", Price: "20000", SellerName: "Store A"},
				{ProductID: "P005", Quantity: "1", Price: "50000", MainStoreName: "Store C"},
			},
			OrderCode: "MULTI001",
		}, "")

		require.NoError(t, err)
		require.True(t, result.Success, result.Message)
		assert.Equal(t, model.ShippingFast, result.Batch.ShippingType)
		assert.Len(t, result.Outcomes, 2)
		assert.Len(t, result.Batch.BySeller(), 2)

		stock, reserved := Counters(t, testDB.Pool, "P005")
		assert.Zero(t, stock)
		assert.Zero(t, reserved)
	})

	t.Run("out of stock cart fails before any order is sent", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		session := newCheckoutSession(t, api.URL)
		result, err := session.Submit(context.Background(), validation.CheckoutInput{
			Customer: model.Customer{Name: "Sara", Phone: "07701234567", Address: "Erbil"},
			Items: []validation.ItemInput{
				{ProductID: "P004", Quantity: "1", Price: "40000", SellerName: "Store B"},
			},
			OrderCode: "EMPTY001",
		}, "")

		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, checkout.KindValidation, result.ErrorKind)
		require.Len(t, result.Shortfalls, 1)
		assert.Equal(t, "P004", result.Shortfalls[0].ProductID)

		var orders int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM orders").Scan(&orders))
		assert.Zero(t, orders)
	})
}
