package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-orders/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservation(items ...model.ReservationItem) *model.Reservation {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Reservation{
		ID:        ulid.Make().String(),
		Items:     items,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
}

func hold(productID string, qty int) model.ReservationItem {
	return model.ReservationItem{ProductID: productID, Quantity: qty}
}

func counters(t *testing.T, pool *pgxpool.Pool, id string) (stock, reserved int) {
	err := pool.QueryRow(context.Background(),
		`SELECT stock, reserved_stock FROM products WHERE id = $1`, id,
	).Scan(&stock, &reserved)
	require.NoError(t, err)
	return stock, reserved
}

func TestReservationRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewReservationRepository(pool, zerolog.Nop())
	seedProducts(t, pool, []model.Product{
		product("A", "A", 10, 5, 0),
		product("B", "B", 10, 3, 1),
	})

	res := newReservation(hold("B", 2), hold("A", 1))
	require.NoError(t, repo.Create(context.Background(), res))

	stock, reserved := counters(t, pool, "A")
	assert.Equal(t, 5, stock)
	assert.Equal(t, 1, reserved)
	stock, reserved = counters(t, pool, "B")
	assert.Equal(t, 3, stock)
	assert.Equal(t, 3, reserved)

	stored, err := repo.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Items, 2)
	for _, item := range stored.Items {
		assert.Equal(t, model.ReservationReserved, item.Status)
	}
}

func TestReservationRepository_Create_AllOrNothing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewReservationRepository(pool, zerolog.Nop())
	seedProducts(t, pool, []model.Product{
		product("A", "A", 10, 5, 0),
		product("B", "B", 10, 0, 0),
	})

	res := newReservation(hold("A", 1), hold("B", 1), hold("MISSING", 1))
	err := repo.Create(context.Background(), res)

	var stockErr *model.StockUnavailableError
	require.True(t, errors.As(err, &stockErr))
	assert.ElementsMatch(t, []model.StockShortfall{
		{ProductID: "B", Requested: 1, Available: 0},
		{ProductID: "MISSING", Requested: 1, Available: 0},
	}, stockErr.Shortfalls)

	_, reserved := counters(t, pool, "A")
	assert.Equal(t, 0, reserved, "hold on A must be rolled back")

	stored, err := repo.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestReservationRepository_Create_NeverOversells(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewReservationRepository(pool, zerolog.Nop())
	seedProducts(t, pool, []model.Product{product("A", "A", 10, 5, 0)})

	var succeeded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(context.Background(), newReservation(hold("A", 1)))
			if err == nil {
				succeeded.Add(1)
				return
			}
			var stockErr *model.StockUnavailableError
			assert.True(t, errors.As(err, &stockErr))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), succeeded.Load())
	stock, reserved := counters(t, pool, "A")
	assert.Equal(t, 5, stock)
	assert.Equal(t, 5, reserved)
}

func TestReservationRepository_Transition(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewReservationRepository(pool, zerolog.Nop())
	ctx := context.Background()
	seedProducts(t, pool, []model.Product{
		product("A", "A", 10, 5, 0),
		product("B", "B", 10, 5, 0),
	})

	res := newReservation(hold("A", 2), hold("B", 3))
	require.NoError(t, repo.Create(ctx, res))

	t.Run("Confirm selected product", func(t *testing.T) {
		affected, err := repo.Transition(ctx, res.ID, model.ReservationConfirmed, []string{"A"})
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		stock, reserved := counters(t, pool, "A")
		assert.Equal(t, 3, stock)
		assert.Equal(t, 0, reserved)
	})

	t.Run("Repeated confirm is a no-op", func(t *testing.T) {
		affected, err := repo.Transition(ctx, res.ID, model.ReservationConfirmed, []string{"A"})
		require.NoError(t, err)
		assert.Equal(t, 0, affected)

		stock, _ := counters(t, pool, "A")
		assert.Equal(t, 3, stock)
	})

	t.Run("Release the rest", func(t *testing.T) {
		affected, err := repo.Transition(ctx, res.ID, model.ReservationReleased, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		stock, reserved := counters(t, pool, "B")
		assert.Equal(t, 5, stock)
		assert.Equal(t, 0, reserved)
	})

	t.Run("Confirmed items cannot be released", func(t *testing.T) {
		affected, err := repo.Transition(ctx, res.ID, model.ReservationReleased, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, affected)

		stored, err := repo.Get(ctx, res.ID)
		require.NoError(t, err)
		statuses := map[string]model.ReservationStatus{}
		for _, item := range stored.Items {
			statuses[item.ProductID] = item.Status
		}
		assert.Equal(t, map[string]model.ReservationStatus{
			"A": model.ReservationConfirmed,
			"B": model.ReservationReleased,
		}, statuses)
	})

	t.Run("Unknown reservation", func(t *testing.T) {
		_, err := repo.Transition(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ", model.ReservationReleased, nil)
		assert.ErrorIs(t, err, model.ErrReservationNotFound)
	})

	t.Run("Unsupported status", func(t *testing.T) {
		_, err := repo.Transition(ctx, res.ID, model.ReservationReserved, nil)
		assert.Error(t, err)
	})
}
