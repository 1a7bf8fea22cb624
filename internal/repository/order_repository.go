package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-orders/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_code, customer_name, customer_phone, customer_address, customer_city,
	customer_notes, subtotal, delivery_cost, total_amount, discounted_price,
	order_status, seller_name, idempotency_key, shipping_type, created_at`

const orderItemColumns = `id, order_id, product_id, product_name, quantity, price, discounted_price, seller_name`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// UpsertOrder inserts order or, when its idempotency key is already bound,
// loads the stored order instead. A concurrent insert of the same key blocks
// on the unique index until the other transaction finishes, so exactly one
// caller observes created == true.
func (r *orderRepository) UpsertOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		order.ID,
		order.OrderCode,
		order.Name,
		order.Phone,
		order.Address,
		order.City,
		order.Notes,
		order.Subtotal,
		order.DeliveryCost,
		order.TotalAmount,
		order.DiscountedPrice,
		order.OrderStatus,
		order.SellerName,
		order.IdempotencyKey,
		order.ShippingType,
		order.CreatedAt,
	).Scan(&order.CreatedAt)
	if err == nil {
		r.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("order_code", order.OrderCode).
			Msg("order created successfully")
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error().
			Err(err).
			Str("order_code", order.OrderCode).
			Str("idempotency_key", order.IdempotencyKey).
			Msg("failed to create order")
		return false, fmt.Errorf("failed to create order: %w", err)
	}

	existing, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, order.IdempotencyKey))
	if err != nil {
		r.logger.Error().Err(err).Str("idempotency_key", order.IdempotencyKey).Msg("failed to load existing order")
		return false, fmt.Errorf("failed to load existing order: %w", err)
	}

	items, err := r.loadItems(ctx, tx, []uuid.UUID{existing.ID})
	if err != nil {
		return false, err
	}
	existing.Items = items[existing.ID]

	r.logger.Info().
		Str("order_id", existing.ID.String()).
		Str("idempotency_key", order.IdempotencyKey).
		Msg("idempotency key already bound, returning existing order")

	*order = existing
	return false, nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (` + orderItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
			item.DiscountedPrice,
			item.SellerName,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByCode returns the orders filed under code with their items.
func (r *orderRepository) GetByCode(ctx context.Context, code string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE order_code = $1 OR order_code LIKE $2
		ORDER BY created_at, order_code
	`

	rows, err := r.pool.Query(ctx, query, code, escapeLike(code)+"-%")
	if err != nil {
		r.logger.Error().Err(err).Str("order_code", code).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		r.logger.Debug().Str("order_code", code).Msg("order not found")
		return nil, nil
	}

	items, err := r.loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q querier, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + `
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_id
	`

	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(orderIDs)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.DiscountedPrice,
			&item.SellerName,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.Name,
		&o.Phone,
		&o.Address,
		&o.City,
		&o.Notes,
		&o.Subtotal,
		&o.DeliveryCost,
		&o.TotalAmount,
		&o.DiscountedPrice,
		&o.OrderStatus,
		&o.SellerName,
		&o.IdempotencyKey,
		&o.ShippingType,
		&o.CreatedAt,
	)
	return o, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
