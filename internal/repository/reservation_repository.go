package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const holdStockQuery = `
	UPDATE products
	SET reserved_stock = reserved_stock + $2
	WHERE id = $1 AND stock - reserved_stock >= $2
`

// Both transitions move only items still held and adjust the counters from
// the rows actually moved, so a repeated call changes nothing.
const confirmQuery = `
	WITH moved AS (
		UPDATE stock_reservation_items
		SET status = 'confirmed', updated_at = NOW()
		WHERE reservation_id = $1 AND status = 'reserved'
			AND ($2::text[] IS NULL OR product_id = ANY($2))
		RETURNING product_id, quantity
	)
	UPDATE products p
	SET stock = p.stock - m.quantity, reserved_stock = p.reserved_stock - m.quantity
	FROM moved m
	WHERE p.id = m.product_id
`

const releaseQuery = `
	WITH moved AS (
		UPDATE stock_reservation_items
		SET status = 'released', updated_at = NOW()
		WHERE reservation_id = $1 AND status = 'reserved'
			AND ($2::text[] IS NULL OR product_id = ANY($2))
		RETURNING product_id, quantity
	)
	UPDATE products p
	SET reserved_stock = p.reserved_stock - m.quantity
	FROM moved m
	WHERE p.id = m.product_id
`

// reservationRepository implements the ReservationRepository interface using PostgreSQL.
type reservationRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReservationRepository {
	return &reservationRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "reservation").Logger(),
	}
}

// Create holds stock for every item in one transaction. Each hold is a
// conditional update sent in a single batch; if any product cannot cover
// its quantity the transaction is rolled back, undoing the holds already made.
func (r *reservationRepository) Create(ctx context.Context, reservation *model.Reservation) (err error) {
	items := make([]model.ReservationItem, len(reservation.Items))
	copy(items, reservation.Items)
	// Lock product rows in a stable order.
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(holdStockQuery, item.ProductID, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	var short []model.StockRequest
	for _, item := range items {
		tag, execErr := results.Exec()
		if execErr != nil {
			_ = results.Close()
			r.logger.Error().Err(execErr).Str("product_id", item.ProductID).Msg("failed to hold stock")
			err = fmt.Errorf("failed to hold stock: %w", execErr)
			return err
		}
		if tag.RowsAffected() == 0 {
			short = append(short, model.StockRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}
	if err = results.Close(); err != nil {
		r.logger.Error().Err(err).Msg("failed to close hold batch")
		return fmt.Errorf("failed to hold stock: %w", err)
	}

	if len(short) > 0 {
		err = r.shortfalls(ctx, tx, short)
		r.logger.Warn().
			Str("reservation_id", reservation.ID).
			Int("short_items", len(short)).
			Msg("reservation rejected, holds rolled back")
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO stock_reservations (id, expires_at, created_at) VALUES ($1, $2, $3)`,
		reservation.ID, reservation.ExpiresAt, reservation.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("reservation_id", reservation.ID).Msg("failed to create reservation")
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = []any{reservation.ID, item.ProductID, item.Quantity, string(model.ReservationReserved)}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"stock_reservation_items"},
		[]string{"reservation_id", "product_id", "quantity", "status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("reservation_id", reservation.ID).Msg("failed to create reservation items")
		return fmt.Errorf("failed to create reservation items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("reservation_id", reservation.ID).Msg("failed to commit reservation")
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	for i := range reservation.Items {
		reservation.Items[i].Status = model.ReservationReserved
	}

	r.logger.Debug().
		Str("reservation_id", reservation.ID).
		Int("item_count", len(items)).
		Msg("stock reserved")

	return nil
}

// shortfalls reads current availability for the rejected items inside tx and
// returns them as a *model.StockUnavailableError.
func (r *reservationRepository) shortfalls(ctx context.Context, tx pgx.Tx, short []model.StockRequest) error {
	ids := make([]string, len(short))
	for i, s := range short {
		ids[i] = s.ProductID
	}

	rows, err := tx.Query(ctx, `SELECT id, stock - reserved_stock FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	available := make(map[string]int, len(ids))
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return fmt.Errorf("failed to scan availability: %w", err)
		}
		available[id] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating availability: %w", err)
	}

	out := &model.StockUnavailableError{}
	for _, s := range short {
		out.Shortfalls = append(out.Shortfalls, model.StockShortfall{
			ProductID: s.ProductID,
			Requested: s.Quantity,
			Available: available[s.ProductID],
		})
	}
	return out
}

// Get retrieves a reservation with its items.
func (r *reservationRepository) Get(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.pool.QueryRow(ctx,
		`SELECT id, expires_at, created_at FROM stock_reservations WHERE id = $1`, id,
	).Scan(&res.ID, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("reservation_id", id).Msg("reservation not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("reservation_id", id).Msg("failed to query reservation")
		return nil, fmt.Errorf("failed to query reservation: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, quantity, status
		FROM stock_reservation_items
		WHERE reservation_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("reservation_id", id).Msg("failed to query reservation items")
		return nil, fmt.Errorf("failed to query reservation items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.ReservationItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Status); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan reservation item row")
			return nil, fmt.Errorf("failed to scan reservation item: %w", err)
		}
		res.Items = append(res.Items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating reservation item rows")
		return nil, fmt.Errorf("error iterating reservation items: %w", err)
	}

	return &res, nil
}

// Transition moves held items to status and adjusts product counters.
func (r *reservationRepository) Transition(ctx context.Context, id string, status model.ReservationStatus, productIDs []string) (int, error) {
	var query string
	switch status {
	case model.ReservationConfirmed:
		query = confirmQuery
	case model.ReservationReleased:
		query = releaseQuery
	default:
		return 0, fmt.Errorf("unsupported reservation transition: %s", status)
	}

	var filter []string
	if len(productIDs) > 0 {
		filter = productIDs
	}

	tag, err := r.pool.Exec(ctx, query, id, filter)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("reservation_id", id).
			Str("status", string(status)).
			Msg("failed to update reservation")
		return 0, fmt.Errorf("failed to update reservation: %w", err)
	}

	affected := int(tag.RowsAffected())
	if affected == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_reservations WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			r.logger.Error().Err(err).Str("reservation_id", id).Msg("failed to check reservation")
			return 0, fmt.Errorf("failed to check reservation: %w", err)
		}
		if !exists {
			return 0, model.ErrReservationNotFound
		}
	}

	r.logger.Debug().
		Str("reservation_id", id).
		Str("status", string(status)).
		Int("affected", affected).
		Msg("reservation updated")

	return affected, nil
}
