package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, name, price, seller_name, stock, reserved_stock, stock - reserved_stock, created_at`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.SellerName, &p.Stock, &p.ReservedStock, &p.Available, &p.CreatedAt)
	return p, err
}

// List retrieves one page of products, optionally limited to a seller or to
// products with unreserved stock left.
func (r *productRepository) List(ctx context.Context, filter model.StockFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR seller_name = $1)
		  AND (NOT $2 OR stock - reserved_stock > 0)
		ORDER BY name, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, filter.Seller, filter.InStockOnly, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Str("seller", filter.Seller).
			Bool("in_stock_only", filter.InStockOnly).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return r.collect(rows)
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	return r.collect(rows)
}

// GetAvailability returns stock - reserved_stock for each known product.
func (r *productRepository) GetAvailability(ctx context.Context, ids []string) (map[string]int, error) {
	available := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return available, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, stock - reserved_stock FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query availability")
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan availability row")
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		available[id] = n
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating availability rows")
		return nil, fmt.Errorf("error iterating availability: %w", err)
	}

	return available, nil
}

func (r *productRepository) collect(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
