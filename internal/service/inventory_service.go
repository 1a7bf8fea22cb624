package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-orders/internal/model"
	"storefront-orders/internal/repository"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// inventoryService implements InventoryService.
type inventoryService struct {
	productRepo     repository.ProductRepository
	reservationRepo repository.ReservationRepository
	scheduler       ExpiryScheduler
	ttl             time.Duration
	now             func() time.Time
	logger          zerolog.Logger
}

// NewInventoryService creates a new inventory service. Reservations expire
// ttl after creation through scheduler.
func NewInventoryService(
	productRepo repository.ProductRepository,
	reservationRepo repository.ReservationRepository,
	scheduler ExpiryScheduler,
	ttl time.Duration,
	logger zerolog.Logger,
) InventoryService {
	return &inventoryService{
		productRepo:     productRepo,
		reservationRepo: reservationRepo,
		scheduler:       scheduler,
		ttl:             ttl,
		now:             time.Now,
		logger:          logger.With().Str("service", "inventory").Logger(),
	}
}

const (
	defaultStockPage = 10
	maxStockPage     = 100
)

// ListStock pages through products. Out-of-range paging falls back to the
// defaults instead of failing.
func (s *inventoryService) ListStock(ctx context.Context, filter model.StockFilter) ([]model.Product, error) {
	filter.Seller = strings.TrimSpace(filter.Seller)
	if filter.Limit <= 0 {
		filter.Limit = defaultStockPage
	}
	filter.Limit = min(filter.Limit, maxStockPage)
	filter.Offset = max(filter.Offset, 0)

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}

	s.logger.Debug().
		Str("seller", filter.Seller).
		Bool("in_stock_only", filter.InStockOnly).
		Int("count", len(products)).
		Msg("listed stock")

	return products, nil
}

// StockLevel returns the counters of one product.
func (s *inventoryService) StockLevel(ctx context.Context, productID string) (*model.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}
	if product == nil {
		s.logger.Debug().Str("product_id", productID).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// CheckAvailability compares each request with stock - reserved_stock.
// Unknown products count as zero available.
func (s *inventoryService) CheckAvailability(ctx context.Context, items []model.StockRequest) ([]model.StockShortfall, error) {
	merged, err := mergeStockRequests(items)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(merged))
	for i, item := range merged {
		ids[i] = item.ProductID
	}

	available, err := s.productRepo.GetAvailability(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to check availability")
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}

	shortfalls := []model.StockShortfall{}
	for _, item := range merged {
		if have := available[item.ProductID]; have < item.Quantity {
			shortfalls = append(shortfalls, model.StockShortfall{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: max(have, 0),
			})
		}
	}

	s.logger.Debug().
		Int("items", len(merged)).
		Int("shortfalls", len(shortfalls)).
		Msg("availability checked")

	return shortfalls, nil
}

// Reserve checks availability and then holds stock for every item.
func (s *inventoryService) Reserve(ctx context.Context, items []model.StockRequest) (*model.Reservation, error) {
	shortfalls, err := s.CheckAvailability(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(shortfalls) > 0 {
		s.logger.Info().Int("shortfalls", len(shortfalls)).Msg("reservation refused, stock unavailable")
		return nil, &model.StockUnavailableError{Shortfalls: shortfalls}
	}

	merged, _ := mergeStockRequests(items)
	now := s.now().UTC()
	reservation := &model.Reservation{
		ID:        ulid.Make().String(),
		Items:     make([]model.ReservationItem, len(merged)),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	for i, item := range merged {
		reservation.Items[i] = model.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		var stockErr *model.StockUnavailableError
		if errors.As(err, &stockErr) {
			s.logger.Info().Int("shortfalls", len(stockErr.Shortfalls)).Msg("stock taken by a concurrent reservation")
			return nil, stockErr
		}
		s.logger.Error().Err(err).Msg("failed to reserve stock")
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	if err := s.scheduler.ScheduleExpiry(ctx, reservation.ID, reservation.ExpiresAt); err != nil {
		s.logger.Error().
			Err(err).
			Str("reservation_id", reservation.ID).
			Msg("failed to schedule reservation expiry")
	}

	s.logger.Info().
		Str("reservation_id", reservation.ID).
		Int("items", len(reservation.Items)).
		Time("expires_at", reservation.ExpiresAt).
		Msg("stock reserved")

	return reservation, nil
}

// Confirm turns held stock into sold stock.
func (s *inventoryService) Confirm(ctx context.Context, reservationID string, productIDs []string) (int, error) {
	return s.transition(ctx, reservationID, model.ReservationConfirmed, productIDs)
}

// Release returns held stock.
func (s *inventoryService) Release(ctx context.Context, reservationID string, productIDs []string) (int, error) {
	return s.transition(ctx, reservationID, model.ReservationReleased, productIDs)
}

func (s *inventoryService) transition(ctx context.Context, reservationID string, status model.ReservationStatus, productIDs []string) (int, error) {
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return 0, model.ErrReservationNotFound
	}

	affected, err := s.reservationRepo.Transition(ctx, reservationID, status, productIDs)
	if err != nil {
		if errors.Is(err, model.ErrReservationNotFound) {
			s.logger.Debug().Str("reservation_id", reservationID).Msg("reservation not found")
			return 0, err
		}
		s.logger.Error().
			Err(err).
			Str("reservation_id", reservationID).
			Str("status", string(status)).
			Msg("failed to update reservation")
		return 0, fmt.Errorf("failed to update reservation: %w", err)
	}

	s.logger.Info().
		Str("reservation_id", reservationID).
		Str("status", string(status)).
		Int("affected", affected).
		Msg("reservation updated")

	return affected, nil
}

// mergeStockRequests validates requests and sums duplicate products,
// keeping first-seen order.
func mergeStockRequests(items []model.StockRequest) ([]model.StockRequest, error) {
	if len(items) == 0 {
		return nil, model.NewValidationError("at least one item is required")
	}

	merged := make([]model.StockRequest, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			return nil, model.NewValidationError("product id is required")
		}
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		if i, ok := index[id]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, model.StockRequest{ProductID: id, Quantity: item.Quantity})
	}

	return merged, nil
}
