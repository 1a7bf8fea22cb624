package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-orders/internal/delivery"
	"storefront-orders/internal/fanout"
	"storefront-orders/internal/model"
	"storefront-orders/internal/repository"
	"storefront-orders/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	validator *validation.Validator
	planner   *fanout.Planner
	quoter    delivery.Quoter
	publisher OrderPublisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	validator *validation.Validator,
	planner *fanout.Planner,
	quoter delivery.Quoter,
	publisher OrderPublisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		validator: validator,
		planner:   planner,
		quoter:    quoter,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrders re-validates the request, plans it and persists each order
// through an insert-or-return-existing upsert on its idempotency key.
//
// Unified shipping writes the order and its items in one transaction and
// replays the stored order when the key is already bound. Fast shipping
// writes every sub-order in its own transaction and reports a per-item
// outcome; it fails only when no sub-order could be stored.
func (s *orderService) CreateOrders(ctx context.Context, req *model.OrderRequest) (*model.OrderBatch, error) {
	if req == nil {
		return nil, model.NewValidationError("order request is required")
	}

	mode := req.Mode()
	if !mode.Valid() {
		s.logger.Warn().Str("shipping_type", string(req.ShippingType)).Msg("invalid shipping type")
		return nil, model.NewValidationError(model.ErrInvalidShippingType.Message)
	}

	draft, err := s.validator.Validate(validation.FromRequest(req))
	if err != nil {
		return nil, err
	}

	s.priceDelivery(draft)
	s.compareClientTotals(req, draft)

	specs, err := s.planner.Plan(draft, mode)
	if err != nil {
		return nil, err
	}

	var batch *model.OrderBatch
	if mode == model.ShippingUnified {
		batch, err = s.createUnified(ctx, specs[0])
	} else {
		batch, err = s.createFast(ctx, specs)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_code", draft.OrderCode).
		Str("shipping_type", string(mode)).
		Int("orders_count", batch.Count()).
		Bool("replayed", batch.Replayed).
		Msg("orders submitted")

	return batch, nil
}

func (s *orderService) createUnified(ctx context.Context, spec model.OrderSpec) (*model.OrderBatch, error) {
	order, created, err := s.persist(ctx, spec)
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, *order)
	}

	return &model.OrderBatch{
		ShippingType: model.ShippingUnified,
		Orders:       []model.Order{*order},
		Replayed:     !created,
	}, nil
}

func (s *orderService) createFast(ctx context.Context, specs []model.OrderSpec) (*model.OrderBatch, error) {
	batch := &model.OrderBatch{ShippingType: model.ShippingFast}
	var firstErr error
	existing := 0

	for _, spec := range specs {
		outcome := model.ItemOutcome{
			OrderCode:      spec.OrderCode,
			IdempotencyKey: spec.IdempotencyKey,
			ProductID:      spec.Items[0].ProductID,
		}

		order, created, err := s.persist(ctx, spec)
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
			outcome.Status = model.OutcomeFailed
			outcome.Error = err.Error()
			s.logger.Warn().
				Err(err).
				Str("order_code", spec.OrderCode).
				Str("product_id", outcome.ProductID).
				Msg("fast shipping sub-order failed, continuing with the rest")
		case created:
			outcome.Status = model.OutcomeCreated
			batch.Orders = append(batch.Orders, *order)
			s.publish(ctx, *order)
		default:
			outcome.Status = model.OutcomeExisting
			outcome.OrderCode = order.OrderCode
			batch.Orders = append(batch.Orders, *order)
			existing++
		}

		batch.Outcomes = append(batch.Outcomes, outcome)
	}

	if len(batch.Orders) == 0 {
		return nil, fmt.Errorf("failed to create any fast shipping order: %w", firstErr)
	}

	batch.Replayed = existing == len(specs)
	return batch, nil
}

// persist writes one order and its items in a single transaction. When the
// idempotency key is already bound the stored order is returned instead.
func (s *orderService) persist(ctx context.Context, spec model.OrderSpec) (order *model.Order, created bool, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order = orderFromSpec(spec, s.now().UTC())

	created, err = s.orderRepo.UpsertOrder(ctx, tx, order)
	if err != nil {
		s.logger.Error().Err(err).Str("order_code", spec.OrderCode).Msg("failed to create order")
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	if created {
		items := itemsFromSpec(order.ID, spec)
		if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
			s.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Int("item_count", len(items)).
				Msg("failed to create order items")
			return nil, false, fmt.Errorf("failed to create order items: %w", err)
		}
		order.Items = items
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	return order, created, nil
}

// GetByCode retrieves the orders filed under code.
func (s *orderService) GetByCode(ctx context.Context, code string) ([]model.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, model.ErrOrderNotFound
	}

	orders, err := s.orderRepo.GetByCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("order_code", code).Msg("failed to get orders")
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	if len(orders) == 0 {
		s.logger.Debug().Str("order_code", code).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return orders, nil
}

// priceDelivery replaces the requested delivery cost with the rate-table
// price when the customer's city has one.
func (s *orderService) priceDelivery(draft *model.OrderDraft) {
	if s.quoter == nil {
		return
	}

	cost, ok := s.quoter.Quote(draft.Customer.City)
	if !ok || cost.Equal(draft.DeliveryCost) {
		return
	}

	s.logger.Debug().
		Str("city", draft.Customer.City).
		Str("requested", draft.DeliveryCost.String()).
		Str("quoted", cost.String()).
		Msg("delivery cost priced from rate table")

	draft.DeliveryCost = cost
	draft.Total = draft.Subtotal.Add(cost)
}

// compareClientTotals logs client-computed totals that disagree with the
// server's. Client totals are advisory only.
func (s *orderService) compareClientTotals(req *model.OrderRequest, draft *model.OrderDraft) {
	check := func(field string, raw model.Scalar, want decimal.Decimal) {
		if raw == "" {
			return
		}
		got, err := decimal.NewFromString(strings.TrimSpace(raw.String()))
		if err != nil || !got.Equal(want) {
			s.logger.Warn().
				Str("order_code", draft.OrderCode).
				Str("field", field).
				Str("client", raw.String()).
				Str("server", want.String()).
				Msg("client total disagrees with server")
		}
	}

	check("subtotal", req.Subtotal, draft.Subtotal)
	check("total_amount", req.TotalAmount, draft.Total)
}

func (s *orderService) publish(ctx context.Context, order model.Order) {
	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("order_code", order.OrderCode).Msg("failed to publish order created event")
	}
}

func orderFromSpec(spec model.OrderSpec, now time.Time) *model.Order {
	return &model.Order{
		ID:              uuid.New(),
		Customer:        spec.Customer,
		OrderCode:       spec.OrderCode,
		Subtotal:        spec.Subtotal,
		DeliveryCost:    spec.DeliveryCost,
		TotalAmount:     spec.Total,
		DiscountedPrice: spec.DiscountTotal,
		OrderStatus:     model.OrderStatusPending,
		SellerName:      spec.SellerName,
		IdempotencyKey:  spec.IdempotencyKey,
		ShippingType:    spec.ShippingType,
		CreatedAt:       now,
	}
}

func itemsFromSpec(orderID uuid.UUID, spec model.OrderSpec) []model.OrderItem {
	items := make([]model.OrderItem, len(spec.Items))
	for i, item := range spec.Items {
		items[i] = model.OrderItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			Price:           item.Price,
			DiscountedPrice: item.DiscountedPrice,
			SellerName:      item.SellerName,
		}
	}
	return items
}

