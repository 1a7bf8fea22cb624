// Package fanout expands a validated order draft into the orders to create.
package fanout

import (
	"fmt"

	"storefront-orders/internal/idempotency"
	"storefront-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Planner splits drafts into order specs.
type Planner struct {
	generate func(scope idempotency.Scope, n int) []string
	logger   zerolog.Logger
}

// NewPlanner creates a planner that mints fast-shipping keys with
// idempotency.Generate.
func NewPlanner(logger zerolog.Logger) *Planner {
	return &Planner{
		generate: idempotency.Generate,
		logger:   logger.With().Str("component", "fanout").Logger(),
	}
}

// Plan expands draft into one spec (unified) or one spec per item (fast).
// In fast mode every spec carries its own key: the item's key when the client
// sent one, otherwise a freshly minted key.
func (p *Planner) Plan(draft *model.OrderDraft, mode model.ShippingType) ([]model.OrderSpec, error) {
	if draft == nil || len(draft.Items) == 0 {
		return nil, model.NewValidationError("order must contain at least one item")
	}

	switch mode {
	case model.ShippingUnified:
		return p.planUnified(draft)
	case model.ShippingFast:
		return p.planFast(draft)
	default:
		return nil, model.NewValidationError(model.ErrInvalidShippingType.Message)
	}
}

func (p *Planner) planUnified(draft *model.OrderDraft) ([]model.OrderSpec, error) {
	if draft.IdempotencyKey == "" {
		return nil, model.NewValidationError(model.ErrMissingIdempotencyKey.Message)
	}

	items := make([]model.CartItem, len(draft.Items))
	copy(items, draft.Items)

	seller := draft.SellerName
	if seller == "" {
		seller = model.UnknownSeller
	}

	spec := model.OrderSpec{
		OrderCode:      draft.OrderCode,
		IdempotencyKey: draft.IdempotencyKey,
		ShippingType:   model.ShippingUnified,
		SellerName:     seller,
		Customer:       draft.Customer,
		Items:          items,
		Subtotal:       draft.Subtotal,
		DiscountTotal:  draft.DiscountTotal,
		DeliveryCost:   draft.DeliveryCost,
		Total:          draft.Subtotal.Add(draft.DeliveryCost),
	}

	return []model.OrderSpec{spec}, nil
}

func (p *Planner) planFast(draft *model.OrderDraft) ([]model.OrderSpec, error) {
	specs := make([]model.OrderSpec, 0, len(draft.Items))
	seen := make(map[string]bool, len(draft.Items))
	minted := p.generate(idempotency.ScopeFast, len(draft.Items))

	for i, item := range draft.Items {
		key := item.IdempotencyKey
		if key == "" {
			key = minted[i]
		}
		if seen[key] {
			return nil, model.NewValidationError(fmt.Sprintf("item %s reuses another item's idempotency key", item.ProductID))
		}
		seen[key] = true
		item.IdempotencyKey = key

		subtotal := item.LineTotal()
		var discount *decimal.Decimal
		if item.DiscountedPrice != nil {
			d := item.LineDiscount()
			discount = &d
		}

		specs = append(specs, model.OrderSpec{
			OrderCode:      SubOrderCode(draft.OrderCode, i, len(draft.Items)),
			IdempotencyKey: key,
			ShippingType:   model.ShippingFast,
			SellerName:     item.SellerName,
			Customer:       draft.Customer,
			Items:          []model.CartItem{item},
			Subtotal:       subtotal,
			DiscountTotal:  discount,
			DeliveryCost:   draft.DeliveryCost,
			Total:          subtotal.Add(draft.DeliveryCost),
		})
	}

	p.logger.Debug().
		Str("order_code", draft.OrderCode).
		Int("sub_orders", len(specs)).
		Msg("planned fast shipping fan-out")

	return specs, nil
}

// SubOrderCode returns the code of the index-th (0-based) fast sub-order.
// A single item keeps the draft's code.
func SubOrderCode(code string, index, total int) string {
	if total <= 1 {
		return code
	}
	return fmt.Sprintf("%s-%d", code, index+1)
}

// SuggestMode returns fast when the items span more than one seller.
func SuggestMode(items []model.CartItem) model.ShippingType {
	for _, item := range items[min(1, len(items)):] {
		if item.SellerName != items[0].SellerName {
			return model.ShippingFast
		}
	}
	return model.ShippingUnified
}
