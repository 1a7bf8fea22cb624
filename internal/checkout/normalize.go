package checkout

import (
	"bytes"
	"encoding/json"
	"fmt"

	"storefront-orders/internal/model"
)

// NormalizeOrders turns an orders field that may hold a single object, an
// array or null into a sequence.
func NormalizeOrders(raw json.RawMessage) ([]model.Order, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []model.Order{}, nil
	}

	switch trimmed[0] {
	case '[':
		var orders []model.Order
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, fmt.Errorf("failed to decode orders: %w", err)
		}
		if orders == nil {
			orders = []model.Order{}
		}
		return orders, nil
	case '{':
		var order model.Order
		if err := json.Unmarshal(trimmed, &order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		return []model.Order{order}, nil
	default:
		return nil, fmt.Errorf("unexpected orders payload: %.20s", trimmed)
	}
}
