package model

import "fmt"

// OrderBatch is the result of one submission. It always holds a sequence,
// even for a unified order.
type OrderBatch struct {
	ShippingType ShippingType
	Orders       []Order
	// Replayed is set when a unified submission matched an existing order.
	Replayed bool
	Outcomes []ItemOutcome
}

// SellerOrders groups order codes under one seller.
type SellerOrders struct {
	SellerName string   `json:"seller_name"`
	OrderCodes []string `json:"order_codes"`
}

// Count returns the number of orders.
func (b OrderBatch) Count() int {
	return len(b.Orders)
}

// PrimaryCode returns the first order's code, or "" for an empty batch.
func (b OrderBatch) PrimaryCode() string {
	if len(b.Orders) == 0 {
		return ""
	}
	return b.Orders[0].OrderCode
}

// BySeller groups order codes by seller in first-seen order.
func (b OrderBatch) BySeller() []SellerOrders {
	var groups []SellerOrders
	index := make(map[string]int)
	for _, o := range b.Orders {
		i, ok := index[o.SellerName]
		if !ok {
			i = len(groups)
			index[o.SellerName] = i
			groups = append(groups, SellerOrders{SellerName: o.SellerName})
		}
		groups[i].OrderCodes = append(groups[i].OrderCodes, o.OrderCode)
	}
	return groups
}

// Response renders the batch as the boundary success payload.
func (b OrderBatch) Response() OrderResponse {
	message := fmt.Sprintf("Orders created successfully with %s shipping", b.ShippingType)
	if b.Replayed {
		message = "Order already exists"
	}

	orders := b.Orders
	if orders == nil {
		orders = []Order{}
	}

	return OrderResponse{
		Success:      true,
		Message:      message,
		ShippingType: b.ShippingType,
		OrdersCount:  len(orders),
		Orders:       orders,
		Replayed:     b.Replayed,
		Outcomes:     b.Outcomes,
	}
}
