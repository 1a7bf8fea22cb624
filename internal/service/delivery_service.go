package service

import (
	"context"
	"strings"

	"storefront-orders/internal/delivery"
	"storefront-orders/internal/model"

	"github.com/rs/zerolog"
)

type deliveryService struct {
	quoter delivery.Quoter
	logger zerolog.Logger
}

// NewDeliveryService creates a delivery service over quoter.
func NewDeliveryService(quoter delivery.Quoter, logger zerolog.Logger) DeliveryService {
	return &deliveryService{
		quoter: quoter,
		logger: logger.With().Str("service", "delivery").Logger(),
	}
}

// Quote returns the delivery cost for city, or model.ErrDeliveryUnavailable.
func (s *deliveryService) Quote(_ context.Context, city string) (*model.DeliveryQuote, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, model.NewValidationError("city is required")
	}

	cost, ok := s.quoter.Quote(city)
	if !ok {
		s.logger.Debug().Str("city", city).Msg("no delivery rate for city")
		return nil, model.ErrDeliveryUnavailable
	}

	return &model.DeliveryQuote{City: city, DeliveryCost: cost}, nil
}
