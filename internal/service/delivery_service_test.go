package service

import (
	"context"
	"errors"
	"testing"

	"storefront-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryService_Quote(t *testing.T) {
	service := NewDeliveryService(stubQuoter{
		"بغداد": decimal.NewFromInt(5000),
	}, zerolog.Nop())

	tests := []struct {
		name        string
		city        string
		expected    decimal.Decimal
		expectedErr error
		validation  bool
	}{
		{name: "Known city", city: " بغداد ", expected: decimal.NewFromInt(5000)},
		{name: "Unknown city", city: "Atlantis", expectedErr: model.ErrDeliveryUnavailable},
		{name: "Empty city", city: "  ", validation: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := service.Quote(context.Background(), tt.city)

			switch {
			case tt.validation:
				var verr *model.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, []string{"city is required"}, verr.Reasons)
			case tt.expectedErr != nil:
				assert.Equal(t, tt.expectedErr, err)
				assert.Nil(t, quote)
			default:
				require.NoError(t, err)
				assert.Equal(t, "بغداد", quote.City)
				assert.True(t, tt.expected.Equal(quote.DeliveryCost))
			}
		})
	}
}
