package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"storefront-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDeliveryService is a mock implementation of DeliveryService.
type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Quote(ctx context.Context, city string) (*model.DeliveryQuote, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryQuote), args.Error(1)
}

func TestDeliveryHandler_Quote(t *testing.T) {
	tests := []struct {
		name           string
		city           string
		mockReturn     *model.DeliveryQuote
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Known city",
			city:           "بغداد",
			mockReturn:     &model.DeliveryQuote{City: "بغداد", DeliveryCost: decimal.NewFromInt(5000)},
			expectedStatus: http.StatusOK,
		},
		{name: "Unknown city", city: "Atlantis", mockError: model.ErrDeliveryUnavailable, expectedStatus: http.StatusNotFound},
		{name: "Missing city", city: "", mockError: model.NewValidationError("city is required"), expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDeliveryService)
			handler := NewDeliveryHandler(mockService, zerolog.Nop())
			mockService.On("Quote", mock.Anything, tt.city).Return(tt.mockReturn, tt.mockError)

			req := httptest.NewRequest(http.MethodGet, "/api/delivery/quote?city="+url.QueryEscape(tt.city), nil)
			w := httptest.NewRecorder()
			handler.Quote(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockReturn != nil {
				var resp model.DeliveryQuote
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.True(t, tt.mockReturn.DeliveryCost.Equal(resp.DeliveryCost))
			}
			mockService.AssertExpectations(t)
		})
	}
}
