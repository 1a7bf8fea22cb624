package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStockReader is a mock implementation of StockReader.
type MockStockReader struct {
	mock.Mock
}

func (m *MockStockReader) ListStock(ctx context.Context, filter model.StockFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockStockReader) StockLevel(ctx context.Context, productID string) (*model.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func TestProductHandler_GetAll(t *testing.T) {
	logger := zerolog.Nop()

	stock := []model.Product{
		{ID: "P001", Name: "Lamp", Price: decimal.NewFromInt(12500), SellerName: "Store A", Stock: 5, Available: 5},
		{ID: "P002", Name: "Kettle", Price: decimal.NewFromInt(30000), SellerName: "Store A", Stock: 3, ReservedStock: 1, Available: 2},
	}

	tests := []struct {
		name           string
		query          string
		filter         *model.StockFilter
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Default page",
			filter:         &model.StockFilter{Limit: 10},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Seller and in-stock filter",
			query:          "?seller=Store+A&in_stock=true&limit=5&offset=10",
			filter:         &model.StockFilter{Seller: "Store A", InStockOnly: true, Limit: 5, Offset: 10},
			expectedStatus: http.StatusOK,
		},
		{name: "Invalid limit", query: "?limit=invalid", expectedStatus: http.StatusBadRequest},
		{name: "Invalid offset", query: "?offset=invalid", expectedStatus: http.StatusBadRequest},
		{name: "Invalid in_stock flag", query: "?in_stock=maybe", expectedStatus: http.StatusBadRequest},
		{
			name:           "Service error",
			filter:         &model.StockFilter{Limit: 10},
			mockError:      errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockStockReader)
			handler := NewProductHandler(reader, logger)

			if tt.filter != nil {
				var ret []model.Product
				if tt.mockError == nil {
					ret = stock
				}
				reader.On("ListStock", mock.Anything, *tt.filter).Return(ret, tt.mockError)
			}

			w := httptest.NewRecorder()
			handler.GetAll(w, httptest.NewRequest(http.MethodGet, "/api/products"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var got []model.Product
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Len(t, got, 2)
				assert.Equal(t, 1, got[1].ReservedStock)
			}
			reader.AssertExpectations(t)
		})
	}
}

func TestProductHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()

	lamp := &model.Product{ID: "P001", Name: "Lamp", Price: decimal.NewFromInt(12500), Stock: 7, ReservedStock: 2, Available: 5}

	tests := []struct {
		name           string
		productID      string
		mockReturn     *model.Product
		mockError      error
		expectedStatus int
	}{
		{name: "Stock level", productID: "P001", mockReturn: lamp, expectedStatus: http.StatusOK},
		{name: "Product not found", productID: "P999", mockError: model.ErrProductNotFound, expectedStatus: http.StatusNotFound},
		{name: "Service error", productID: "P001", mockError: errors.New("database error"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockStockReader)
			handler := NewProductHandler(reader, logger)

			reader.On("StockLevel", mock.Anything, tt.productID).Return(tt.mockReturn, tt.mockError)

			req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/"+tt.productID, nil), "id", tt.productID)
			w := httptest.NewRecorder()

			handler.GetByID(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockReturn != nil {
				var got model.Product
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, 5, got.Available)
			}
			reader.AssertExpectations(t)
		})
	}
}
