package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-orders/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrders(ctx context.Context, req *model.OrderRequest) (*model.OrderBatch, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderBatch), args.Error(1)
}

func (m *MockOrderService) GetByCode(ctx context.Context, code string) ([]model.Order, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// withURLParam attaches a chi route parameter to req.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOrderHandler_Create(t *testing.T) {
	logger := zerolog.Nop()

	unified := &model.OrderBatch{
		ShippingType: model.ShippingUnified,
		Orders:       []model.Order{{ID: uuid.New(), OrderCode: "AB12CD34"}},
	}

	validBody := `{"customer_name":"Ali","customer_phone":"07801234567","items":[{"product_id":1,"quantity":"2","price":100}],"shipping_type":"unified","idempotency_key":"key-1"}`

	tests := []struct {
		name           string
		method         string
		body           string
		mockReturn     *model.OrderBatch
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			method:         http.MethodPost,
			body:           validBody,
			mockReturn:     unified,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Validation error",
			method:         http.MethodPost,
			body:           validBody,
			mockError:      model.NewValidationError("customer name is required", "customer phone is required"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeValidation,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			method:         http.MethodPost,
			body:           "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Method not allowed",
			method:         http.MethodGet,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "Service internal error",
			method:         http.MethodPost,
			body:           validBody,
			mockError:      errors.New("database connection failed"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeInternalError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			if tt.expectService {
				mockService.On("CreateOrders", mock.Anything, mock.AnythingOfType("*model.OrderRequest")).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(tt.method, "/api/orders", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			}

			if tt.expectService {
				mockService.AssertExpectations(t)
			} else {
				mockService.AssertNotCalled(t, "CreateOrders", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderHandler_Create_ResponseBody(t *testing.T) {
	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	batch := &model.OrderBatch{
		ShippingType: model.ShippingFast,
		Orders: []model.Order{
			{OrderCode: "AB12CD34-1", SellerName: "Store A"},
			{OrderCode: "AB12CD34-2", SellerName: "Store B"},
		},
		Outcomes: []model.ItemOutcome{
			{OrderCode: "AB12CD34-1", Status: model.OutcomeCreated},
			{OrderCode: "AB12CD34-2", Status: model.OutcomeCreated},
		},
	}
	mockService.On("CreateOrders", mock.Anything, mock.Anything).Return(batch, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{"shipping_type":"fast"}`))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, model.ShippingFast, resp.ShippingType)
	assert.Equal(t, 2, resp.OrdersCount)
	assert.Len(t, resp.Orders, 2)
	assert.Len(t, resp.Outcomes, 2)
	assert.Equal(t, "Orders created successfully with fast shipping", resp.Message)
}

func TestOrderHandler_Create_ValidationReasons(t *testing.T) {
	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	reasons := []string{"customer name is required", "at least one valid item is required"}
	mockService.On("CreateOrders", mock.Anything, mock.Anything).Return(nil, model.NewValidationError(reasons...))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, reasons, decodeError(t, w).Reasons)
}

func TestOrderHandler_Create_IdempotencyKeyHeader(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		header   string
		expected string
	}{
		{name: "Header fills missing key", body: `{}`, header: "hdr-key", expected: "hdr-key"},
		{name: "Body key wins", body: `{"idempotency_key":"body-key"}`, header: "hdr-key", expected: "body-key"},
		{name: "No key anywhere", body: `{}`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			mockService.On("CreateOrders", mock.Anything, mock.MatchedBy(func(r *model.OrderRequest) bool {
				return r.IdempotencyKey == tt.expected
			})).Return(&model.OrderBatch{ShippingType: model.ShippingUnified}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(tt.body))
			if tt.header != "" {
				req.Header.Set(IdempotencyKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.Create(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_GetByCode(t *testing.T) {
	logger := zerolog.Nop()

	orders := []model.Order{
		{ID: uuid.New(), OrderCode: "AB12CD34-1", ShippingType: model.ShippingFast},
		{ID: uuid.New(), OrderCode: "AB12CD34-2", ShippingType: model.ShippingFast},
	}

	tests := []struct {
		name           string
		code           string
		mockReturn     []model.Order
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Success", code: "AB12CD34", mockReturn: orders, expectedStatus: http.StatusOK, expectService: true},
		{name: "Order not found", code: "NOPE", mockError: model.ErrOrderNotFound, expectedStatus: http.StatusNotFound, expectService: true},
		{name: "Service error", code: "AB12CD34", mockError: errors.New("database error"), expectedStatus: http.StatusInternalServerError, expectService: true},
		{name: "Missing order code", code: "", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			if tt.expectService {
				mockService.On("GetByCode", mock.Anything, tt.code).Return(tt.mockReturn, tt.mockError)
			}

			req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.code, nil), "code", tt.code)
			w := httptest.NewRecorder()

			handler.GetByCode(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp model.OrderResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, 2, resp.OrdersCount)
				assert.Equal(t, model.ShippingFast, resp.ShippingType)
			}

			if tt.expectService {
				mockService.AssertExpectations(t)
			}
		})
	}
}
