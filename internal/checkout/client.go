package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storefront-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// API is the order service as seen by a checkout session.
type API interface {
	CheckAvailability(ctx context.Context, items []model.StockRequest) ([]model.StockShortfall, error)
	Reserve(ctx context.Context, items []model.StockRequest) (*model.Reservation, error)
	Confirm(ctx context.Context, reservationID string, productIDs []string) (int, error)
	Release(ctx context.Context, reservationID string, productIDs []string) (int, error)
	CreateOrders(ctx context.Context, req *model.OrderRequest) (*model.OrderBatch, error)
	QuoteDelivery(ctx context.Context, city string) (decimal.Decimal, error)
}

// Client talks to the order API over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates an API client for baseURL. Per-call deadlines come from
// the caller's context.
func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: time.Minute},
		logger:  logger.With().Str("component", "api-client").Logger(),
	}
}

// wireResponse is the order endpoint's success body before its orders field
// is normalised.
type wireResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	ShippingType model.ShippingType  `json:"shipping_type"`
	Orders       json.RawMessage     `json:"orders"`
	Replayed     bool                `json:"replayed"`
	Outcomes     []model.ItemOutcome `json:"outcomes"`
}

// CreateOrders submits req. A unified key is also sent as the Idempotency-Key header.
func (c *Client) CreateOrders(ctx context.Context, req *model.OrderRequest) (*model.OrderBatch, error) {
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	var resp wireResponse
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, headers, &resp); err != nil {
		return nil, err
	}

	orders, err := NormalizeOrders(resp.Orders)
	if err != nil {
		return nil, err
	}

	return &model.OrderBatch{
		ShippingType: resp.ShippingType,
		Orders:       orders,
		Replayed:     resp.Replayed,
		Outcomes:     resp.Outcomes,
	}, nil
}

// CheckAvailability returns the shortfalls for items.
func (c *Client) CheckAvailability(ctx context.Context, items []model.StockRequest) ([]model.StockShortfall, error) {
	var resp model.AvailabilityResponse
	if err := c.do(ctx, http.MethodPost, "/api/inventory/availability", nil, model.StockCheckRequest{Items: items}, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Shortfalls, nil
}

// Reserve holds stock for items.
func (c *Client) Reserve(ctx context.Context, items []model.StockRequest) (*model.Reservation, error) {
	var resp model.Reservation
	if err := c.do(ctx, http.MethodPost, "/api/inventory/reservations", nil, model.StockCheckRequest{Items: items}, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Confirm confirms held items of a reservation.
func (c *Client) Confirm(ctx context.Context, reservationID string, productIDs []string) (int, error) {
	return c.updateReservation(ctx, reservationID, "confirm", productIDs)
}

// Release releases held items of a reservation.
func (c *Client) Release(ctx context.Context, reservationID string, productIDs []string) (int, error) {
	return c.updateReservation(ctx, reservationID, "release", productIDs)
}

func (c *Client) updateReservation(ctx context.Context, reservationID, action string, productIDs []string) (int, error) {
	path, err := url.JoinPath("/api/inventory/reservations", reservationID, action)
	if err != nil {
		return 0, err
	}

	var resp model.ReservationUpdateResponse
	if err := c.do(ctx, http.MethodPost, path, nil, model.ReservationUpdateRequest{ProductIDs: productIDs}, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Affected, nil
}

// QuoteDelivery returns the server's delivery cost for city.
func (c *Client) QuoteDelivery(ctx context.Context, city string) (decimal.Decimal, error) {
	var resp model.DeliveryQuote
	if err := c.do(ctx, http.MethodGet, "/api/delivery/quote", url.Values{"city": {city}}, nil, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.DeliveryCost, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return drainError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// drainError reads an error body into an *APIError. Bodies that are not the
// standard error shape keep only the status.
func drainError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var body model.ErrorResponse
	if json.Unmarshal(raw, &body) != nil {
		body = model.ErrorResponse{Message: string(bytes.TrimSpace(raw))}
	}
	return newAPIError(resp.StatusCode, body)
}
