// Package checkout drives one customer's order submission from cart to
// confirmed orders against the order API.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"storefront-orders/internal/fanout"
	"storefront-orders/internal/idempotency"
	"storefront-orders/internal/model"
	"storefront-orders/internal/validation"

	"github.com/rs/zerolog"
)

// Options tunes a Session's pacing.
type Options struct {
	// Countdown is the window in which a prepared submission can be cancelled.
	Countdown time.Duration
	// MinInterval is the minimum time between the starts of two attempts.
	MinInterval time.Duration
	// SubmitTimeout bounds the order call once dispatched.
	SubmitTimeout time.Duration
}

// DefaultOptions returns the standard checkout pacing.
func DefaultOptions() Options {
	return Options{
		Countdown:     5 * time.Second,
		MinInterval:   2 * time.Second,
		SubmitTimeout: 15 * time.Second,
	}
}

// SubmissionResult is the outcome of Submit or Retry.
type SubmissionResult struct {
	Success     bool
	State       State
	ErrorKind   ErrorKind
	ShouldRetry bool
	Message     string
	Errors      []string
	Warnings    []string
	Shortfalls  []model.StockShortfall
	Duplicate   bool
	Cancelled   bool
	Batch       *model.OrderBatch
	Outcomes    []model.ItemOutcome
}

// attempt is a fully prepared submission. Retrying resends it unchanged.
type attempt struct {
	mode        model.ShippingType
	draft       *model.OrderDraft
	request     *model.OrderRequest
	reservation *model.Reservation
	warnings    []string
	// dispatched is set once the order call has gone out; the server may
	// hold the orders even if the call failed.
	dispatched bool
}

// Session is the submission orchestrator for one checkout. It is safe for
// concurrent use; at most one submission runs at a time.
type Session struct {
	api       API
	validator *validation.Validator
	planner   *fanout.Planner
	resume    *idempotency.ResumeManager
	opts      Options
	now       func() time.Time
	onState   func(State)
	logger    zerolog.Logger

	mu          sync.Mutex
	state       State
	inFlight    bool
	lastAttempt time.Time
	cancel      chan struct{}
	retained    *attempt
}

// NewSession creates a session. resume may be nil, in which case every
// unified submission without a key gets a fresh one.
func NewSession(
	api API,
	validator *validation.Validator,
	planner *fanout.Planner,
	resume *idempotency.ResumeManager,
	opts Options,
	logger zerolog.Logger,
) *Session {
	return &Session{
		api:       api,
		validator: validator,
		planner:   planner,
		resume:    resume,
		opts:      opts,
		now:       time.Now,
		logger:    logger.With().Str("component", "checkout").Logger(),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit validates input, reserves stock, waits out the countdown and sends
// the orders. An empty mode lets the session pick one from the cart's sellers.
func (s *Session) Submit(ctx context.Context, input validation.CheckoutInput, mode model.ShippingType) (*SubmissionResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.finish()

	s.supersede(ctx)
	s.setState(StateValidating)

	a, result := s.prepare(ctx, input, mode)
	if result != nil {
		return result, nil
	}

	s.setState(StateConfirming)

	if result := s.reserve(ctx, a); result != nil {
		return result, nil
	}

	if !s.countdown(ctx) {
		s.logger.Info().Str("order_code", a.draft.OrderCode).Msg("checkout cancelled during countdown")
		s.releaseAll(ctx, a)
		s.discardKey(ctx, a)
		s.setState(StateIdle)
		return &SubmissionResult{
			State:     StateIdle,
			Cancelled: true,
			Message:   "checkout cancelled",
			Warnings:  a.warnings,
		}, nil
	}

	return s.send(ctx, a), nil
}

// Cancel aborts a submission that is still counting down. It returns false
// once the orders have been dispatched or when nothing is pending.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	close(s.cancel)
	s.cancel = nil
	return true
}

// Retry resends the retained failed attempt with the same keys and reservation.
func (s *Session) Retry(ctx context.Context) (*SubmissionResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.finish()

	s.mu.Lock()
	a := s.retained
	s.mu.Unlock()

	if a == nil {
		return nil, ErrNothingToRetry
	}

	s.logger.Info().Str("order_code", a.draft.OrderCode).Msg("retrying submission")
	return s.send(ctx, a), nil
}

// Abandon drops the retained failed attempt and releases its stock. The
// resumable key of a dispatched attempt is kept, so submitting the same order
// code again replays whatever the server may already have stored.
func (s *Session) Abandon(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmissionInProgress
	}
	a := s.retained
	s.retained = nil
	s.state = StateIdle
	s.mu.Unlock()

	if a == nil {
		return ErrNothingToRetry
	}

	s.drop(ctx, a)
	return nil
}

// supersede drops a retained attempt that a fresh Submit replaces.
func (s *Session) supersede(ctx context.Context) {
	s.mu.Lock()
	a := s.retained
	s.retained = nil
	s.mu.Unlock()

	if a == nil {
		return
	}

	s.logger.Info().Str("order_code", a.draft.OrderCode).Msg("dropping failed submission replaced by a new one")
	s.drop(ctx, a)
}

func (s *Session) drop(ctx context.Context, a *attempt) {
	s.releaseAll(ctx, a)
	if !a.dispatched {
		s.discardKey(ctx, a)
	}
}

// begin claims the session for one attempt. A finished attempt's Succeeded
// or Failed state falls back to Idle here.
func (s *Session) begin() error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmissionInProgress
	}

	now := s.now()
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.opts.MinInterval {
		s.mu.Unlock()
		return ErrTooSoon
	}

	s.inFlight = true
	s.lastAttempt = now
	s.mu.Unlock()

	s.setState(StateIdle)
	return nil
}

func (s *Session) finish() {
	s.mu.Lock()
	s.inFlight = false
	s.cancel = nil
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	hook := s.onState
	s.mu.Unlock()

	if hook != nil {
		hook(state)
	}
}

// prepare validates, prices and plans input. A non-nil result is terminal.
func (s *Session) prepare(ctx context.Context, input validation.CheckoutInput, mode model.ShippingType) (*attempt, *SubmissionResult) {
	draft, err := s.validator.Validate(input)
	if err != nil {
		return nil, s.fail(err, nil)
	}

	if mode == "" {
		mode = fanout.SuggestMode(draft.Items)
	}

	if input.DeliveryCost == "" {
		s.quoteDelivery(ctx, draft)
	}

	if mode == model.ShippingUnified && draft.IdempotencyKey == "" {
		key, err := s.unifiedKey(ctx, draft.OrderCode)
		if err != nil {
			return nil, s.fail(fmt.Errorf("failed to prepare idempotency key: %w", err), draft.Warnings)
		}
		draft.IdempotencyKey = key
	}

	specs, err := s.planner.Plan(draft, mode)
	if err != nil {
		return nil, s.fail(err, draft.Warnings)
	}

	return &attempt{
		mode:     mode,
		draft:    draft,
		request:  buildRequest(draft, specs, mode),
		warnings: draft.Warnings,
	}, nil
}

func (s *Session) unifiedKey(ctx context.Context, orderCode string) (string, error) {
	if s.resume == nil {
		return idempotency.NewKey(), nil
	}
	return s.resume.Resumable(ctx, orderCode)
}

func (s *Session) quoteDelivery(ctx context.Context, draft *model.OrderDraft) {
	cost, err := s.api.QuoteDelivery(ctx, draft.Customer.City)
	if err != nil {
		s.logger.Warn().Err(err).Str("city", draft.Customer.City).Msg("no delivery quote, using zero delivery cost")
		return
	}
	draft.DeliveryCost = cost
	draft.Total = draft.Subtotal.Add(cost)
}

// reserve checks and holds stock for the attempt. A non-nil result is terminal.
func (s *Session) reserve(ctx context.Context, a *attempt) *SubmissionResult {
	items := make([]model.StockRequest, len(a.draft.Items))
	for i, item := range a.draft.Items {
		items[i] = model.StockRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	shortfalls, err := s.api.CheckAvailability(ctx, items)
	if err != nil {
		return s.fail(err, a.warnings)
	}
	if len(shortfalls) > 0 {
		return s.fail(&model.StockUnavailableError{Shortfalls: shortfalls}, a.warnings)
	}

	reservation, err := s.api.Reserve(ctx, items)
	if err != nil {
		return s.fail(err, a.warnings)
	}
	a.reservation = reservation

	s.logger.Debug().
		Str("order_code", a.draft.OrderCode).
		Str("reservation_id", reservation.ID).
		Time("expires_at", reservation.ExpiresAt).
		Msg("stock reserved")

	return nil
}

// countdown waits out the cancellation window. It reports false when the
// submission was cancelled or ctx ended first.
func (s *Session) countdown(ctx context.Context) bool {
	cancel := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	timer := time.NewTimer(s.opts.Countdown)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cancel:
		return false
	case <-ctx.Done():
		s.Cancel()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		// Cancel won the race with the timer.
		return false
	}
	s.cancel = nil
	return true
}

// send dispatches the attempt and settles its reservation.
func (s *Session) send(ctx context.Context, a *attempt) *SubmissionResult {
	s.setState(StateSubmitting)

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SubmitTimeout)
	defer cancel()

	a.dispatched = true

	batch, err := s.api.CreateOrders(sendCtx, a.request)
	if err != nil {
		result := s.fail(err, a.warnings)
		s.mu.Lock()
		if result.ShouldRetry {
			s.retained = a
		} else {
			s.retained = nil
		}
		s.mu.Unlock()

		if !result.ShouldRetry {
			s.releaseAll(sendCtx, a)
		}
		return result
	}

	s.mu.Lock()
	s.retained = nil
	s.mu.Unlock()

	s.settle(sendCtx, a, batch)
	s.discardKey(sendCtx, a)
	s.setState(StateSucceeded)

	result := &SubmissionResult{
		Success:  true,
		State:    StateSucceeded,
		Warnings: a.warnings,
		Batch:    batch,
		Outcomes: batch.Outcomes,
		Message:  fmt.Sprintf("%d order(s) created", batch.Count()),
	}
	if batch.Replayed {
		result.Duplicate = true
		result.ErrorKind = KindDuplicate
		result.Message = "order already submitted"
	}

	s.logger.Info().
		Str("order_code", batch.PrimaryCode()).
		Int("orders_count", batch.Count()).
		Bool("duplicate", result.Duplicate).
		Msg("checkout submitted")

	return result
}

// settle confirms stock for stored orders and releases the rest. Failures are
// logged only; the orders already exist.
func (s *Session) settle(ctx context.Context, a *attempt, batch *model.OrderBatch) {
	if a.reservation == nil {
		return
	}

	if a.mode == model.ShippingUnified || len(batch.Outcomes) == 0 {
		s.transition(ctx, a, "confirm", nil)
		return
	}

	var stored, failed []string
	for _, outcome := range batch.Outcomes {
		if outcome.Status == model.OutcomeFailed {
			failed = append(failed, outcome.ProductID)
		} else {
			stored = append(stored, outcome.ProductID)
		}
	}

	if len(stored) > 0 {
		s.transition(ctx, a, "confirm", stored)
	}
	if len(failed) > 0 {
		s.transition(ctx, a, "release", failed)
	}
}

func (s *Session) releaseAll(ctx context.Context, a *attempt) {
	if a.reservation == nil {
		return
	}
	s.transition(context.WithoutCancel(ctx), a, "release", nil)
}

func (s *Session) transition(ctx context.Context, a *attempt, action string, productIDs []string) {
	apply := s.api.Release
	if action == "confirm" {
		apply = s.api.Confirm
	}

	affected, err := apply(ctx, a.reservation.ID, productIDs)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("reservation_id", a.reservation.ID).
			Str("action", action).
			Msg("failed to settle reservation")
		return
	}

	s.logger.Debug().
		Str("reservation_id", a.reservation.ID).
		Str("action", action).
		Int("affected", affected).
		Msg("reservation settled")
}

func (s *Session) discardKey(ctx context.Context, a *attempt) {
	if s.resume == nil || a.mode != model.ShippingUnified {
		return
	}
	_ = s.resume.Discard(context.WithoutCancel(ctx), a.draft.OrderCode)
}

// fail builds a failed result for err and moves the session to Failed.
func (s *Session) fail(err error, warnings []string) *SubmissionResult {
	kind := Classify(err)
	s.setState(StateFailed)

	result := &SubmissionResult{
		State:       StateFailed,
		ErrorKind:   kind,
		ShouldRetry: kind.Retryable(),
		Message:     err.Error(),
		Warnings:    warnings,
	}

	var (
		verr  *model.ValidationError
		stock *model.StockUnavailableError
	)
	if errors.As(err, &verr) {
		result.Errors = verr.Reasons
		result.Message = "please correct the highlighted fields"
	}
	if errors.As(err, &stock) {
		result.Shortfalls = stock.Shortfalls
		result.Message = "some items are no longer available in the requested quantity"
	}

	s.logger.Warn().
		Err(err).
		Str("kind", string(kind)).
		Bool("retryable", result.ShouldRetry).
		Msg("checkout failed")

	return result
}

// buildRequest renders the normalised draft as an order request. Fast items
// carry their planned keys so retries replay the same sub-orders.
func buildRequest(draft *model.OrderDraft, specs []model.OrderSpec, mode model.ShippingType) *model.OrderRequest {
	keys := make(map[string]string, len(specs))
	for _, spec := range specs {
		for _, item := range spec.Items {
			keys[item.ProductID] = spec.IdempotencyKey
		}
	}

	req := &model.OrderRequest{
		Customer:     draft.Customer,
		ShippingType: mode,
		OrderCode:    draft.OrderCode,
		DeliveryCost: model.Scalar(draft.DeliveryCost.String()),
		Subtotal:     model.Scalar(draft.Subtotal.String()),
		TotalAmount:  model.Scalar(draft.Total.String()),
		Items:        make([]model.OrderItemRequest, len(draft.Items)),
	}
	if mode == model.ShippingUnified {
		req.IdempotencyKey = draft.IdempotencyKey
	}
	if draft.DiscountTotal != nil {
		req.DiscountedPrice = model.Scalar(draft.DiscountTotal.String())
	}

	for i, item := range draft.Items {
		line := model.OrderItemRequest{
			ProductID:   model.Scalar(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    model.Scalar(strconv.Itoa(item.Quantity)),
			Price:       model.Scalar(item.Price.String()),
			SellerName:  item.SellerName,
		}
		if item.DiscountedPrice != nil {
			line.DiscountedPrice = model.Scalar(item.DiscountedPrice.String())
		}
		if mode == model.ShippingFast {
			line.IdempotencyKey = keys[item.ProductID]
		}
		req.Items[i] = line
	}

	return req
}
