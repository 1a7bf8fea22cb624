// Command checkout submits a cart file to the order API the way the storefront
// does: validate, reserve, count down, send, and retry transient failures.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-orders/internal/checkout"
	"storefront-orders/internal/config"
	"storefront-orders/internal/fanout"
	"storefront-orders/internal/idempotency"
	"storefront-orders/internal/model"
	"storefront-orders/internal/validation"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cartPath := flag.String("cart", "", "path to a cart JSON file (order request format)")
	mode := flag.String("mode", "", "shipping type: unified or fast (default: chosen from the cart's sellers)")
	retries := flag.Int("retries", 2, "how many times to retry a transient failure")
	flag.Parse()

	if *cartPath == "" {
		flag.Usage()
		return fmt.Errorf("-cart is required")
	}

	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLoggerTo(cfg.Logger, os.Stderr)

	input, err := readCart(*cartPath)
	if err != nil {
		return err
	}

	shipping := model.ShippingType(*mode)
	if shipping != "" && !shipping.Valid() {
		return fmt.Errorf("invalid shipping type %q", *mode)
	}

	resume, closeStore, err := newResumeManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	session := checkout.NewSession(
		checkout.NewClient(cfg.APIBaseURL, cfg.APIKey, logger),
		validation.NewValidator(logger),
		fanout.NewPlanner(logger),
		resume,
		checkout.Options{
			Countdown:     cfg.Countdown,
			MinInterval:   cfg.MinInterval,
			SubmitTimeout: cfg.SubmitTimeout,
		},
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Interrupting during the countdown cancels the checkout. Once the orders
	// have been dispatched Cancel reports false and the send runs to completion.
	go func() {
		<-ctx.Done()
		if session.Cancel() {
			logger.Info().Msg("cancelling checkout")
		}
	}()

	logger.Info().Dur("countdown", cfg.Countdown).Msg("submitting order, press Ctrl-C to cancel")

	result, err := session.Submit(ctx, input, shipping)
	if err != nil {
		return fmt.Errorf("failed to submit checkout: %w", err)
	}

	for attempt := 1; !result.Success && result.ShouldRetry && attempt <= *retries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		logger.Warn().
			Int("attempt", attempt).
			Str("kind", string(result.ErrorKind)).
			Msg("transient failure, retrying with the same idempotency key")

		time.Sleep(cfg.MinInterval)
		if result, err = session.Retry(ctx); err != nil {
			return fmt.Errorf("failed to retry checkout: %w", err)
		}
	}

	if !result.Success && result.ShouldRetry {
		if err := session.Abandon(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to abandon checkout")
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report(result)); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if !result.Success && !result.Cancelled {
		return fmt.Errorf("checkout failed: %s", result.Message)
	}
	return nil
}

func readCart(path string) (validation.CheckoutInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return validation.CheckoutInput{}, fmt.Errorf("failed to read cart file: %w", err)
	}

	var req model.OrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return validation.CheckoutInput{}, fmt.Errorf("failed to parse cart file: %w", err)
	}

	return validation.FromRequest(&req), nil
}

func newResumeManager(cfg *config.ClientConfig, logger zerolog.Logger) (*idempotency.ResumeManager, func(), error) {
	if cfg.ResumeStore != "redis" {
		return idempotency.NewResumeManager(idempotency.NewMemoryStore(), logger), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	return idempotency.NewResumeManager(idempotency.NewRedisStore(client, "checkout:"), logger), closeFn, nil
}

type resultReport struct {
	Success    bool                   `json:"success"`
	State      string                 `json:"state"`
	Kind       checkout.ErrorKind     `json:"error_kind,omitempty"`
	Retryable  bool                   `json:"should_retry,omitempty"`
	Duplicate  bool                   `json:"duplicate,omitempty"`
	Cancelled  bool                   `json:"cancelled,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Errors     []string               `json:"errors,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	Shortfalls []model.StockShortfall `json:"shortfalls,omitempty"`
	Order      *model.OrderResponse   `json:"order,omitempty"`
}

func report(r *checkout.SubmissionResult) resultReport {
	out := resultReport{
		Success:    r.Success,
		State:      r.State.String(),
		Kind:       r.ErrorKind,
		Retryable:  r.ShouldRetry,
		Duplicate:  r.Duplicate,
		Cancelled:  r.Cancelled,
		Message:    r.Message,
		Errors:     r.Errors,
		Warnings:   r.Warnings,
		Shortfalls: r.Shortfalls,
	}
	if r.Batch != nil {
		resp := r.Batch.Response()
		out.Order = &resp
	}
	return out
}
