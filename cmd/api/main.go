package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-orders/internal/config"
	"storefront-orders/internal/database"
	"storefront-orders/internal/delivery"
	"storefront-orders/internal/events"
	"storefront-orders/internal/fanout"
	"storefront-orders/internal/handler"
	"storefront-orders/internal/queue"
	"storefront-orders/internal/repository"
	"storefront-orders/internal/router"
	"storefront-orders/internal/service"
	"storefront-orders/internal/validation"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront order API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		logger.Info().Msg("database schema ensured")
	}

	quoter, err := newQuoter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize delivery quoter: %w", err)
	}

	// Order events
	var publisher interface {
		service.OrderPublisher
		Close() error
	} = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing order events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Reservation expiry
	var scheduler service.ExpiryScheduler = queue.NoopScheduler{}
	if cfg.Queue.Enabled {
		s := queue.NewScheduler(cfg.Redis, logger)
		defer s.Close()
		scheduler = s
	} else {
		logger.Warn().Msg("task queue disabled, expired reservations will not be released automatically")
	}

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	reservationRepo := repository.NewReservationRepository(pool, logger)

	inventoryService := service.NewInventoryService(productRepo, reservationRepo, scheduler, cfg.Reservation.TTL, logger)
	deliveryService := service.NewDeliveryService(quoter, logger)
	orderService := service.NewOrderService(
		orderRepo,
		validation.NewValidator(logger),
		fanout.NewPlanner(logger),
		quoter,
		publisher,
		logger,
	)

	var worker *asynq.Server
	if cfg.Queue.Enabled {
		srv, mux := queue.NewServer(cfg.Redis, cfg.Queue, queue.NewWorker(inventoryService, logger), logger)
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("failed to start task worker: %w", err)
		}
		worker = srv
		logger.Info().Int("concurrency", cfg.Queue.Concurrency).Msg("task worker started")
	}

	mux := router.New(router.Handlers{
		Product:   handler.NewProductHandler(inventoryService, logger),
		Order:     handler.NewOrderHandler(orderService, logger),
		Inventory: handler.NewInventoryHandler(inventoryService, logger),
		Delivery:  handler.NewDeliveryHandler(deliveryService, logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if worker != nil {
			worker.Shutdown()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// In-flight orders have finished, so pending tasks can be drained safely.
		if worker != nil {
			worker.Shutdown()
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newQuoter loads the delivery rate tables, from S3 when enabled with the
// local file system as fallback.
func newQuoter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (delivery.Quoter, error) {
	fileLoader := delivery.NewFileLoader(logger)

	var s3Loader delivery.Loader
	if cfg.S3.Enabled {
		l, err := delivery.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for delivery rate files (S3 disabled)")
	}

	loader := delivery.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	defaultCost, err := delivery.ParseDefaultCost(cfg.Delivery.DefaultCost)
	if err != nil {
		return nil, err
	}

	return delivery.NewQuoter(ctx, delivery.QuoterConfig{
		FilePaths:   cfg.Delivery.RateFiles,
		DefaultCost: defaultCost,
	}, loader, logger)
}
