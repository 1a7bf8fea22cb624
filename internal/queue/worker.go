package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-orders/internal/config"
	"storefront-orders/internal/model"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Releaser returns held stock for a reservation. Nil productIDs releases every
// item still held.
type Releaser interface {
	Release(ctx context.Context, reservationID string, productIDs []string) (int, error)
}

// Worker handles background tasks.
type Worker struct {
	releaser Releaser
	logger   zerolog.Logger
}

// NewWorker creates a worker that releases expired reservations through releaser.
func NewWorker(releaser Releaser, logger zerolog.Logger) *Worker {
	return &Worker{
		releaser: releaser,
		logger:   logger.With().Str("component", "worker").Logger(),
	}
}

// Register adds the worker's handlers to mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskReservationExpire, w.handleReservationExpire)
}

func (w *Worker) handleReservationExpire(ctx context.Context, task *asynq.Task) error {
	var payload ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.logger.Warn().Err(err).Msg("invalid reservation expiry payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.ReservationID == "" {
		w.logger.Warn().Msg("reservation expiry task without reservation id")
		return nil
	}

	released, err := w.releaser.Release(ctx, payload.ReservationID, nil)
	if errors.Is(err, model.ErrReservationNotFound) {
		w.logger.Debug().Str("reservation_id", payload.ReservationID).Msg("expired reservation no longer exists")
		return nil
	}
	if err != nil {
		w.logger.Error().Err(err).Str("reservation_id", payload.ReservationID).Msg("failed to release expired reservation")
		return err
	}

	w.logger.Info().
		Str("reservation_id", payload.ReservationID).
		Int("released", released).
		Msg("expired reservation released")

	return nil
}

// NewServer creates the asynq server and a mux with the worker's handlers.
func NewServer(redis config.RedisConfig, cfg config.QueueConfig, worker *Worker, logger zerolog.Logger) (*asynq.Server, *asynq.ServeMux) {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(redisOpt(redis), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{DefaultQueue: 1},
		Logger:      asynqLogger{logger.With().Str("component", "asynq").Logger()},
	})

	mux := asynq.NewServeMux()
	worker.Register(mux)

	return server, mux
}

// asynqLogger routes asynq's internal logs through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
