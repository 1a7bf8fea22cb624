package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-orders/internal/config"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Scheduler enqueues reservation expiry tasks.
type Scheduler struct {
	client *asynq.Client
	logger zerolog.Logger
}

// NewScheduler creates a scheduler backed by the Redis in cfg.
func NewScheduler(cfg config.RedisConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		client: asynq.NewClient(redisOpt(cfg)),
		logger: logger.With().Str("component", "queue").Logger(),
	}
}

// ScheduleExpiry enqueues a reservation:expire task to run at at. Scheduling
// the same reservation twice is a no-op.
func (s *Scheduler) ScheduleExpiry(ctx context.Context, reservationID string, at time.Time) error {
	task, err := NewReservationExpireTask(reservationID)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue(DefaultQueue),
		asynq.TaskID(expiryTaskID(reservationID)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.logger.Debug().Str("reservation_id", reservationID).Msg("expiry already scheduled")
		return nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("reservation_id", reservationID).Msg("failed to schedule reservation expiry")
		return fmt.Errorf("failed to schedule reservation expiry: %w", err)
	}

	s.logger.Debug().
		Str("reservation_id", reservationID).
		Str("task_id", info.ID).
		Time("process_at", at).
		Msg("reservation expiry scheduled")

	return nil
}

// Close closes the underlying Redis connection.
func (s *Scheduler) Close() error {
	return s.client.Close()
}

// NoopScheduler never schedules anything. It is used when the queue is disabled.
type NoopScheduler struct{}

// ScheduleExpiry does nothing.
func (NoopScheduler) ScheduleExpiry(context.Context, string, time.Time) error { return nil }

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
