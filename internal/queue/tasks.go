// Package queue schedules and runs background reservation tasks on asynq.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TaskReservationExpire releases whatever a reservation still holds.
	TaskReservationExpire = "reservation:expire"

	// DefaultQueue is the queue every task is enqueued on.
	DefaultQueue = "default"
)

// ReservationExpirePayload is the payload of a reservation:expire task.
type ReservationExpirePayload struct {
	ReservationID string `json:"reservation_id"`
}

// NewReservationExpireTask builds the expiry task for one reservation.
func NewReservationExpireTask(reservationID string) (*asynq.Task, error) {
	body, err := json.Marshal(ReservationExpirePayload{ReservationID: reservationID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode task payload: %w", err)
	}
	return asynq.NewTask(TaskReservationExpire, body), nil
}

func expiryTaskID(reservationID string) string {
	return "expire:" + reservationID
}
