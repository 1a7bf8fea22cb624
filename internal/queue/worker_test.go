package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront-orders/internal/model"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReleaser struct {
	mock.Mock
}

func (m *MockReleaser) Release(ctx context.Context, reservationID string, productIDs []string) (int, error) {
	args := m.Called(ctx, reservationID, productIDs)
	return args.Int(0), args.Error(1)
}

func TestNewReservationExpireTask(t *testing.T) {
	task, err := NewReservationExpireTask("01HXAMPLE")
	require.NoError(t, err)

	assert.Equal(t, TaskReservationExpire, task.Type())

	var payload ReservationExpirePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "01HXAMPLE", payload.ReservationID)
}

func TestWorker_HandleReservationExpire(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		payload     []byte
		releaseErr  error
		callRelease bool
		expectError bool
		skipRetry   bool
	}{
		{name: "Releases held items", payload: []byte(`{"reservation_id":"R1"}`), callRelease: true},
		{name: "Reservation already gone", payload: []byte(`{"reservation_id":"R1"}`), callRelease: true, releaseErr: model.ErrReservationNotFound},
		{name: "Release failure is retried", payload: []byte(`{"reservation_id":"R1"}`), callRelease: true, releaseErr: errors.New("db down"), expectError: true},
		{name: "Malformed payload skips retry", payload: []byte(`{`), expectError: true, skipRetry: true},
		{name: "Missing reservation id", payload: []byte(`{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			releaser := new(MockReleaser)
			worker := NewWorker(releaser, zerolog.Nop())

			if tt.callRelease {
				releaser.On("Release", ctx, "R1", []string(nil)).Return(2, tt.releaseErr)
			}

			err := worker.handleReservationExpire(ctx, asynq.NewTask(TaskReservationExpire, tt.payload))

			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			} else {
				require.NoError(t, err)
			}

			if tt.callRelease {
				releaser.AssertExpectations(t)
			} else {
				releaser.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestWorker_Register(t *testing.T) {
	releaser := new(MockReleaser)
	releaser.On("Release", mock.Anything, "R9", []string(nil)).Return(1, nil)

	mux := asynq.NewServeMux()
	NewWorker(releaser, zerolog.Nop()).Register(mux)

	task, err := NewReservationExpireTask("R9")
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(context.Background(), task))
	releaser.AssertExpectations(t)
}

func TestNoopScheduler(t *testing.T) {
	var s NoopScheduler
	assert.NoError(t, s.ScheduleExpiry(context.Background(), "R1", time.Now()))
}
