package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"storefront-orders/internal/model"
)

var (
	// ErrSubmissionInProgress is returned when a session is already submitting.
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	// ErrTooSoon is returned when attempts come closer together than the minimum interval.
	ErrTooSoon = errors.New("please wait before submitting again")
	// ErrNothingToRetry is returned by Retry and Abandon without a retained attempt.
	ErrNothingToRetry = errors.New("no failed submission to retry")
)

// ErrorKind classifies a failed submission.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindDuplicate  ErrorKind = "duplicate"
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindServer     ErrorKind = "server"
	KindUnknown    ErrorKind = "unknown"
)

// Retryable reports whether resending the same attempt may succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindTimeout || k == KindServer
}

// APIError is a non-2xx response from the order API.
type APIError struct {
	Status   int
	Response model.ErrorResponse
	cause    error
}

func (e *APIError) Error() string {
	msg := e.Response.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Response.Error, msg)
}

// Unwrap exposes the domain error the response encodes, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

func newAPIError(status int, resp model.ErrorResponse) *APIError {
	e := &APIError{Status: status, Response: resp}

	switch resp.Error {
	case model.ErrCodeValidation:
		e.cause = model.NewValidationError(resp.Reasons...)
	case model.ErrCodeStockUnavailable:
		e.cause = &model.StockUnavailableError{Shortfalls: resp.Shortfalls}
	case model.ErrCodeReservationNotFound:
		e.cause = model.ErrReservationNotFound
	case model.ErrCodeOrderNotFound:
		e.cause = model.ErrOrderNotFound
	case model.ErrCodeProductNotFound:
		e.cause = model.ErrProductNotFound
	case model.ErrCodeDeliveryUnavailable:
		e.cause = model.ErrDeliveryUnavailable
	case model.ErrCodeInvalidQuantity:
		e.cause = model.ErrInvalidQuantity
	}

	return e
}

// Classify maps a submission error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var (
		verr   *model.ValidationError
		stock  *model.StockUnavailableError
		apiErr *APIError
		netErr net.Error
	)

	switch {
	case errors.As(err, &verr), errors.As(err, &stock):
		return KindValidation
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &apiErr):
		return classifyStatus(apiErr.Status)
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return KindServer
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnknown
	case status >= http.StatusBadRequest:
		return KindValidation
	default:
		return KindUnknown
	}
}
