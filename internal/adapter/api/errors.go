package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fallbackMessage = "Something went wrong"

// Error is returned for every failed backend call. StatusCode is zero when the
// request never got a response.
type Error struct {
	StatusCode int
	Message    string
	RequestID  string
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("storefront api: %s", e.Message)
	}
	return fmt.Sprintf("storefront api: %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// GRPCStatus lets callers classify failures with status.Code without
// depending on this package.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.code(), e.Message)
}

func (e *Error) code() codes.Code {
	if e.StatusCode == 0 {
		switch {
		case errors.Is(e.cause, context.Canceled):
			return codes.Canceled
		case errors.Is(e.cause, context.DeadlineExceeded):
			return codes.DeadlineExceeded
		default:
			return codes.Unavailable
		}
	}
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	}
	if e.StatusCode >= 500 {
		return codes.Internal
	}
	return codes.Unknown
}

// IsUnauthorized reports whether err is a rejected or missing token.
func IsUnauthorized(err error) bool {
	return status.Code(err) == codes.Unauthenticated
}
