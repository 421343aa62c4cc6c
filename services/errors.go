package services

import (
	"errors"
	"fmt"
)

// Business-rule sentinels. Handlers map these to HTTP statuses; anything
// else that comes out of a service is an infrastructure failure.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyOwned      = errors.New("item already owned")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	// ErrOrderClosed is returned when a confirmation or cancellation hits
	// an order already in a terminal state other than the requested one.
	ErrOrderClosed = errors.New("order already closed")
)

// GatewayError collapses network errors, provider rejections and
// misconfiguration during a payment-gateway call into one failure domain.
// The wrapped error is kept for logs; callers only branch on the type.
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
