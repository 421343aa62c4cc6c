package services

import (
	"context"
	"fmt"
)

// PaymentStatus is the provider-reported state of a transaction, reduced
// to what the fulfillment pipeline can act on. Unknown is deliberately
// distinct from Failed: ambiguous answers are retried, never assumed failed.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusUnknown PaymentStatus = "unknown"
)

// CheckoutRequest is the uniform shape every provider adapter translates
// from. Amounts are in minor units of Currency.
type CheckoutRequest struct {
	OrderID         string
	Amount          int64
	Currency        string
	CustomerName    string
	CustomerEmail   string
	ItemDescription string
	RedirectURL     string
}

// CheckoutSession is what comes back from a successful transaction create:
// where to send the user, and the provider's opaque reference.
type CheckoutSession struct {
	CheckoutURL           string
	ProviderTransactionID string
}

// PaymentGateway is the narrow seam between the fulfillment pipeline and
// an external payment provider. Adapters translate and talk to the
// network; they know nothing about orders beyond the request fields.
type PaymentGateway interface {
	Name() string
	CreateTransaction(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	VerifyPayment(ctx context.Context, providerTransactionID string) (PaymentStatus, error)
}

// minorUnitsToDecimal renders an amount in minor units as the "12.34"
// decimal string both provider APIs expect.
func minorUnitsToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
