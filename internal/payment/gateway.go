// Package payment talks to the hosted checkout provider.  Services depend
// on the Gateway interface; StripeGateway is the production implementation.
package payment

import (
	"context"
	"errors"
)

// Payment statuses of a checkout session.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// ErrSessionNotFound is returned when the provider does not know a session.
var ErrSessionNotFound = errors.New("checkout session not found")

// SessionRequest describes a one line item checkout.
type SessionRequest struct {
	ProductName       string
	Currency          string
	UnitAmount        int64
	Quantity          int64
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

// Session is the part of a checkout session the application reads back.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64 // minor units; zero when unknown
	Metadata        map[string]string
}

// Paid reports whether the customer completed the payment.
func (s Session) Paid() bool { return s.PaymentStatus == StatusPaid }

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
}
