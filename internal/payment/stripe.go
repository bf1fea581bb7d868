package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"github.com/iliyamo/bookmyseat/internal/breaker"
)

// StripeGateway creates and reads Stripe Checkout sessions.  Both calls go
// through a circuit breaker so an outage of the provider fails fast.
type StripeGateway struct {
	breaker *breaker.Breaker
}

// NewStripeGateway sets the global API key used by stripe-go.
func NewStripeGateway(secretKey string) *StripeGateway {
	if secretKey == "" {
		log.Printf("checkout: STRIPE_SECRET_KEY is empty, checkout calls will fail")
	}
	stripe.Key = secretKey
	return &StripeGateway{breaker: breaker.New(breaker.Settings{
		Name:         "stripe-checkout",
		IsSuccessful: providerHealthy,
	})}
}

// providerHealthy reports whether err leaves Stripe's health unquestioned.
// Request errors such as an unknown session id answer 4xx and are the
// caller's fault; only transport errors, 5xx and 429 count as failures.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.HTTPStatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ProductName),
				},
				UnitAmount: stripe.Int64(req.UnitAmount),
			},
			Quantity: stripe.Int64(req.Quantity),
		}},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	cs, err := breaker.Do(g.breaker, func() (*stripe.CheckoutSession, error) {
		return session.New(params)
	})
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return fromStripe(cs), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := breaker.Do(g.breaker, func() (*stripe.CheckoutSession, error) {
		return session.Get(id, params)
	})
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("get checkout session: %w", err)
	}
	return fromStripe(cs), nil
}

func fromStripe(cs *stripe.CheckoutSession) Session {
	s := Session{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Metadata:      cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		s.PaymentIntentID = cs.PaymentIntent.ID
	}
	return s
}
