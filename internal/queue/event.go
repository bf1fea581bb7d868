// Package queue carries booking events over RabbitMQ: a publisher used by
// the checkout flow, dispatchers that decouple it from the request, and
// the consumer that hands events to a notifier.
package queue

import "context"

// BookingConfirmedEvent is published once per confirmed checkout.  It holds
// everything a notifier needs so that consumers never query the database.
type BookingConfirmedEvent struct {
	EventID          string   `json:"event_id"`
	UserID           uint64   `json:"user_id"`
	Email            string   `json:"email"`
	MovieID          uint64   `json:"movie_id"`
	MovieName        string   `json:"movie_name"`
	TheaterID        uint64   `json:"theater_id"`
	TheaterName      string   `json:"theater_name"`
	ShowTime         string   `json:"show_time"`
	SeatNumbers      []string `json:"seats"`
	TotalAmountCents int64    `json:"total_amount_cents"`
	Currency         string   `json:"currency"`
	PaymentID        string   `json:"payment_id"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// EventHandler processes a delivered event.  A returned error rejects the
// message.
type EventHandler interface {
	HandleBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
}

// Sink is anything an event can be published to.
type Sink interface {
	Publish(ctx context.Context, ev BookingConfirmedEvent) error
}
