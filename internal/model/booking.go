package model

import "time"

// Booking is the permanent, paid allocation of one seat to one user.
// BookedAt is set once at creation and never changes.
type Booking struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	SeatID      uint64    `json:"seat_id"`
	MovieID     uint64    `json:"movie_id"`
	TheaterID   uint64    `json:"theater_id"`
	IsPaid      bool      `json:"is_paid"`
	PaymentID   string    `json:"payment_id"`
	AmountCents int64     `json:"amount_cents"`
	BookedAt    time.Time `json:"booked_at"`
}
