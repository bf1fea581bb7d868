package model

import "time"

// Seat status values derived from the persisted flags and the viewer.
const (
	SeatFree      = "free"
	SeatReserved  = "reserved"
	SeatHeldByYou = "held_by_you"
	SeatBooked    = "booked"
)

// Seat describes a seat of a theater together with its reservation state.
// A seat is free, temporarily reserved by one user, or permanently booked.
// ReservedBy is a weak reference: it is cleared when the hold expires, is
// released, or turns into a booking.
//
// Fields:
//
//	ID         – primary key identifier.
//	TheaterID  – theater the seat belongs to.
//	SeatNumber – label unique within the theater (e.g. "A7").
//	IsBooked   – the seat has a paid booking.
//	IsReserved – the seat is on hold.
//	ReservedAt – when the hold started (nil when not reserved).
//	ReservedBy – user holding the seat (nil when not reserved).
type Seat struct {
	ID         uint64     `json:"id"`
	TheaterID  uint64     `json:"theater_id"`
	SeatNumber string     `json:"seat_number"`
	IsBooked   bool       `json:"is_booked"`
	IsReserved bool       `json:"is_reserved"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
	ReservedBy *uint64    `json:"-"`
}

// ReservationExpired reports whether the hold on s is older than ttl at now.
func (s Seat) ReservationExpired(now time.Time, ttl time.Duration) bool {
	if !s.IsReserved || s.ReservedAt == nil {
		return false
	}
	return now.After(s.ReservedAt.Add(ttl))
}

// StatusFor returns the seat status as seen by userID.
func (s Seat) StatusFor(userID uint64) string {
	switch {
	case s.IsBooked:
		return SeatBooked
	case s.IsReserved && s.ReservedBy != nil && *s.ReservedBy == userID:
		return SeatHeldByYou
	case s.IsReserved:
		return SeatReserved
	}
	return SeatFree
}
