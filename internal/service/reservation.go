package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

// ReservationService moves seats between free, reserved and booked.  Holds
// expire lazily: every operation on a theater first releases the holds
// older than the TTL.
type ReservationService struct {
	db       *sql.DB
	seats    *repository.SeatRepo
	theaters *repository.TheaterRepo
	clock    Clock
	ttl      time.Duration
}

func NewReservationService(db *sql.DB, seats *repository.SeatRepo, theaters *repository.TheaterRepo, clock Clock, ttl time.Duration) *ReservationService {
	if clock == nil {
		clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReservationService{db: db, seats: seats, theaters: theaters, clock: clock, ttl: ttl}
}

// Reservation is the outcome of a successful Reserve.
type Reservation struct {
	TheaterID uint64       `json:"theater_id"`
	Seats     []model.Seat `json:"seats"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Reserve holds every seat in seatIDs for userID, or none of them.  Seats
// the user already holds get a fresh hold.  When any seat is taken the
// transaction is rolled back and a *ConflictError names the taken seats.
func (s *ReservationService) Reserve(ctx context.Context, userID, theaterID uint64, seatIDs []uint64) (Reservation, error) {
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return Reservation{}, ErrNoSeatsSelected
	}
	if _, err := s.theaters.GetByID(ctx, theaterID); err != nil {
		return Reservation{}, err
	}

	now := s.clock.Now()
	cutoff := now.Add(-s.ttl)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.seats.ExpireReservationsTx(ctx, tx, theaterID, cutoff); err != nil {
		return Reservation{}, fmt.Errorf("expire holds: %w", err)
	}
	seats, err := s.seats.GetManyTx(ctx, tx, theaterID, ids)
	if err != nil {
		return Reservation{}, err
	}
	if len(seats) != len(ids) {
		return Reservation{}, repository.ErrSeatNotFound
	}

	var taken []string
	for i := range seats {
		ok, err := s.seats.ReserveTx(ctx, tx, theaterID, seats[i].ID, userID, now, cutoff)
		if err != nil {
			return Reservation{}, fmt.Errorf("reserve seat %s: %w", seats[i].SeatNumber, err)
		}
		if !ok {
			taken = append(taken, seats[i].SeatNumber)
			continue
		}
		at, by := now, userID
		seats[i].IsReserved, seats[i].ReservedAt, seats[i].ReservedBy = true, &at, &by
	}
	if len(taken) > 0 {
		return Reservation{}, &ConflictError{SeatNumbers: taken}
	}

	if err := tx.Commit(); err != nil {
		return Reservation{}, err
	}
	committed = true
	return Reservation{TheaterID: theaterID, Seats: seats, ExpiresAt: now.Add(s.ttl)}, nil
}

// Release drops every hold userID has on the theater.
func (s *ReservationService) Release(ctx context.Context, userID, theaterID uint64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := s.seats.ReleaseByUserTx(ctx, tx, theaterID, userID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// SeatView is one seat of a seat map.
type SeatView struct {
	ID         uint64 `json:"id"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

// SeatMap is the theater layout as seen by one user.  CanPay is set when
// the user holds at least one seat.
type SeatMap struct {
	Theater   model.Theater `json:"theater"`
	Seats     []SeatView    `json:"seats"`
	HeldByYou int           `json:"held_by_you"`
	CanPay    bool          `json:"can_pay"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// SeatMap expires stale holds and returns the seat statuses for userID.
// ExpiresAt is the earliest expiry among the user's holds.
func (s *ReservationService) SeatMap(ctx context.Context, userID, theaterID uint64) (SeatMap, error) {
	th, err := s.theaters.GetByID(ctx, theaterID)
	if err != nil {
		return SeatMap{}, err
	}
	now := s.clock.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SeatMap{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.seats.ExpireReservationsTx(ctx, tx, theaterID, now.Add(-s.ttl)); err != nil {
		return SeatMap{}, fmt.Errorf("expire holds: %w", err)
	}
	seats, err := s.seats.ListByTheaterTx(ctx, tx, theaterID)
	if err != nil {
		return SeatMap{}, err
	}
	if err := tx.Commit(); err != nil {
		return SeatMap{}, err
	}
	committed = true

	out := SeatMap{Theater: *th, Seats: make([]SeatView, 0, len(seats))}
	for _, seat := range seats {
		status := seat.StatusFor(userID)
		if status == model.SeatHeldByYou {
			out.HeldByYou++
			if seat.ReservedAt != nil {
				exp := seat.ReservedAt.Add(s.ttl)
				if out.ExpiresAt == nil || exp.Before(*out.ExpiresAt) {
					out.ExpiresAt = &exp
				}
			}
		}
		out.Seats = append(out.Seats, SeatView{ID: seat.ID, SeatNumber: seat.SeatNumber, Status: status})
	}
	out.CanPay = out.HeldByYou > 0
	return out, nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
