package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// ErrSeatNotFound is returned when a seat id is unknown or belongs to a
// different theater than the one addressed.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo owns the seat reservation state.  Every state change is a
// conditional UPDATE so that two requests racing for the same seat cannot
// both win, whatever the isolation level.
type SeatRepo struct {
	db *sql.DB
}

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = "id, theater_id, seat_number, is_booked, is_reserved, reserved_at, reserved_by"

// CreateMany inserts the given seat numbers for a theater in one statement.
func (r *SeatRepo) CreateMany(ctx context.Context, theaterID uint64, numbers []string) error {
	if len(numbers) == 0 {
		return nil
	}
	query := "INSERT INTO seats (theater_id, seat_number) VALUES "
	args := make([]any, 0, len(numbers)*2)
	for i, n := range numbers {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, theaterID, n)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByTheaterTx returns every seat of a theater ordered by id.
func (r *SeatRepo) ListByTheaterTx(ctx context.Context, tx *sql.Tx, theaterID uint64) ([]model.Seat, error) {
	return querySeats(ctx, tx,
		"SELECT "+seatColumns+" FROM seats WHERE theater_id = ? ORDER BY id", theaterID)
}

// GetManyTx loads the seats with the given ids that belong to theaterID.
// Ids from another theater are simply absent from the result.
func (r *SeatRepo) GetManyTx(ctx context.Context, tx *sql.Tx, theaterID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, theaterID)
	for _, id := range ids {
		args = append(args, id)
	}
	return querySeats(ctx, tx,
		"SELECT "+seatColumns+" FROM seats WHERE theater_id = ? AND id IN ("+placeholders(len(ids))+") ORDER BY id",
		args...)
}

// ExpireReservationsTx frees every hold of the theater that started before
// cutoff and returns how many seats were released.  Pass now - TTL.
func (r *SeatRepo) ExpireReservationsTx(ctx context.Context, tx *sql.Tx, theaterID uint64, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET is_reserved = 0, reserved_by = NULL, reserved_at = NULL
		 WHERE theater_id = ? AND is_reserved = 1 AND is_booked = 0 AND reserved_at < ?`,
		theaterID, dbTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReserveTx puts a hold for userID on one seat.  The update only applies
// when the seat is not booked and is either free, already held by the same
// user (the hold is refreshed) or held past cutoff.  It reports whether the
// hold was taken.
func (r *SeatRepo) ReserveTx(ctx context.Context, tx *sql.Tx, theaterID, seatID, userID uint64, now, cutoff time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET is_reserved = 1, reserved_by = ?, reserved_at = ?
		 WHERE id = ? AND theater_id = ? AND is_booked = 0
		   AND (is_reserved = 0 OR reserved_by = ? OR reserved_at < ?)`,
		userID, dbTime(now), seatID, theaterID, userID, dbTime(cutoff))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseByUserTx clears every hold userID has on the theater.
func (r *SeatRepo) ReleaseByUserTx(ctx context.Context, tx *sql.Tx, theaterID, userID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET is_reserved = 0, reserved_by = NULL, reserved_at = NULL
		 WHERE theater_id = ? AND reserved_by = ? AND is_reserved = 1 AND is_booked = 0`,
		theaterID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListReservedByUserTx returns the seats currently held by userID.  A zero
// theaterID searches every theater.
func (r *SeatRepo) ListReservedByUserTx(ctx context.Context, tx *sql.Tx, theaterID, userID uint64) ([]model.Seat, error) {
	q := "SELECT " + seatColumns + " FROM seats WHERE reserved_by = ? AND is_reserved = 1 AND is_booked = 0"
	args := []any{userID}
	if theaterID != 0 {
		q += " AND theater_id = ?"
		args = append(args, theaterID)
	}
	return querySeats(ctx, tx, q+" ORDER BY id", args...)
}

// MarkBookedTx turns a hold of userID into a booking: the seat becomes
// booked and its reservation fields are cleared in the same statement.
// ErrConflict means the hold was no longer there.
func (r *SeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, seatID, userID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET is_booked = 1, is_reserved = 0, reserved_by = NULL, reserved_at = NULL
		 WHERE id = ? AND reserved_by = ? AND is_reserved = 1 AND is_booked = 0`,
		seatID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}

func querySeats(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]model.Seat, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Seat{}
	for rows.Next() {
		var (
			s  model.Seat
			at sql.NullTime
			by sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.TheaterID, &s.SeatNumber, &s.IsBooked, &s.IsReserved, &at, &by); err != nil {
			return nil, err
		}
		if at.Valid {
			t := at.Time.UTC()
			s.ReservedAt = &t
		}
		if by.Valid {
			u := uint64(by.Int64)
			s.ReservedBy = &u
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
