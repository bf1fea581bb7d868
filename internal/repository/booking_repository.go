package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// BookingRepo stores paid bookings and answers the sales dashboard.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts b and fills in its ID.  A second booking for the same
// seat violates the unique index and comes back as ErrConflict.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, seat_id, movie_id, theater_id, is_paid, payment_id, amount_cents, booked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.SeatID, b.MovieID, b.TheaterID, b.IsPaid, nullString(b.PaymentID), b.AmountCents, dbTime(b.BookedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CountByPaymentIDTx returns how many bookings carry the payment id.
func (r *BookingRepo) CountByPaymentIDTx(ctx context.Context, tx *sql.Tx, paymentID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE payment_id = ?", paymentID).Scan(&n)
	return n, err
}

// UserBooking is a booking joined with what a customer wants to see.
type UserBooking struct {
	ID          uint64 `json:"id"`
	Movie       string `json:"movie"`
	Theater     string `json:"theater"`
	ShowTime    string `json:"show_time"`
	SeatNumber  string `json:"seat_number"`
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	BookedAt    string `json:"booked_at"`
}

// ListByUser returns the bookings of a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]UserBooking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, m.name, t.name, t.show_time, s.seat_number, COALESCE(b.payment_id, ''), b.amount_cents, b.booked_at
		FROM bookings b
		JOIN movies m   ON m.id = b.movie_id
		JOIN theaters t ON t.id = b.theater_id
		JOIN seats s    ON s.id = b.seat_id
		WHERE b.user_id = ?
		ORDER BY b.booked_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []UserBooking{}
	for rows.Next() {
		var (
			ub       UserBooking
			show     sql.NullTime
			bookedAt sql.NullTime
		)
		if err := rows.Scan(&ub.ID, &ub.Movie, &ub.Theater, &show, &ub.SeatNumber, &ub.PaymentID, &ub.AmountCents, &bookedAt); err != nil {
			return nil, err
		}
		if show.Valid {
			ub.ShowTime = dbTime(show.Time)
		}
		if bookedAt.Valid {
			ub.BookedAt = dbTime(bookedAt.Time)
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

// NamedCount is one row of a top-N ranking.
type NamedCount struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

// SalesStats summarises paid bookings for the admin dashboard.
type SalesStats struct {
	TotalRevenueCents int64        `json:"total_revenue_cents"`
	PopularMovies     []NamedCount `json:"popular_movies"`
	BusiestTheaters   []NamedCount `json:"busiest_theaters"`
}

// Stats aggregates paid bookings: the revenue and the top `limit` movies
// and theaters by booking count.  Ties are broken by name.
func (r *BookingRepo) Stats(ctx context.Context, limit int) (SalesStats, error) {
	var st SalesStats
	if err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM bookings WHERE is_paid = 1").
		Scan(&st.TotalRevenueCents); err != nil {
		return st, err
	}
	var err error
	st.PopularMovies, err = r.topN(ctx, `
		SELECT m.name, COUNT(b.id) AS total
		FROM bookings b JOIN movies m ON m.id = b.movie_id
		WHERE b.is_paid = 1
		GROUP BY m.id, m.name
		ORDER BY total DESC, m.name ASC
		LIMIT ?`, limit)
	if err != nil {
		return st, err
	}
	st.BusiestTheaters, err = r.topN(ctx, `
		SELECT t.name, COUNT(b.id) AS total
		FROM bookings b JOIN theaters t ON t.id = b.theater_id
		WHERE b.is_paid = 1
		GROUP BY t.id, t.name
		ORDER BY total DESC, t.name ASC
		LIMIT ?`, limit)
	return st, err
}

func (r *BookingRepo) topN(ctx context.Context, query string, limit int) ([]NamedCount, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []NamedCount{}
	for rows.Next() {
		var nc NamedCount
		if err := rows.Scan(&nc.Name, &nc.Total); err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}
