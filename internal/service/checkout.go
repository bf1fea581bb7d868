package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/payment"
	"github.com/iliyamo/bookmyseat/internal/queue"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

// Confirmation outcomes.
const (
	StatusConfirmed        = "confirmed"
	StatusAlreadyConfirmed = "already_confirmed"
	StatusUnpaid           = "unpaid"
	StatusNothingReserved  = "nothing_reserved"
)

// EventDispatcher receives booking events after the bookings are committed.
// Dispatch must not block.
type EventDispatcher interface {
	Dispatch(ev queue.BookingConfirmedEvent)
}

// Repos bundles the repositories the checkout flow reads and writes.
type Repos struct {
	Movies   *repository.MovieRepo
	Theaters *repository.TheaterRepo
	Seats    *repository.SeatRepo
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
}

// CheckoutService turns a user's seat holds into a hosted payment session
// and, once paid, into bookings.
type CheckoutService struct {
	db       *sql.DB
	repos    Repos
	gateway  payment.Gateway
	events   EventDispatcher
	clock    Clock
	ttl      time.Duration
	unit     int64
	currency string
}

func NewCheckoutService(db *sql.DB, repos Repos, gateway payment.Gateway, events EventDispatcher, cfg config.CheckoutConfig, clock Clock, ttl time.Duration) *CheckoutService {
	if clock == nil {
		clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.UnitAmountCents <= 0 {
		cfg.UnitAmountCents = 1000
	}
	return &CheckoutService{
		db: db, repos: repos, gateway: gateway, events: events, clock: clock, ttl: ttl,
		unit: cfg.UnitAmountCents, currency: cfg.Currency,
	}
}

// Start opens a checkout session for the seats userID still holds in the
// theater.  The caller redirects the browser to the returned session URL.
func (s *CheckoutService) Start(ctx context.Context, userID, theaterID uint64, baseURL string) (payment.Session, error) {
	th, err := s.repos.Theaters.GetByID(ctx, theaterID)
	if err != nil {
		return payment.Session{}, err
	}
	movie, err := s.repos.Movies.GetByID(ctx, th.MovieID)
	if err != nil {
		return payment.Session{}, err
	}

	held, err := s.heldSeats(ctx, userID, theaterID)
	if err != nil {
		return payment.Session{}, err
	}
	if len(held) == 0 {
		return payment.Session{}, ErrNothingToCheckout
	}

	base := strings.TrimRight(baseURL, "/")
	sess, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		ProductName:       "Tickets for " + movie.Name,
		Currency:          s.currency,
		UnitAmount:        s.unit,
		Quantity:          int64(len(held)),
		SuccessURL:        base + "/payment-success/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         base + "/payment-cancel/",
		ClientReferenceID: strconv.FormatUint(userID, 10),
		Metadata: map[string]string{
			"user_id":    strconv.FormatUint(userID, 10),
			"theater_id": strconv.FormatUint(theaterID, 10),
			"seat_ids":   joinIDs(held),
		},
	})
	if err != nil {
		return payment.Session{}, err
	}
	log.Printf("checkout: session %s for user %d theater %d, %d seats", sess.ID, userID, theaterID, len(held))
	return sess, nil
}

// heldSeats expires stale holds and returns the user's remaining ones.
func (s *CheckoutService) heldSeats(ctx context.Context, userID, theaterID uint64) ([]model.Seat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := s.repos.Seats.ExpireReservationsTx(ctx, tx, theaterID, s.clock.Now().Add(-s.ttl)); err != nil {
		return nil, fmt.Errorf("expire holds: %w", err)
	}
	held, err := s.repos.Seats.ListReservedByUserTx(ctx, tx, theaterID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return held, nil
}

// ConfirmResult describes what Confirm did.
type ConfirmResult struct {
	Status    string          `json:"status"`
	PaymentID string          `json:"payment_id,omitempty"`
	Bookings  []model.Booking `json:"bookings,omitempty"`
	Seats     []string        `json:"seats,omitempty"`
	// Unbooked lists paid seats that were no longer held by the payer.
	Unbooked []uint64 `json:"unbooked_seat_ids,omitempty"`
}

// Confirm books the seats paid for in the checkout session.  It is
// idempotent: a payment that already produced bookings is reported as
// already confirmed.  Holds are not swept here; a hold that lapsed but was
// not claimed by anyone else is still honoured because the payment went
// through.
func (s *CheckoutService) Confirm(ctx context.Context, userID uint64, sessionID string) (ConfirmResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return ConfirmResult{}, ErrMissingSession
	}
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !sess.Paid() {
		return ConfirmResult{Status: StatusUnpaid}, nil
	}
	if v, ok := sess.Metadata["user_id"]; ok && v != strconv.FormatUint(userID, 10) {
		return ConfirmResult{}, repository.ErrForbidden
	}
	var theaterID uint64
	if v := sess.Metadata["theater_id"]; v != "" {
		theaterID, _ = strconv.ParseUint(v, 10, 64)
	}
	paymentID := sess.PaymentIntentID
	if paymentID == "" {
		paymentID = sess.ID
	}
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return ConfirmResult{}, err
	}
	now := s.clock.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ConfirmResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := s.repos.Bookings.CountByPaymentIDTx(ctx, tx, paymentID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if n > 0 {
		return ConfirmResult{Status: StatusAlreadyConfirmed, PaymentID: paymentID}, nil
	}
	held, err := s.repos.Seats.ListReservedByUserTx(ctx, tx, theaterID, userID)
	if err != nil {
		return ConfirmResult{}, err
	}
	seats, unbooked := s.paidFor(held, sess)
	if len(unbooked) > 0 {
		log.Printf("checkout: payment %s covers seats %v that user %d no longer holds", paymentID, unbooked, userID)
	}
	if len(seats) == 0 {
		return ConfirmResult{Status: StatusNothingReserved, PaymentID: paymentID, Unbooked: unbooked}, nil
	}

	theaters := map[uint64]*model.Theater{}
	res := ConfirmResult{Status: StatusConfirmed, PaymentID: paymentID, Unbooked: unbooked}
	for _, seat := range seats {
		th, ok := theaters[seat.TheaterID]
		if !ok {
			if th, err = s.repos.Theaters.GetByIDTx(ctx, tx, seat.TheaterID); err != nil {
				return ConfirmResult{}, err
			}
			theaters[seat.TheaterID] = th
		}
		if err := s.repos.Seats.MarkBookedTx(ctx, tx, seat.ID, userID); err != nil {
			return ConfirmResult{}, fmt.Errorf("book seat %s: %w", seat.SeatNumber, err)
		}
		b := model.Booking{
			UserID:      userID,
			SeatID:      seat.ID,
			MovieID:     th.MovieID,
			TheaterID:   th.ID,
			IsPaid:      true,
			PaymentID:   paymentID,
			AmountCents: s.unit,
			BookedAt:    now,
		}
		if err := s.repos.Bookings.CreateTx(ctx, tx, &b); err != nil {
			return ConfirmResult{}, fmt.Errorf("create booking for seat %s: %w", seat.SeatNumber, err)
		}
		res.Bookings = append(res.Bookings, b)
		res.Seats = append(res.Seats, seat.SeatNumber)
	}
	if err := tx.Commit(); err != nil {
		return ConfirmResult{}, err
	}
	committed = true
	log.Printf("checkout: payment %s confirmed %d bookings for user %d", paymentID, len(res.Bookings), userID)

	s.dispatch(ctx, user, seats, theaters, paymentID, now)
	return res, nil
}

// paidFor narrows the user's holds to the seats the session was priced
// for.  Sessions opened by Start list their seat ids in the metadata; for
// sessions without that list the number of seats is capped by the amount
// collected.  The second result holds paid seat ids that are not held.
func (s *CheckoutService) paidFor(held []model.Seat, sess payment.Session) ([]model.Seat, []uint64) {
	raw, ok := sess.Metadata["seat_ids"]
	if !ok {
		if sess.AmountTotal > 0 && s.unit > 0 {
			if n := int(sess.AmountTotal / s.unit); n < len(held) {
				return held[:n], nil
			}
		}
		return held, nil
	}

	paid := map[uint64]bool{}
	var order []uint64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || paid[id] {
			continue
		}
		paid[id] = true
		order = append(order, id)
	}
	var out []model.Seat
	found := map[uint64]bool{}
	for _, seat := range held {
		if paid[seat.ID] {
			out = append(out, seat)
			found[seat.ID] = true
		}
	}
	var missing []uint64
	for _, id := range order {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return out, missing
}

func joinIDs(seats []model.Seat) string {
	parts := make([]string, len(seats))
	for i, seat := range seats {
		parts[i] = strconv.FormatUint(seat.ID, 10)
	}
	return strings.Join(parts, ",")
}

// dispatch emits one event per theater involved in the payment.
func (s *CheckoutService) dispatch(ctx context.Context, user model.User, seats []model.Seat, theaters map[uint64]*model.Theater, paymentID string, now time.Time) {
	if s.events == nil {
		return
	}
	byTheater := map[uint64][]string{}
	order := []uint64{}
	for _, seat := range seats {
		if _, ok := byTheater[seat.TheaterID]; !ok {
			order = append(order, seat.TheaterID)
		}
		byTheater[seat.TheaterID] = append(byTheater[seat.TheaterID], seat.SeatNumber)
	}
	for _, id := range order {
		th := theaters[id]
		ev := queue.BookingConfirmedEvent{
			EventID:          uuid.NewString(),
			UserID:           user.ID,
			Email:            user.Email,
			MovieID:          th.MovieID,
			TheaterID:        th.ID,
			TheaterName:      th.Name,
			ShowTime:         th.ShowTime.UTC().Format("2006-01-02 15:04:05"),
			SeatNumbers:      byTheater[id],
			TotalAmountCents: s.unit * int64(len(byTheater[id])),
			Currency:         s.currency,
			PaymentID:        paymentID,
			ConfirmedAt:      now.UTC().Format(time.RFC3339),
		}
		if m, err := s.repos.Movies.GetByID(ctx, th.MovieID); err == nil {
			ev.MovieName = m.Name
		} else {
			log.Printf("checkout: movie %d for event lookup: %v", th.MovieID, err)
		}
		s.events.Dispatch(ev)
	}
}
