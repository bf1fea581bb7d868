package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/testutil"
)

var t0 = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

type env struct {
	db      *sql.DB
	clock   *testutil.Clock
	repos   Repos
	movie   uint64
	theater uint64
	seats   []uint64
	u, v    uint64
	res     *ReservationService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{db: db, clock: testutil.NewClock(t0)}
	e.repos = Repos{
		Movies:   repository.NewMovieRepo(db),
		Theaters: repository.NewTheaterRepo(db),
		Seats:    repository.NewSeatRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Users:    repository.NewUserRepo(db),
	}
	e.movie = testutil.InsertMovie(t, db, "Dune")
	e.theater = testutil.InsertTheater(t, db, e.movie, "Screen 1", t0.Add(2*time.Hour))
	e.seats = testutil.InsertSeats(t, db, e.theater, 4)
	e.u = testutil.InsertUser(t, db, "u@example.com", model.RoleCustomer)
	e.v = testutil.InsertUser(t, db, "v@example.com", model.RoleCustomer)
	e.res = NewReservationService(db, e.repos.Seats, e.repos.Theaters, e.clock, 5*time.Minute)
	return e
}

func statuses(t *testing.T, e *env, user uint64) map[string]string {
	t.Helper()
	m, err := e.res.SeatMap(context.Background(), user, e.theater)
	require.NoError(t, err)
	out := map[string]string{}
	for _, s := range m.Seats {
		out[s.SeatNumber] = s.Status
	}
	return out
}

func TestReserveConflictRollsBackBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.res.Reserve(ctx, e.u, e.theater, []uint64{e.seats[0]})
	require.NoError(t, err)

	_, err = e.res.Reserve(ctx, e.v, e.theater, []uint64{e.seats[1], e.seats[0]})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, []string{"A1"}, ce.SeatNumbers)

	st := statuses(t, e, e.v)
	assert.Equal(t, model.SeatReserved, st["A1"])
	assert.Equal(t, model.SeatFree, st["A2"], "no seat of a failed batch stays reserved")
}

func TestReserveExpiryFreesSeat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.res.Reserve(ctx, e.u, e.theater, []uint64{e.seats[0]})
	require.NoError(t, err)

	e.clock.Advance(5 * time.Minute)
	_, err = e.res.Reserve(ctx, e.v, e.theater, []uint64{e.seats[0]})
	var ce *ConflictError
	assert.True(t, errors.As(err, &ce), "hold is still valid at exactly the TTL")

	e.clock.Advance(time.Second)
	r, err := e.res.Reserve(ctx, e.v, e.theater, []uint64{e.seats[0]})
	require.NoError(t, err)
	assert.Equal(t, e.clock.Now().Add(5*time.Minute), r.ExpiresAt)
	assert.Equal(t, model.SeatHeldByYou, statuses(t, e, e.v)["A1"])
	assert.Equal(t, model.SeatReserved, statuses(t, e, e.u)["A1"])
}

func TestReserveRefreshesOwnHold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.res.Reserve(ctx, e.u, e.theater, []uint64{e.seats[0]})
	require.NoError(t, err)
	e.clock.Advance(4 * time.Minute)
	_, err = e.res.Reserve(ctx, e.u, e.theater, []uint64{e.seats[0], e.seats[1], e.seats[0]})
	require.NoError(t, err)

	// the refreshed hold outlives the original window
	e.clock.Advance(3 * time.Minute)
	m, err := e.res.SeatMap(ctx, e.u, e.theater)
	require.NoError(t, err)
	assert.Equal(t, 2, m.HeldByYou)
	assert.True(t, m.CanPay)
	require.NotNil(t, m.ExpiresAt)
	assert.Equal(t, t0.Add(9*time.Minute), *m.ExpiresAt)
}

func TestReserveValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.res.Reserve(ctx, e.u, e.theater, nil)
	assert.ErrorIs(t, err, ErrNoSeatsSelected)
	_, err = e.res.Reserve(ctx, e.u, e.theater, []uint64{0})
	assert.ErrorIs(t, err, ErrNoSeatsSelected)
	_, err = e.res.Reserve(ctx, e.u, e.theater, []uint64{e.seats[0], 9999})
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)
	_, err = e.res.Reserve(ctx, e.u, 9999, []uint64{e.seats[0]})
	assert.ErrorIs(t, err, repository.ErrTheaterNotFound)

	// nothing was held by the failed calls
	assert.Equal(t, model.SeatFree, statuses(t, e, e.u)["A1"])
}

func TestSeatMapWithoutHolds(t *testing.T) {
	e := newEnv(t)
	m, err := e.res.SeatMap(context.Background(), e.u, e.theater)
	require.NoError(t, err)
	assert.Len(t, m.Seats, 4)
	assert.False(t, m.CanPay)
	assert.Nil(t, m.ExpiresAt)
	assert.Equal(t, "Screen 1", m.Theater.Name)
}

func TestRelease(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.res.Reserve(ctx, e.u, e.theater, e.seats[:2])
	require.NoError(t, err)
	_, err = e.res.Reserve(ctx, e.v, e.theater, e.seats[2:3])
	require.NoError(t, err)

	n, err := e.res.Release(ctx, e.u, e.theater)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	st := statuses(t, e, e.u)
	assert.Equal(t, model.SeatFree, st["A1"])
	assert.Equal(t, model.SeatFree, st["A2"])
	assert.Equal(t, model.SeatReserved, st["A3"])
}
