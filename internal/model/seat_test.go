package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeatReservationExpired(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Seat{IsReserved: true, ReservedAt: &at}

	assert.False(t, s.ReservationExpired(at.Add(5*time.Minute), 5*time.Minute))
	assert.True(t, s.ReservationExpired(at.Add(5*time.Minute+time.Second), 5*time.Minute))
	assert.False(t, Seat{}.ReservationExpired(at.Add(time.Hour), 5*time.Minute))
}

func TestSeatStatusFor(t *testing.T) {
	u := uint64(7)
	other := uint64(8)

	assert.Equal(t, SeatFree, Seat{}.StatusFor(u))
	assert.Equal(t, SeatBooked, Seat{IsBooked: true}.StatusFor(u))
	assert.Equal(t, SeatHeldByYou, Seat{IsReserved: true, ReservedBy: &u}.StatusFor(u))
	assert.Equal(t, SeatReserved, Seat{IsReserved: true, ReservedBy: &other}.StatusFor(u))
}

func TestValidGenreAndLanguage(t *testing.T) {
	assert.True(t, ValidGenre(""))
	assert.True(t, ValidGenre("Drama"))
	assert.False(t, ValidGenre("drama"))
	assert.True(t, ValidLanguage("Tamil"))
	assert.False(t, ValidLanguage("French"))
}
