// Package service holds the booking workflows that span several
// repositories: seat reservation and hosted checkout.  Handlers stay thin
// and translate the errors declared here into HTTP responses.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Clock supplies the current time.  Tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

var (
	ErrNoSeatsSelected   = errors.New("no seats selected")
	ErrNothingToCheckout = errors.New("no reserved seats to check out")
	ErrMissingSession    = errors.New("missing checkout session id")
)

// ConflictError reports the seats of a batch that another user holds or
// that are already booked.  None of the batch was reserved.
type ConflictError struct {
	SeatNumbers []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.SeatNumbers, ", "))
}
