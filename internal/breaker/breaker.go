// Package breaker guards calls to remote services (the payment provider,
// the message broker).  After enough consecutive failures the breaker opens
// and rejects calls until a cool-down has passed, then lets a few trial
// calls through before closing again.
package breaker

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

var (
	ErrOpen            = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("unknown state: %d", s)
}

// Counts is the bookkeeping of the current generation.
type Counts struct {
	Requests  uint32
	Failures  uint32
	Successes uint32
}

// Settings tunes a Breaker.  Zero values pick the defaults.
type Settings struct {
	Name string
	// MaxProbes is how many calls may run while half-open and how many
	// successes close the breaker again.
	MaxProbes   uint32
	Timeout     time.Duration
	ReadyToTrip func(Counts) bool
	// IsSuccessful decides whether an error returned by the guarded call
	// counts against the remote service.  By default only nil succeeds.
	IsSuccessful func(error) bool
	Now          func() time.Time
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name         string
	maxProbes    uint32
	timeout      time.Duration
	readyToTrip  func(Counts) bool
	isSuccessful func(error) bool
	now          func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New returns a closed breaker.  By default it trips once at least three
// calls were made and 60% of them failed, and stays open for 30 seconds.
func New(s Settings) *Breaker {
	b := &Breaker{
		name:         s.Name,
		maxProbes:    s.MaxProbes,
		timeout:      s.Timeout,
		readyToTrip:  s.ReadyToTrip,
		isSuccessful: s.IsSuccessful,
		now:          s.Now,
	}
	if b.maxProbes == 0 {
		b.maxProbes = 3
	}
	if b.timeout <= 0 {
		b.timeout = 30 * time.Second
	}
	if b.readyToTrip == nil {
		b.readyToTrip = func(c Counts) bool {
			return c.Requests >= 3 && float64(c.Failures)/float64(c.Requests) >= 0.6
		}
	}
	if b.isSuccessful == nil {
		b.isSuccessful = func(err error) bool { return err == nil }
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// State returns the current state, moving an expired open breaker to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().After(b.expiry) {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// Execute runs fn unless the breaker rejects the call, and records its
// outcome.  Rejected calls return ErrOpen or ErrTooManyRequests without
// running fn.
func (b *Breaker) Execute(fn func() error) error {
	gen, err := b.before()
	if err != nil {
		return err
	}
	defer func() {
		if e := recover(); e != nil {
			b.after(gen, false)
			panic(e)
		}
	}()
	err = fn()
	b.after(gen, b.isSuccessful(err))
	return err
}

// Do is Execute for calls returning a value.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	err := b.Execute(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if !b.now().After(b.expiry) {
			return 0, ErrOpen
		}
		b.setState(StateHalfOpen)
	case StateHalfOpen:
		if b.counts.Requests >= b.maxProbes {
			return 0, ErrTooManyRequests
		}
	}
	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) after(gen uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return
	}
	switch {
	case ok && b.state == StateHalfOpen:
		b.counts.Successes++
		if b.counts.Successes >= b.maxProbes {
			b.setState(StateClosed)
		}
	case ok:
		b.counts.Successes++
		if b.counts.Failures > 0 {
			b.counts.Failures--
		}
	case b.state == StateHalfOpen:
		b.setState(StateOpen)
	default:
		b.counts.Failures++
		if b.readyToTrip(b.counts) {
			b.setState(StateOpen)
		}
	}
}

// setState starts a new generation; callers hold mu.
func (b *Breaker) setState(s State) {
	if b.state == s {
		return
	}
	prev := b.state
	b.state = s
	b.generation++
	b.counts = Counts{}
	if s == StateOpen {
		b.expiry = b.now().Add(b.timeout)
	}
	log.Printf("breaker: %s %s -> %s", b.name, prev, s)
}

// IsBreakerError reports whether err was produced by a breaker rejecting
// the call.
func IsBreakerError(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests)
}

// HTTPStatus maps breaker errors to a status code and message.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrOpen):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "too many requests"
	}
	return http.StatusInternalServerError, "internal error"
}
