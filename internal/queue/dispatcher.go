package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// HandlerSink delivers events straight to an EventHandler, skipping the
// broker.  The server uses it when RabbitMQ is unreachable at startup.
type HandlerSink struct {
	Handler EventHandler
}

func (s HandlerSink) Publish(ctx context.Context, ev BookingConfirmedEvent) error {
	return s.Handler.HandleBookingConfirmed(ctx, ev)
}

// AsyncDispatcher publishes events in the background so that the request
// that produced them never waits on the broker.  Failures are logged.
type AsyncDispatcher struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(sink Sink, timeout time.Duration) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncDispatcher{sink: sink, timeout: timeout}
}

// Dispatch returns immediately.
func (d *AsyncDispatcher) Dispatch(ev BookingConfirmedEvent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sink.Publish(ctx, ev); err != nil {
			log.Printf("checkout: publish booking %s for user %d failed: %v", ev.PaymentID, ev.UserID, err)
		}
	}()
}

// Wait blocks until every dispatched event has been handled.  Used on
// shutdown and in tests.
func (d *AsyncDispatcher) Wait() { d.wg.Wait() }
