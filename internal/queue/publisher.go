package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/bookmyseat/internal/breaker"
)

// Publisher sends BookingConfirmedEvents to a durable queue on the default
// exchange.  It keeps one connection and channel and redials when either
// has been closed.  Messages are persistent.
type Publisher struct {
	url     string
	queue   string
	breaker *breaker.Breaker

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects to the broker and declares the queue.  An error
// means the broker is unreachable right now.
func NewPublisher(url, queue string) (*Publisher, error) {
	p := &Publisher{
		url:     url,
		queue:   queue,
		breaker: breaker.New(breaker.Settings{Name: "rabbitmq-publish"}),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureConnection(); err != nil {
		return nil, err
	}
	return p, nil
}

// ensureConnection redials when needed; callers hold mu.
func (p *Publisher) ensureConnection() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			log.Printf("rabbitmq: dial failed: %v", err)
			return err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}
	p.ch = ch
	return nil
}

// Publish marshals ev and routes it to the queue.
func (p *Publisher) Publish(ctx context.Context, ev BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.breaker.Execute(func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.ensureConnection(); err != nil {
			return err
		}
		err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.EventID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
		if err != nil {
			log.Printf("rabbitmq: publish failed: %v", err)
		}
		return err
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
