// Package event publishes domain events after their state change has been
// committed. Publishing is best effort: a failure is logged by the caller and
// never undoes the committed change.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	BookingConfirmed(ctx context.Context, e BookingConfirmed) error
	RefundRequested(ctx context.Context, e RefundRequested) error
	HoldExpired(ctx context.Context, e HoldExpired) error
	Close() error
}

type amqpPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

// NewAMQPPublisher dials the broker once and declares every durable queue.
func NewAMQPPublisher(url string, log *zap.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(
			q,     // name
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	return &amqpPublisher{
		conn: conn,
		ch:   ch,
		log:  log.With(zap.String("component", "publisher")),
	}, nil
}

func (p *amqpPublisher) BookingConfirmed(ctx context.Context, e BookingConfirmed) error {
	return p.publish(ctx, QueueBookingConfirmed, e)
}

func (p *amqpPublisher) RefundRequested(ctx context.Context, e RefundRequested) error {
	return p.publish(ctx, QueueRefundRequested, e)
}

func (p *amqpPublisher) HoldExpired(ctx context.Context, e HoldExpired) error {
	return p.publish(ctx, QueueHoldExpired, e)
}

func (p *amqpPublisher) publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("publish %s event: %w", queue, err)
	}

	p.log.Debug("Event published", zap.String("queue", queue), zap.Int("bytes", len(body)))
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}

// Nop drops every event. It stands in when RABBITMQ_URL is empty.
type Nop struct{}

func (Nop) BookingConfirmed(context.Context, BookingConfirmed) error { return nil }
func (Nop) RefundRequested(context.Context, RefundRequested) error   { return nil }
func (Nop) HoldExpired(context.Context, HoldExpired) error           { return nil }
func (Nop) Close() error                                             { return nil }
