// Package amqpdispatch publishes verification notifications to an AMQP
// queue. A downstream mailer consumes the queue; the service never waits
// on delivery.
package amqpdispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is the payload a mail worker consumes
type Message struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Dispatcher publishes verification messages to a named queue
type Dispatcher struct {
	url   string
	queue string

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// New dials the broker and declares the queue. The queue is durable so
// codes survive a broker restart.
func New(url, queue string) (*Dispatcher, error) {
	d := &Dispatcher{
		url:   url,
		queue: queue,
	}

	if err := d.connect(); err != nil {
		return nil, fmt.Errorf("amqp connect: %w", err)
	}

	return d, nil
}

func (d *Dispatcher) connect() error {
	conn, err := amqp.Dial(d.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if _, err := ch.QueueDeclare(
		d.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	d.mu.Lock()
	d.conn = conn
	d.ch = ch
	d.mu.Unlock()

	return nil
}

// SendVerification publishes one message and returns. Callers treat the
// publish as fire-and-forget; an error here is logged upstream, never
// surfaced to the account flow.
func (d *Dispatcher) SendVerification(ctx context.Context, email, code string) error {
	d.mu.RLock()
	ch := d.ch
	closed := d.closed
	d.mu.RUnlock()

	if closed || ch == nil {
		return fmt.Errorf("amqp channel not available")
	}

	body, err := json.Marshal(Message{Email: email, Code: code})
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		"", // default exchange
		d.queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// Close shuts the channel and connection down
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.ch != nil {
		d.ch.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
