package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second

	// maxDeliveries bounds how often a failing event is handed to the consumer.
	maxDeliveries = 5
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp091.Table{
			"x-queue-type":     amqp091.QueueTypeQuorum,
			"x-delivery-limit": maxDeliveries,
		},
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Reconnect redials with exponential backoff. maxAttempts <= 0 retries
// until ctx ends.
func (c *Client) Reconnect(ctx context.Context, maxAttempts int) error {
	c.closeConn()
	for attempt := 0; ; attempt++ {
		err := c.connect()
		if err == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return nil
		}
		if maxAttempts > 0 && attempt+1 >= maxAttempts {
			return err
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "retry_in", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// PublishTransactionEvent publishes a persistent JSON event.
func (c *Client) PublishTransactionEvent(ctx context.Context, event *TransactionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s event: %w", event.Event, ErrCircuitOpen)
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, body)
	if err != nil && isConnectionError(err) {
		// One immediate redial; publishing is best-effort and must not stall callers
		if rerr := c.Reconnect(ctx, 1); rerr == nil {
			err = c.publish(ctx, body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published transaction event",
		"event", event.Event,
		"id", event.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// ConsumeTransactionEvents delivers events to handler until ctx ends.
// Undecodable messages are dropped; handler failures are requeued until
// maxDeliveries attempts have been made.
func (c *Client) ConsumeTransactionEvents(ctx context.Context, prefetch int, handler func(context.Context, *TransactionEvent) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

// acknowledger is the subset of amqp091.Delivery used for settling.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *TransactionEvent) error) {
	settle(ctx, d, d.Body, deliveryAttempt(d), handler)
}

// deliveryAttempt is 1 for a first delivery. Quorum queues count redeliveries
// in x-delivery-count; elsewhere only the redelivered flag is known.
func deliveryAttempt(d amqp091.Delivery) int {
	switch n := d.Headers["x-delivery-count"].(type) {
	case int64:
		return int(n) + 1
	case int32:
		return int(n) + 1
	case int:
		return n + 1
	}
	if d.Redelivered {
		return 2
	}
	return 1
}

func settle(ctx context.Context, ack acknowledger, body []byte, attempt int, handler func(context.Context, *TransactionEvent) error) {
	msg, err := TransactionEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping undecodable message", "error", err)
		nack(ctx, ack, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		requeue := attempt < maxDeliveries
		if requeue {
			slog.ErrorContext(ctx, "Failed to handle transaction event",
				"error", err,
				"event", msg.Event,
				"id", msg.ID,
				"attempt", attempt)
		} else {
			slog.ErrorContext(ctx, "Giving up on transaction event",
				"error", err,
				"event", msg.Event,
				"id", msg.ID,
				"attempts", attempt)
		}
		nack(ctx, ack, requeue)
		return
	}

	if err := ack.Ack(false); err != nil {
		slog.ErrorContext(ctx, "Failed to ack message", "error", err, "event", msg.Event, "id", msg.ID)
		return
	}
	slog.DebugContext(ctx, "Processed transaction event", "event", msg.Event, "id", msg.ID)
}

func nack(ctx context.Context, ack acknowledger, requeue bool) {
	if err := ack.Nack(false, requeue); err != nil {
		slog.ErrorContext(ctx, "Failed to nack message", "error", err, "requeue", requeue)
	}
}
