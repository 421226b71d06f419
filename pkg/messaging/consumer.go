package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// MaxRedeliveries is how many failed deliveries a message gets before it is
// dead-lettered.
const MaxRedeliveries = 3

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Outcome is what the consumer does with a delivery after routing it.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	DeadLetter
)

// Router dispatches decoded events to handlers by event type.
type Router struct {
	handlers map[string]MessageHandler
	logger   *logger.Logger
}

// NewRouter creates an empty router
func NewRouter(log *logger.Logger) *Router {
	return &Router{handlers: make(map[string]MessageHandler), logger: log}
}

// RegisterHandler registers a handler for a specific event type
func (r *Router) RegisterHandler(eventType string, handler MessageHandler) {
	r.handlers[eventType] = handler
}

// Route decodes body and runs the matching handler. attempts is the number
// of earlier failed deliveries of the same message.
func (r *Router) Route(ctx context.Context, body []byte, attempts int) Outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		r.logger.Error().Err(err).Msg("failed to unmarshal event")
		return DeadLetter
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := r.handlers[event.Type]
	if !ok {
		r.logger.Debug().Str("event_type", event.Type).Msg("no handler registered for event type")
		return Ack
	}

	r.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		r.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Int("attempts", attempts).
			Msg("failed to process event")

		if attempts >= MaxRedeliveries {
			r.logger.Warn().Str("event_id", event.ID).Msg("max retries exceeded, sending to DLQ")
			return DeadLetter
		}
		return Requeue
	}

	return Ack
}

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	*Router
	rmq       *RabbitMQ
	queueName string
}

// NewConsumer declares queueName and returns a consumer for it
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		Router:    NewRouter(log),
		rmq:       rmq,
		queueName: queueName,
	}, nil
}

// Subscribe binds the queue to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// Start consumes the queue in a goroutine until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("message channel closed")
					return
				}
				c.settle(msg, c.Route(ctx, msg.Body, deathCount(msg)))
			}
		}
	}()

	return nil
}

func (c *Consumer) settle(msg amqp.Delivery, outcome Outcome) {
	var err error
	switch outcome {
	case Ack:
		err = msg.Ack(false)
	case Requeue:
		err = msg.Nack(false, true)
	case DeadLetter:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to settle delivery")
	}
}

func deathCount(msg amqp.Delivery) int {
	deaths, ok := msg.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		if d, ok := death.(amqp.Table); ok {
			if count, ok := d["count"].(int64); ok {
				return int(count)
			}
		}
	}
	return 0
}
