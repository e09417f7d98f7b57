package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Routing keys for domain events
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
	EventReviewCreated      = "review.created"
)

const publishTimeout = 5 * time.Second

// EventPublisher delivers domain events to interested consumers
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

// AMQPEventPublisher publishes JSON events to a RabbitMQ topic exchange
type AMQPEventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
}

var eventPublisherInstance EventPublisher = NoopEventPublisher{}

// InitEventPublisher connects to RabbitMQ and declares the events exchange
func InitEventPublisher(url, exchange string) (EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("Event publisher connected to RabbitMQ")

	eventPublisherInstance = &AMQPEventPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}
	return eventPublisherInstance, nil
}

// GetEventPublisher returns the initialized event publisher (no-op by default)
func GetEventPublisher() EventPublisher {
	return eventPublisherInstance
}

// SetEventPublisher sets the event publisher instance (primarily for testing)
func SetEventPublisher(publisher EventPublisher) {
	eventPublisherInstance = publisher
}

// Publish sends payload as a persistent JSON message with the given routing key
func (p *AMQPEventPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", routingKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    uuid.NewString(),
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the channel and the connection
func (p *AMQPEventPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close RabbitMQ channel")
	}
	return p.conn.Close()
}

// NoopEventPublisher discards events; used when RabbitMQ is not configured
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	return nil
}

func (NoopEventPublisher) Close() error { return nil }

// publishEvent sends an event without letting a broker failure reach the caller
func publishEvent(ctx context.Context, publisher EventPublisher, routingKey string, payload interface{}) {
	if publisher == nil {
		return
	}
	// The request context may be cancelled as soon as the response is written
	if err := publisher.Publish(context.WithoutCancel(ctx), routingKey, payload); err != nil {
		log.Warn().Err(err).Str("event", routingKey).Msg("Failed to publish event")
	}
}
