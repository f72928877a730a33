// Package events publishes committed balance operations to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

const dialTimeout = 10 * time.Second

// Message is the JSON body sent for every operation event.
type Message struct {
	EventID            string `json:"eventId"`
	EventType          string `json:"eventType"`
	SourceAccount      int64  `json:"sourceAccount,omitempty"`
	DestinationAccount int64  `json:"destinationAccount,omitempty"`
	Amount             string `json:"amount"`
	TotalAmount        string `json:"totalAmount"`
	Currency           string `json:"currency"`
	Route              string `json:"route"`
	OccurredAt         string `json:"occurredAt"`
}

// NewMessage converts a domain event into its wire form.
func NewMessage(e domain.OperationEvent) Message {
	return Message{
		EventID:            uuid.New().String(),
		EventType:          e.Type,
		SourceAccount:      e.SourceAccount,
		DestinationAccount: e.DestinationAccount,
		Amount:             e.Amount.String(),
		TotalAmount:        e.TotalAmount.String(),
		Currency:           string(e.Currency),
		Route:              e.Route,
		OccurredAt:         e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// RoutingKey returns the topic an event type is published under.
func RoutingKey(exchange, eventType string) string {
	return exchange + "." + eventType
}

// RabbitMQPublisher implements domain.EventPublisher on a topic exchange.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQPublisher dials the broker and declares the exchange.
func NewRabbitMQPublisher(amqpURL, exchange string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends the event as a persistent JSON message.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event domain.OperationEvent) error {
	msg := NewMessage(event)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	routingKey := RoutingKey(p.exchange, event.Type)

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.EventID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.Debug("published operation event",
		zap.String("routing_key", routingKey),
		zap.String("event_id", msg.EventID),
	)
	return nil
}

// Close closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements domain.EventPublisher.
func (NoopPublisher) Publish(context.Context, domain.OperationEvent) error { return nil }

// Close implements io.Closer.
func (NoopPublisher) Close() error { return nil }

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
