package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mymonad/aura/pkg/aura"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards events to a RabbitMQ topic exchange. The routing key
// is "<prefix>.<kind>", so consumers can bind to single event kinds.
type Publisher struct {
	channel  Channel
	conn     *amqp.Connection
	exchange string
	prefix   string
	timeout  time.Duration
}

// NewPublisher wraps an open channel.
func NewPublisher(ch Channel, exchange, routingPrefix string) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		prefix:   routingPrefix,
		timeout:  5 * time.Second,
	}
}

// DialPublisher connects to url, declares a durable topic exchange and
// returns a publisher bound to it.
func DialPublisher(url, exchange, routingPrefix string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("audit: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: declare exchange %s: %w", exchange, err)
	}

	p := NewPublisher(ch, exchange, routingPrefix)
	p.conn = conn
	return p, nil
}

// RoutingKey returns the routing key an event is published under.
func (p *Publisher) RoutingKey(kind aura.EventKind) string {
	if p.prefix == "" {
		return string(kind)
	}
	return p.prefix + "." + string(kind)
}

// Name implements Handler.
func (p *Publisher) Name() string { return "amqp" }

// Handle implements Handler.
func (p *Publisher) Handle(ctx context.Context, e aura.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		p.RoutingKey(e.Kind),
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    e.ID,
			Type:         string(e.Kind),
			Body:         body,
			Timestamp:    e.At,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Close closes the channel and, for dialed publishers, the connection.
func (p *Publisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
