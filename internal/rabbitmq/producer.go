package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	ExchangeName = "editor"
	ExchangeType = "topic"
	QueueChanges = "editor.changes"
)

// channel is the part of *amqp.Channel the producer uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Producer struct {
	conn    *amqp.Connection
	channel channel
	log     zerolog.Logger
}

// NewProducer connects to RabbitMQ and declares the editor exchange plus a
// durable queue bound to every project and file event.
func NewProducer(rabbitMQURL string, log zerolog.Logger) (*Producer, error) {
	conn, err := amqp.Dial(rabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		QueueChanges, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare changes queue: %w", err)
	}

	for _, key := range []string{"project.*", "file.*", "files.*"} {
		if err := ch.QueueBind(QueueChanges, key, ExchangeName, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind changes queue to %s: %w", key, err)
		}
	}

	log.Info().Str("exchange", ExchangeName).Msg("rabbitmq producer connected")

	return &Producer{conn: conn, channel: ch, log: log}, nil
}

// Publish sends an event body under routingKey (e.g. "files.replaced").
func (p *Producer) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.channel.PublishWithContext(
		ctx,
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("closing rabbitmq channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
