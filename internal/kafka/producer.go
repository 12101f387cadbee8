package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// batchTimeout caps how long a single event waits for a batch to fill. The
// kafka-go default of one second would be added to every mutation.
const batchTimeout = 5 * time.Millisecond

type Producer struct {
	writer messageWriter
}

func NewProducer(brokerURL, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokerURL),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
	}
	return &Producer{writer: writer}
}

// Publish writes body keyed by routingKey. Keys hash to partitions, so events
// of one type keep their relative order.
func (p *Producer) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(routingKey),
		Value: body,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
