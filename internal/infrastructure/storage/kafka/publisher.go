package kafka

import (
	"bytes"
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher mirrors every distributed line onto a Kafka topic. Messages
// are keyed by "Exchange:Pair" so one pair of one venue stays ordered
// within its partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{writer: w, topic: topic}
}

func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) Publish(ctx context.Context, u domain.PriceUpdate) error {
	msg, err := message(u)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error { return p.writer.Close() }

func message(u domain.PriceUpdate) (kafka.Message, error) {
	line, err := u.MarshalLine()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(u.Exchange + ":" + u.Pair),
		Value: bytes.TrimSuffix(line, []byte{'\n'}),
		Time:  time.UnixMilli(u.Timestamp),
	}, nil
}

var _ port.QuoteSink = (*Publisher)(nil)
