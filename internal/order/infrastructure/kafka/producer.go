package kafka

import (
	"github.com/segmentio/kafka-go"
)

// Writer publishes outbox events. Messages are hashed by key so all events of
// one order keep their relative order.
type Writer struct {
	*kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}
