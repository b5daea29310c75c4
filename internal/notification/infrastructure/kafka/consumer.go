package kafka

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/meninadourada/storefront/pkg/outbox"
	"github.com/meninadourada/storefront/pkg/tracing"
)

type Handler interface {
	Handle(ctx context.Context, eventType string, payload []byte) (bool, error)
}

// Deduper is satisfied by *idempotency.Store.
type Deduper interface {
	Key(parts ...string) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers notification events at most once: every message is
// committed whether or not its email went out.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	svc    Handler
	idem   Deduper
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc Handler, idem Deduper) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	key := c.dedupeKey(msg)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		// Without the dedupe record the email could go out twice on a
		// redelivery, so it is dropped and the message still committed.
		c.log.Error("idempotency check failed, notification dropped",
			"key", key, "type", tracing.HeaderValue(msg.Headers, outbox.HeaderEventType), "err", err)
		return
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderNotification")
	defer span.End()

	eventType := tracing.HeaderValue(msg.Headers, outbox.HeaderEventType)
	if _, err := c.svc.Handle(msgCtx, eventType, msg.Value); err != nil {
		span.RecordError(err)
		c.log.ErrorContext(msgCtx, "notification dispatch failed", "type", eventType, "key", key, "err", err)
	}
}

// dedupeKey prefers the outbox row id, which survives a relay re-sending the
// same event at a new offset.
func (c *Consumer) dedupeKey(msg kafka.Message) string {
	if id := tracing.HeaderValue(msg.Headers, outbox.HeaderEventID); id != "" {
		return c.idem.Key("notification", "event", id)
	}
	return c.idem.Key("notification", msg.Topic, strconv.Itoa(msg.Partition), strconv.FormatInt(msg.Offset, 10))
}
