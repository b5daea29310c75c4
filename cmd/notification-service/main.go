package main

import (
	"context"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/meninadourada/storefront/internal/config"
	"github.com/meninadourada/storefront/internal/notification/application"
	notifykafka "github.com/meninadourada/storefront/internal/notification/infrastructure/kafka"
	"github.com/meninadourada/storefront/internal/notification/infrastructure/smtp"
	"github.com/meninadourada/storefront/pkg/idempotency"
	"github.com/meninadourada/storefront/pkg/logging"
	"github.com/meninadourada/storefront/pkg/shutdown"
	"github.com/meninadourada/storefront/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "notification-service", cfg.OTELEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	mailer := smtp.NewMailer(smtp.Config{
		Addr:     cfg.SMTP.Addr,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	svc := application.NewService(log, mailer, application.Config{
		StoreName:    cfg.SMTP.StoreName,
		StoreAddress: cfg.SMTP.StoreAddress,
	})

	reader := notifykafka.NewReader(cfg.KafkaBrokers, cfg.NotificationTopic, cfg.NotifierGroup)
	consumer := notifykafka.NewConsumer(log, reader, svc, idem)

	log.Info("notification consumer started", "topic", cfg.NotificationTopic, "group", cfg.NotifierGroup)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("notification-service shutdown complete")
}
