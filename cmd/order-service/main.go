package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	catalogapp "github.com/meninadourada/storefront/internal/catalog/application"
	cataloghttp "github.com/meninadourada/storefront/internal/catalog/infrastructure/http"
	catalogpg "github.com/meninadourada/storefront/internal/catalog/infrastructure/postgres"
	"github.com/meninadourada/storefront/internal/config"
	nlapp "github.com/meninadourada/storefront/internal/newsletter/application"
	nlhttp "github.com/meninadourada/storefront/internal/newsletter/infrastructure/http"
	nlpg "github.com/meninadourada/storefront/internal/newsletter/infrastructure/postgres"
	"github.com/meninadourada/storefront/internal/order/application"
	orderhttp "github.com/meninadourada/storefront/internal/order/infrastructure/http"
	orderkafka "github.com/meninadourada/storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/meninadourada/storefront/internal/order/infrastructure/postgres"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
	"github.com/meninadourada/storefront/internal/payment/infrastructure/mercadopago"
	"github.com/meninadourada/storefront/pkg/logging"
	"github.com/meninadourada/storefront/pkg/outbox"
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

	tp, err := tracing.Init(ctx, "order-service", cfg.OTELEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres Setup
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := orderpg.NewRepository(log, pool)
	store := outbox.NewPgStore(log, pool)
	subscriptions := nlpg.NewRepository(pool)
	products := catalogpg.NewRepository(log, pool)
	migrations := []struct {
		name string
		run  func(context.Context) error
	}{
		{"orders", repo.Migrate},
		{"outbox", store.Migrate},
		{"newsletter", subscriptions.Migrate},
		{"catalog", products.Migrate},
	}
	for _, m := range migrations {
		if err := m.run(ctx); err != nil {
			log.Error("migration failed", "schema", m.name, "err", err)
			os.Exit(1)
		}
	}

	// Kafka producer
	writer := orderkafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()

	dispatch := outbox.NewDispatcher(log, writer, cfg.NotificationTopic)
	relay := outbox.NewRelay(log, store, dispatch, "order-service-relay")

	mp := cfg.MercadoPago
	if mp.AccessToken == "" {
		log.Warn("MP_ACCESS_TOKEN is empty, gateway calls will be rejected")
	}
	gateway := mercadopago.NewClient(log, mercadopago.Config{
		BaseURL:     mp.BaseURL,
		AccessToken: mp.AccessToken,
		Timeout:     mp.Timeout,
		UseSandbox:  mp.UseSandbox,
	})

	checkout := application.NewCheckout(log, repo, gateway, application.CheckoutConfig{
		Currency: mp.Currency,
		BackURLs: paymentdomain.BackURLs{
			Success: mp.SuccessURL,
			Pending: mp.PendingURL,
			Failure: mp.FailureURL,
		},
		NotificationURL: mp.NotificationURL,
	})
	reconciler := application.NewReconciler(log, repo, gateway)
	orders := application.NewOrders(log, repo)

	orderHandler := orderhttp.NewHandler(log, checkout, reconciler, orders)
	newsletterHandler := nlhttp.NewHandler(log, nlapp.NewService(log, subscriptions))
	catalogHandler := cataloghttp.NewHandler(log, catalogapp.NewService(log, products))

	// HTTP server
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Mount("/newsletter", newsletterHandler.Routes())
	r.Mount("/products", catalogHandler.Routes())
	r.Mount("/", orderHandler.Routes())
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Webhook handling includes a gateway round trip bounded by MP_TIMEOUT.
		WriteTimeout: mp.Timeout*3 + 5*time.Second,
	}

	// Run relay
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	// Run HTTP
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("order-service shutdown complete")
}
