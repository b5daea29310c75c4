package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meninadourada/storefront/internal/order/domain"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
	"github.com/meninadourada/storefront/pkg/tracing"
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeStale     Outcome = "stale"
	OutcomeIgnored   Outcome = "ignored_topic"
)

const maxReconcileAttempts = 3

// Reconciler applies gateway notifications to orders. The notification only
// names a gateway resource; the status always comes from a fresh fetch.
type Reconciler struct {
	log     *slog.Logger
	repo    OrderRepository
	gateway PaymentGateway
	now     func() time.Time
}

func NewReconciler(log *slog.Logger, repo OrderRepository, gateway PaymentGateway) *Reconciler {
	return &Reconciler{log: log, repo: repo, gateway: gateway, now: time.Now}
}

// Reconcile processes one delivery. A version conflict restarts the whole
// fetch and apply cycle so the write is always based on the latest order.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (Outcome, error) {
	if n.Topic != paymentdomain.TopicPayment && n.Topic != paymentdomain.TopicMerchantOrder {
		r.log.InfoContext(ctx, "ignoring notification topic", "topic", n.Topic, "id", n.ID)
		return OutcomeIgnored, nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		outcome, err := r.reconcileOnce(ctx, n)
		if !errors.Is(err, domain.ErrVersionConflict) {
			return outcome, err
		}
		lastErr = err
		r.log.WarnContext(ctx, "order changed during reconciliation, retrying",
			"topic", n.Topic, "id", n.ID, "attempt", attempt)
	}
	return "", fmt.Errorf("reconcile %s %s: %w", n.Topic, n.ID, lastErr)
}

func (r *Reconciler) reconcileOnce(ctx context.Context, n Notification) (Outcome, error) {
	details, err := r.gateway.FetchPaymentDetails(ctx, n.ID, n.Topic)
	if err != nil {
		return "", err
	}
	if details.ExternalReference == "" {
		return "", fmt.Errorf("%s %s carries no external reference: %w", n.Topic, n.ID, domain.ErrOrderNotFound)
	}

	o, err := r.repo.FindByCorrelationToken(ctx, details.ExternalReference)
	if err != nil {
		return "", err
	}

	paymentID := details.PaymentID
	if paymentID == "" && n.Topic == paymentdomain.TopicPayment {
		paymentID = n.ID
	}

	before := o
	notify, err := o.ApplyGatewayPayment(details.Status, paymentID, r.now())
	if errors.Is(err, domain.ErrInvalidTransition) {
		r.log.WarnContext(ctx, "stale gateway status ignored",
			"order_id", o.ID, "status", before.Status, "gateway_status", details.Status, "err", err)
		if sameGatewayState(before, o) {
			return OutcomeStale, nil
		}
		// The status is held but the recorded payment's raw status moved.
		if err := r.repo.UpdateWithOutbox(ctx, o, nil, nil, ""); err != nil {
			return "", err
		}
		return OutcomeStale, nil
	}
	if err != nil {
		return "", err
	}
	if !notify && sameGatewayState(before, o) {
		return OutcomeUnchanged, nil
	}

	var events []domain.Event
	if notify {
		events, err = domain.PaidNotifications(o)
		if err != nil {
			return "", fmt.Errorf("build paid notifications for order %s: %w", o.ID, err)
		}
	}

	headers := map[string]string{"order_id": o.ID, "correlation_token": o.CorrelationToken}
	if err := r.repo.UpdateWithOutbox(ctx, o, events, headers, tracing.Traceparent(ctx)); err != nil {
		return "", err
	}

	r.log.InfoContext(ctx, "order reconciled",
		"order_id", o.ID, "from", before.Status, "to", o.Status,
		"gateway_status", o.GatewayPaymentStatus, "payment_id", o.GatewayPaymentID, "notified", notify)
	return OutcomeApplied, nil
}

func sameGatewayState(a, b domain.Order) bool {
	return a.Status == b.Status &&
		a.GatewayPaymentStatus == b.GatewayPaymentStatus &&
		a.GatewayPaymentID == b.GatewayPaymentID
}
