package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/meninadourada/storefront/internal/order/domain"
	"github.com/meninadourada/storefront/pkg/tracing"
)

// Orders serves the order read paths and the operator driven updates.
type Orders struct {
	log  *slog.Logger
	repo OrderRepository
	now  func() time.Time
}

func NewOrders(log *slog.Logger, repo OrderRepository) *Orders {
	return &Orders{log: log, repo: repo, now: time.Now}
}

func (s *Orders) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns the orders of userID, or every order when userID is empty.
func (s *Orders) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.List(ctx, strings.TrimSpace(userID))
}

// UpdateStatus advances an order along the fulfillment track.
func (s *Orders) UpdateStatus(ctx context.Context, id, status string) (domain.Order, error) {
	next, ok := domain.ParseStatus(status)
	if !ok {
		return domain.Order{}, &domain.ValidationError{Field: "status", Message: "unknown status " + status}
	}

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	from := o.Status
	if err := o.Advance(next, s.now()); err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.UpdateWithOutbox(ctx, o, nil, nil, tracing.Traceparent(ctx)); err != nil {
		return domain.Order{}, err
	}
	o.Version++

	s.log.InfoContext(ctx, "order status updated", "order_id", o.ID, "from", from, "to", o.Status)
	return o, nil
}

// RecordPaymentUpdate is the manual override for payment identifiers. It
// bypasses the gateway fetch and leaves Status untouched.
func (s *Orders) RecordPaymentUpdate(ctx context.Context, preferenceID, paymentID, rawStatus string) error {
	if strings.TrimSpace(preferenceID) == "" {
		return &domain.ValidationError{Field: "preferenceId", Message: "is mandatory"}
	}
	o, err := s.repo.FindByPreferenceID(ctx, preferenceID)
	if err != nil {
		return err
	}
	o.RecordManualPayment(paymentID, rawStatus, s.now())

	err = s.repo.UpdateWithOutbox(ctx, o, nil, nil, tracing.Traceparent(ctx))
	if errors.Is(err, domain.ErrVersionConflict) {
		s.log.WarnContext(ctx, "manual payment update raced with another write", "order_id", o.ID)
	}
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "manual payment update recorded",
		"order_id", o.ID, "preference_id", preferenceID, "payment_id", paymentID, "gateway_status", rawStatus)
	return nil
}
