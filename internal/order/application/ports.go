package application

import (
	"context"

	"github.com/meninadourada/storefront/internal/order/domain"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
)

// OrderRepository is the Order Store. UpdateWithOutbox writes o only if the
// stored version still equals o.Version and returns domain.ErrVersionConflict
// otherwise; events are committed in the same transaction.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	FindByCorrelationToken(ctx context.Context, token string) (domain.Order, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (domain.Order, error)
	List(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateWithOutbox(ctx context.Context, o domain.Order, events []domain.Event, headers map[string]string, traceparent string) error
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, req paymentdomain.PreferenceRequest) (paymentdomain.Preference, error)
	FetchPaymentDetails(ctx context.Context, id, topic string) (paymentdomain.PaymentDetails, error)
}
