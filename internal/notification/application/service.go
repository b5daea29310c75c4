package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meninadourada/storefront/internal/notification/domain"
	orderdomain "github.com/meninadourada/storefront/internal/order/domain"
)

type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
}

type Config struct {
	StoreName    string
	StoreAddress string
}

// Service turns order notification events into emails. Unknown event types
// are skipped so new producers can be deployed first.
type Service struct {
	log    *slog.Logger
	mailer Mailer
	cfg    Config
}

func NewService(log *slog.Logger, mailer Mailer, cfg Config) *Service {
	return &Service{log: log, mailer: mailer, cfg: cfg}
}

// Handle reports whether an email was sent.
func (s *Service) Handle(ctx context.Context, eventType string, payload []byte) (bool, error) {
	var render func(orderdomain.PaymentApproved) (domain.Message, error)
	switch eventType {
	case orderdomain.EventOrderConfirmationRequested:
		render = func(p orderdomain.PaymentApproved) (domain.Message, error) {
			return domain.CustomerConfirmation(p, s.cfg.StoreName)
		}
	case orderdomain.EventNewSaleAlertRequested:
		render = func(p orderdomain.PaymentApproved) (domain.Message, error) {
			return domain.SaleAlert(p, s.cfg.StoreName, s.cfg.StoreAddress)
		}
	default:
		s.log.DebugContext(ctx, "notification event skipped", "type", eventType)
		return false, nil
	}

	var p orderdomain.PaymentApproved
	if err := json.Unmarshal(payload, &p); err != nil {
		return false, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	msg, err := render(p)
	if err != nil {
		return false, fmt.Errorf("render %s for order %s: %w", eventType, p.OrderID, err)
	}
	if len(msg.To) == 0 || msg.To[0] == "" {
		return false, fmt.Errorf("%s for order %s has no recipient", eventType, p.OrderID)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("send %s for order %s: %w", eventType, p.OrderID, err)
	}

	s.log.InfoContext(ctx, "notification sent", "type", eventType, "order_id", p.OrderID, "to", msg.To[0])
	return true, nil
}
