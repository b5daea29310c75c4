package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderConfirmationRequested = "OrderConfirmationRequested"
	EventNewSaleAlertRequested      = "NewSaleAlertRequested"
)

// Event is an outbox entry produced by an order change.
type Event struct {
	Type    string
	Payload []byte
}

// PaymentApproved is the order snapshot carried by both paid notifications.
type PaymentApproved struct {
	OrderID              string          `json:"orderId"`
	UserID               string          `json:"userId"`
	CorrelationToken     string          `json:"correlationToken"`
	GatewayPaymentID     string          `json:"gatewayPaymentId"`
	GatewayPaymentStatus string          `json:"gatewayPaymentStatus"`
	Customer             Customer        `json:"customer"`
	ShippingAddress      ShippingAddress `json:"shippingAddress"`
	Items                []LineItem      `json:"items"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	OrderDate            time.Time       `json:"orderDate"`
}

// PaidNotifications builds the customer confirmation and the store alert.
func PaidNotifications(o Order) ([]Event, error) {
	payload, err := json.Marshal(PaymentApproved{
		OrderID:              o.ID,
		UserID:               o.UserID,
		CorrelationToken:     o.CorrelationToken,
		GatewayPaymentID:     o.GatewayPaymentID,
		GatewayPaymentStatus: o.GatewayPaymentStatus,
		Customer:             o.Customer,
		ShippingAddress:      o.ShippingAddress,
		Items:                o.Items,
		TotalAmount:          o.TotalAmount,
		OrderDate:            o.OrderDate,
	})
	if err != nil {
		return nil, err
	}
	return []Event{
		{Type: EventOrderConfirmationRequested, Payload: payload},
		{Type: EventNewSaleAlertRequested, Payload: payload},
	}, nil
}
