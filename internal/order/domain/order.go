package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatusAwaitingCheckout is stored as the raw gateway status until the
// first payment notification arrives.
const GatewayStatusAwaitingCheckout = "PENDING_CHECKOUT"

// Order is persisted as a single document. Only Status drives behavior;
// GatewayPaymentStatus keeps the provider's raw vocabulary for audit.
type Order struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"userId"`
	CorrelationToken     string          `json:"correlationToken"`
	GatewayPreferenceID  string          `json:"gatewayPreferenceId"`
	GatewayPaymentID     string          `json:"gatewayPaymentId,omitempty"`
	GatewayPaymentStatus string          `json:"gatewayPaymentStatus"`
	Status               Status          `json:"status"`
	Customer             Customer        `json:"customer"`
	ShippingAddress      ShippingAddress `json:"shippingAddress"`
	Items                []LineItem      `json:"items"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	OrderDate            time.Time       `json:"orderDate"`
	PaidNotifiedAt       *time.Time      `json:"paidNotifiedAt,omitempty"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	Version              int64           `json:"version"`
}

type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalId"`
}

type ShippingAddress struct {
	ZipCode      string `json:"zipCode"`
	StreetName   string `json:"streetName"`
	StreetNumber string `json:"streetNumber"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	CityName     string `json:"cityName"`
	StateName    string `json:"stateName"`
	CountryName  string `json:"countryName"`
}

// LineItem is a snapshot taken at checkout; it is never resynchronized with
// the catalog.
type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	VariationID string          `json:"variationId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func NewOrder(id, userID, correlationToken, preferenceID string, customer Customer, address ShippingAddress, items []LineItem, total decimal.Decimal, now time.Time) Order {
	now = now.UTC()
	return Order{
		ID:                   id,
		UserID:               userID,
		CorrelationToken:     correlationToken,
		GatewayPreferenceID:  preferenceID,
		GatewayPaymentStatus: GatewayStatusAwaitingCheckout,
		Status:               StatusPending,
		Customer:             customer,
		ShippingAddress:      address,
		Items:                items,
		TotalAmount:          total,
		OrderDate:            now,
		UpdatedAt:            now,
	}
}

// ItemsTotal is the itemized sum the gateway charges. It is not compared with
// TotalAmount.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ApplyGatewayPayment records an authoritative gateway status. It reports
// whether this call moved the order into PAID for the first time, in which
// case the caller must enqueue the paid notifications in the same write.
//
// A refused transition keeps Status and returns ErrInvalidTransition. If the
// status concerns the payment already recorded on the order (a refund or a
// chargeback of the approved payment), the raw status is still refreshed.
func (o *Order) ApplyGatewayPayment(rawStatus, paymentID string, now time.Time) (bool, error) {
	next := MapGatewayStatus(rawStatus)
	if err := checkReconcile(o.Status, next); err != nil {
		if paymentID != "" && paymentID == o.GatewayPaymentID && rawStatus != o.GatewayPaymentStatus {
			o.GatewayPaymentStatus = rawStatus
			o.UpdatedAt = now.UTC()
		}
		return false, err
	}

	o.GatewayPaymentStatus = rawStatus
	if paymentID != "" {
		o.GatewayPaymentID = paymentID
	}
	o.Status = next
	o.UpdatedAt = now.UTC()

	if next == StatusPaid && o.PaidNotifiedAt == nil {
		at := now.UTC()
		o.PaidNotifiedAt = &at
		return true, nil
	}
	return false, nil
}

// RecordManualPayment overwrites the payment identifiers without touching
// Status. It backs the administrative update path.
func (o *Order) RecordManualPayment(paymentID, rawStatus string, now time.Time) {
	o.GatewayPaymentID = paymentID
	o.GatewayPaymentStatus = rawStatus
	o.UpdatedAt = now.UTC()
}

// Advance moves the order along the fulfillment track.
func (o *Order) Advance(next Status, now time.Time) error {
	if err := checkFulfillment(o.Status, next); err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now.UTC()
	return nil
}
