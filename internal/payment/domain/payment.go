// Package domain holds the gateway-neutral view of checkout preferences and
// payment notifications.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Notification topics acted upon by reconciliation.
const (
	TopicPayment       = "payment"
	TopicMerchantOrder = "merchant_order"
)

// StatusApproved is the provider status that settles an order.
const StatusApproved = "approved"

type PreferenceRequest struct {
	ExternalReference string
	Items             []PreferenceItem
	Payer             Payer
	Shipment          Address
	BackURLs          BackURLs
	NotificationURL   string
}

type PreferenceItem struct {
	ID          string
	Title       string
	Quantity    int
	UnitPrice   decimal.Decimal
	CurrencyID  string
	Description string
}

type Payer struct {
	Name                 string
	Email                string
	PhoneAreaCode        string
	PhoneNumber          string
	IdentificationType   string
	IdentificationNumber string
}

type Address struct {
	ZipCode      string
	StreetName   string
	StreetNumber string
	Apartment    string
	CityName     string
	StateName    string
	CountryName  string
}

type BackURLs struct {
	Success string
	Pending string
	Failure string
}

// Preference is the created checkout session.
type Preference struct {
	ID          string
	RedirectURL string
}

// PaymentDetails is the authoritative state fetched for a notification.
// PaymentID is empty when the gateway resource names no specific payment.
type PaymentDetails struct {
	Status            string
	ExternalReference string
	PaymentID         string
}

// GatewayError reports a failed or malformed exchange with the provider.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: http %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	default:
		return "gateway " + e.Op + " failed"
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }
