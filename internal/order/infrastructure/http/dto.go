package http

import (
	"github.com/shopspring/decimal"

	"github.com/meninadourada/storefront/internal/order/application"
	"github.com/meninadourada/storefront/internal/order/domain"
)

type createPreferenceRequest struct {
	UserID          string                  `json:"userId"`
	Items           []orderItemRequest      `json:"items"`
	TotalAmount     decimal.Decimal         `json:"totalAmount"`
	PayerEmail      string                  `json:"payerEmail"`
	CustomerName    string                  `json:"customerName"`
	CustomerPhone   string                  `json:"customerPhone"`
	CustomerCPF     string                  `json:"customerCpf"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
}

type orderItemRequest struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	VariationID string          `json:"variationId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (r createPreferenceRequest) toCommand() application.CheckoutRequest {
	items := make([]application.CheckoutItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, application.CheckoutItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return application.CheckoutRequest{
		UserID:          r.UserID,
		PayerEmail:      r.PayerEmail,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		NationalID:      r.CustomerCPF,
		ShippingAddress: r.ShippingAddress,
		Items:           items,
		TotalAmount:     r.TotalAmount,
	}
}

type createPreferenceResponse struct {
	OrderID      string `json:"orderId"`
	PreferenceID string `json:"preferenceId"`
	RedirectURL  string `json:"redirectUrl"`
}

type paymentUpdateRequest struct {
	PreferenceID string `json:"preferenceId"`
	PaymentID    string `json:"paymentId"`
	Status       string `json:"status"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

type webhookResponse struct {
	Status string `json:"status"`
	Topic  string `json:"topic,omitempty"`
	ID     string `json:"id,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
