package mercadopago

import "encoding/json"

// Wire shapes of the Mercado Pago REST API. Field names must match the
// provider documentation exactly.

type preferenceRequest struct {
	Items             []preferenceItem     `json:"items"`
	Payer             preferencePayer      `json:"payer"`
	Shipments         *preferenceShipments `json:"shipments,omitempty"`
	BackURLs          backURLs             `json:"back_urls"`
	NotificationURL   string               `json:"notification_url,omitempty"`
	ExternalReference string               `json:"external_reference"`
}

type preferenceItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id,omitempty"`
}

type preferencePayer struct {
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email"`
	Phone          *phone          `json:"phone,omitempty"`
	Identification *identification `json:"identification,omitempty"`
	Address        *payerAddress   `json:"address,omitempty"`
}

type phone struct {
	AreaCode string `json:"area_code"`
	Number   string `json:"number"`
}

type identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type payerAddress struct {
	ZipCode      string `json:"zip_code,omitempty"`
	StreetName   string `json:"street_name,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
}

type preferenceShipments struct {
	ReceiverAddress receiverAddress `json:"receiver_address"`
}

type receiverAddress struct {
	ZipCode      string `json:"zip_code,omitempty"`
	StreetName   string `json:"street_name,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
	Apartment    string `json:"apartment,omitempty"`
	CityName     string `json:"city_name,omitempty"`
	StateName    string `json:"state_name,omitempty"`
	CountryName  string `json:"country_name,omitempty"`
}

type backURLs struct {
	Success string `json:"success,omitempty"`
	Pending string `json:"pending,omitempty"`
	Failure string `json:"failure,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
}

type merchantOrderResponse struct {
	ID                json.Number            `json:"id"`
	Status            string                 `json:"status"`
	OrderStatus       string                 `json:"order_status"`
	ExternalReference string                 `json:"external_reference"`
	PreferenceID      string                 `json:"preference_id"`
	Payments          []merchantOrderPayment `json:"payments"`
}

type merchantOrderPayment struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}
