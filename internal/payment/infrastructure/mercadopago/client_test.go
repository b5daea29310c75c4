package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meninadourada/storefront/internal/payment/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc, sandbox bool) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(testLogger(), Config{BaseURL: srv.URL, AccessToken: "TEST-TOKEN", Timeout: 2 * time.Second, UseSandbox: sandbox})
}

func samplePreference() domain.PreferenceRequest {
	return domain.PreferenceRequest{
		ExternalReference: "corr-123",
		Items: []domain.PreferenceItem{{
			ID: "p1", Title: "Colar Dourado", Quantity: 2, UnitPrice: decimal.RequireFromString("25.50"), CurrencyID: "BRL",
		}},
		Payer: domain.Payer{
			Name: "Ana Souza", Email: "ana@example.com",
			PhoneAreaCode: "11", PhoneNumber: "987654321",
			IdentificationType: "CPF", IdentificationNumber: "12345678901",
		},
		Shipment: domain.Address{ZipCode: "01001000", StreetName: "Praça da Sé", StreetNumber: "1", CityName: "São Paulo", StateName: "SP", CountryName: "Brasil"},
		BackURLs: domain.BackURLs{Success: "https://shop/success", Pending: "https://shop/pending", Failure: "https://shop/failure"},
		NotificationURL: "https://api.shop/payments/webhook/mercadopago",
	}
}

func TestCreatePreferenceWireFormat(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-TOKEN", r.Header.Get("Authorization"))
		assert.Equal(t, "corr-123", r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/checkout?pref=1","sandbox_init_point":"https://sandbox/checkout?pref=1"}`))
	}, false)

	pref, err := client.CreatePreference(context.Background(), samplePreference())
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp/checkout?pref=1", pref.RedirectURL)

	assert.Equal(t, "corr-123", got["external_reference"])
	assert.Equal(t, "https://api.shop/payments/webhook/mercadopago", got["notification_url"])

	backs := got["back_urls"].(map[string]any)
	assert.Equal(t, "https://shop/success", backs["success"])
	assert.Equal(t, "https://shop/pending", backs["pending"])
	assert.Equal(t, "https://shop/failure", backs["failure"])

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "p1", item["id"])
	assert.Equal(t, "Colar Dourado", item["title"])
	assert.Equal(t, float64(2), item["quantity"])
	assert.Equal(t, 25.5, item["unit_price"])
	assert.Equal(t, "BRL", item["currency_id"])

	payer := got["payer"].(map[string]any)
	assert.Equal(t, "ana@example.com", payer["email"])
	assert.Equal(t, map[string]any{"area_code": "11", "number": "987654321"}, payer["phone"])
	assert.Equal(t, map[string]any{"type": "CPF", "number": "12345678901"}, payer["identification"])

	receiver := got["shipments"].(map[string]any)["receiver_address"].(map[string]any)
	assert.Equal(t, "01001000", receiver["zip_code"])
	assert.Equal(t, "São Paulo", receiver["city_name"])
}

func TestCreatePreferenceSandboxRedirect(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/1","sandbox_init_point":"https://sandbox/1"}`))
	}, true)

	pref, err := client.CreatePreference(context.Background(), samplePreference())
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox/1", pref.RedirectURL)
}

func TestCreatePreferenceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
	}{
		{"api error", http.StatusBadRequest, `{"message":"invalid items"}`, http.StatusBadRequest},
		{"server error", http.StatusInternalServerError, `oops`, http.StatusInternalServerError},
		{"missing init point", http.StatusCreated, `{"id":"pref-1"}`, 0},
		{"malformed body", http.StatusOK, `{"id":`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, false)

			_, err := client.CreatePreference(context.Background(), samplePreference())
			var gwErr *domain.GatewayError
			require.True(t, errors.As(err, &gwErr), "got %v", err)
			assert.Equal(t, tt.code, gwErr.StatusCode)
		})
	}
}

func TestCreatePreferenceTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	client := NewClient(testLogger(), Config{BaseURL: srv.URL, AccessToken: "x", Timeout: 20 * time.Millisecond})

	_, err := client.CreatePreference(context.Background(), samplePreference())
	var gwErr *domain.GatewayError
	assert.True(t, errors.As(err, &gwErr))
}

func TestFetchPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/999", r.URL.Path)
		assert.Equal(t, "Bearer TEST-TOKEN", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":999,"status":"approved","status_detail":"accredited","external_reference":"corr-123"}`))
	}, false)

	d, err := client.FetchPaymentDetails(context.Background(), "999", domain.TopicPayment)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentDetails{Status: "approved", ExternalReference: "corr-123", PaymentID: "999"}, d)
}

func TestFetchPaymentWithoutStatusIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":999}`))
	}, false)

	_, err := client.FetchPaymentDetails(context.Background(), "999", domain.TopicPayment)
	var gwErr *domain.GatewayError
	assert.True(t, errors.As(err, &gwErr))
}

func TestFetchMerchantOrderPicksFirstApprovedPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/merchant_orders/555", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 555, "status": "closed", "order_status": "paid",
			"external_reference": "corr-123", "preference_id": "pref-1",
			"payments": [
				{"id": 1001, "status": "rejected"},
				{"id": 1002, "status": "approved"},
				{"id": 1003, "status": "approved"}
			]}`))
	}, false)

	d, err := client.FetchPaymentDetails(context.Background(), "555", domain.TopicMerchantOrder)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentDetails{Status: "approved", ExternalReference: "corr-123", PaymentID: "1002"}, d)
}

func TestFetchMerchantOrderWithoutApprovedPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":555,"status":"opened","order_status":"payment_required","external_reference":"corr-123","payments":[]}`))
	}, false)

	d, err := client.FetchPaymentDetails(context.Background(), "555", domain.TopicMerchantOrder)
	require.NoError(t, err)
	assert.Equal(t, "payment_required", d.Status)
	assert.Empty(t, d.PaymentID)
	assert.Equal(t, "corr-123", d.ExternalReference)
}

func TestFetchUnsupportedTopic(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called")
	}, false)

	_, err := client.FetchPaymentDetails(context.Background(), "1", "chargebacks")
	var gwErr *domain.GatewayError
	assert.True(t, errors.As(err, &gwErr))
}
