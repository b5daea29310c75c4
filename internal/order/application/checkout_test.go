package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meninadourada/storefront/internal/order/domain"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
)

func validRequest() CheckoutRequest {
	return CheckoutRequest{
		UserID:        "user-1",
		PayerEmail:    "ana@example.com",
		CustomerName:  "Ana Souza",
		CustomerPhone: "+55 (11) 98765-4321",
		NationalID:    "123.456.789-01",
		ShippingAddress: &domain.ShippingAddress{
			ZipCode:      "01001-000",
			StreetName:   "Praça da Sé",
			StreetNumber: "1",
			Complement:   "apto 12",
			Neighborhood: "Sé",
			CityName:     "São Paulo",
			StateName:    "SP",
			CountryName:  "Brasil",
		},
		Items: []CheckoutItem{{
			ProductID:   "prod-1",
			ProductName: "Colar dourado",
			VariationID: "var-1",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("50.00"),
		}},
		TotalAmount: decimal.RequireFromString("50.00"),
	}
}

func newTestCheckout(repo *fakeRepo, gw *fakeGateway) *Checkout {
	c := NewCheckout(discardLogger(), repo, gw, CheckoutConfig{
		Currency:        "BRL",
		BackURLs:        paymentdomain.BackURLs{Success: "https://shop/ok", Pending: "https://shop/wait", Failure: "https://shop/fail"},
		NotificationURL: "https://api.shop/payments/webhook/mercadopago",
	})
	c.newOrderID = func() string { return "ord-1" }
	c.newToken = func() string { return "tok-1" }
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCreatePreferencePersistsPendingOrder(t *testing.T) {
	repo, gw := newFakeRepo(), newFakeGateway()
	c := newTestCheckout(repo, gw)

	res, err := c.CreatePreference(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, CheckoutResult{OrderID: "ord-1", PreferenceID: "pref-1", RedirectURL: "https://mp.example/checkout/pref-1"}, res)

	o, err := repo.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "tok-1", o.CorrelationToken)
	assert.Equal(t, "pref-1", o.GatewayPreferenceID)
	assert.Equal(t, domain.GatewayStatusAwaitingCheckout, o.GatewayPaymentStatus)
	assert.Equal(t, "ana@example.com", o.Customer.Email)
	assert.Equal(t, "123.456.789-01", o.Customer.NationalID)
	require.Len(t, o.Items, 1)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("50")))
}

func TestCreatePreferenceBuildsGatewayRequest(t *testing.T) {
	repo, gw := newFakeRepo(), newFakeGateway()
	_, err := newTestCheckout(repo, gw).CreatePreference(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, "tok-1", req.ExternalReference)
	assert.Equal(t, "https://api.shop/payments/webhook/mercadopago", req.NotificationURL)
	assert.Equal(t, "https://shop/fail", req.BackURLs.Failure)

	require.Len(t, req.Items, 1)
	assert.Equal(t, "prod-1", req.Items[0].ID)
	assert.Equal(t, "Colar dourado", req.Items[0].Title)
	assert.Equal(t, "BRL", req.Items[0].CurrencyID)

	assert.Equal(t, "11", req.Payer.PhoneAreaCode)
	assert.Equal(t, "987654321", req.Payer.PhoneNumber)
	assert.Equal(t, "CPF", req.Payer.IdentificationType)
	assert.Equal(t, "12345678901", req.Payer.IdentificationNumber)
	assert.Equal(t, "apto 12", req.Shipment.Apartment)
	assert.Equal(t, "01001-000", req.Shipment.ZipCode)
}

func TestCreatePreferenceGatewayFailureLeavesNoOrder(t *testing.T) {
	cases := map[string]func(*fakeGateway){
		"error":        func(g *fakeGateway) { g.prefErr = &paymentdomain.GatewayError{Op: "create preference", StatusCode: 500} },
		"no redirect":  func(g *fakeGateway) { g.pref = paymentdomain.Preference{ID: "pref-1"} },
		"empty result": func(g *fakeGateway) { g.pref = paymentdomain.Preference{} },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			repo, gw := newFakeRepo(), newFakeGateway()
			breakIt(gw)

			_, err := newTestCheckout(repo, gw).CreatePreference(context.Background(), validRequest())
			var gwErr *paymentdomain.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Zero(t, repo.count())
		})
	}
}

func TestCreatePreferenceValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*CheckoutRequest)
		field  string
	}{
		"blank user":        {func(r *CheckoutRequest) { r.UserID = " " }, "userId"},
		"blank email":       {func(r *CheckoutRequest) { r.PayerEmail = "" }, "payerEmail"},
		"bad email":         {func(r *CheckoutRequest) { r.PayerEmail = "not-an-email" }, "payerEmail"},
		"named email":       {func(r *CheckoutRequest) { r.PayerEmail = "Ana <ana@example.com>" }, "payerEmail"},
		"bracketed email":   {func(r *CheckoutRequest) { r.PayerEmail = "<ana@example.com>" }, "payerEmail"},
		"blank name":        {func(r *CheckoutRequest) { r.CustomerName = "" }, "customerName"},
		"blank phone":       {func(r *CheckoutRequest) { r.CustomerPhone = "" }, "customerPhone"},
		"short cpf":         {func(r *CheckoutRequest) { r.NationalID = "123" }, "customerCpf"},
		"no address":        {func(r *CheckoutRequest) { r.ShippingAddress = nil }, "shippingAddress"},
		"zero total":        {func(r *CheckoutRequest) { r.TotalAmount = decimal.Zero }, "totalAmount"},
		"negative total":    {func(r *CheckoutRequest) { r.TotalAmount = decimal.NewFromInt(-1) }, "totalAmount"},
		"no items":          {func(r *CheckoutRequest) { r.Items = nil }, "items"},
		"zero quantity":     {func(r *CheckoutRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		"zero price":        {func(r *CheckoutRequest) { r.Items[0].UnitPrice = decimal.Zero }, "items[0].unitPrice"},
		"blank variation":   {func(r *CheckoutRequest) { r.Items[0].VariationID = "" }, "items[0].variationId"},
		"blank productName": {func(r *CheckoutRequest) { r.Items[0].ProductName = "" }, "items[0].productName"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo, gw := newFakeRepo(), newFakeGateway()
			req := validRequest()
			tc.mutate(&req)

			_, err := newTestCheckout(repo, gw).CreatePreference(context.Background(), req)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
			assert.Empty(t, gw.requests)
			assert.Zero(t, repo.count())
		})
	}
}

func TestCreatePreferenceDoesNotCrossCheckTotal(t *testing.T) {
	repo, gw := newFakeRepo(), newFakeGateway()
	req := validRequest()
	req.TotalAmount = decimal.RequireFromString("1.00")

	_, err := newTestCheckout(repo, gw).CreatePreference(context.Background(), req)
	require.NoError(t, err)
}

func TestCorrelationTokensAreUnique(t *testing.T) {
	repo, gw := newFakeRepo(), newFakeGateway()
	c := NewCheckout(discardLogger(), repo, gw, CheckoutConfig{Currency: "BRL"})

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		gw.pref = paymentdomain.Preference{ID: fmt.Sprintf("pref-%d", i), RedirectURL: "https://mp.example"}
		_, err := c.CreatePreference(context.Background(), validRequest())
		require.NoError(t, err)
	}
	orders, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, orders, 50)
	for _, o := range orders {
		assert.False(t, seen[o.CorrelationToken], "duplicate token %s", o.CorrelationToken)
		seen[o.CorrelationToken] = true
	}
}

type failingRepo struct{ *fakeRepo }

func (failingRepo) Create(context.Context, domain.Order) error { return errors.New("db down") }

func TestCreatePreferenceStoreFailure(t *testing.T) {
	gw := newFakeGateway()
	c := newTestCheckout(newFakeRepo(), gw)
	c.repo = failingRepo{newFakeRepo()}

	_, err := c.CreatePreference(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pref-1")
}

func TestSplitPhone(t *testing.T) {
	cases := []struct{ in, area, number string }{
		{"11987654321", "11", "987654321"},
		{"+55 11 98765-4321", "11", "987654321"},
		{"(21) 3333-4444", "21", "33334444"},
		{"5511987654321", "11", "987654321"},
		{"55987654321", "55", "987654321"},
		{"9", "", "9"},
		{"", "", ""},
	}
	for _, tc := range cases {
		area, number := SplitPhone(tc.in)
		assert.Equal(t, tc.area, area, tc.in)
		assert.Equal(t, tc.number, number, tc.in)
	}
}
