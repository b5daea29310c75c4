package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meninadourada/storefront/internal/order/domain"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
)

type CheckoutConfig struct {
	Currency        string
	BackURLs        paymentdomain.BackURLs
	NotificationURL string
}

type CheckoutRequest struct {
	UserID          string
	PayerEmail      string
	CustomerName    string
	CustomerPhone   string
	NationalID      string
	ShippingAddress *domain.ShippingAddress
	Items           []CheckoutItem
	TotalAmount     decimal.Decimal
}

type CheckoutItem struct {
	ProductID   string
	ProductName string
	VariationID string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type CheckoutResult struct {
	OrderID      string
	PreferenceID string
	RedirectURL  string
}

// Validate checks presence and range of every mandatory field. TotalAmount is
// not compared with the item subtotals.
func (r CheckoutRequest) Validate() error {
	required := []struct{ field, value string }{
		{"userId", r.UserID},
		{"payerEmail", r.PayerEmail},
		{"customerName", r.CustomerName},
		{"customerPhone", r.CustomerPhone},
		{"customerCpf", r.NationalID},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &domain.ValidationError{Field: f.field, Message: "is mandatory"}
		}
	}
	// The address goes to the gateway and becomes the SMTP recipient, so a
	// display name or angle brackets are rejected.
	if addr, err := mail.ParseAddress(r.PayerEmail); err != nil || addr.Address != r.PayerEmail {
		return &domain.ValidationError{Field: "payerEmail", Message: "invalid email format"}
	}
	if n := len(strings.TrimSpace(r.NationalID)); n < 11 || n > 14 {
		return &domain.ValidationError{Field: "customerCpf", Message: "must have between 11 and 14 characters"}
	}
	if r.ShippingAddress == nil {
		return &domain.ValidationError{Field: "shippingAddress", Message: "is mandatory"}
	}
	if !r.TotalAmount.IsPositive() {
		return &domain.ValidationError{Field: "totalAmount", Message: "must be positive"}
	}
	if len(r.Items) == 0 {
		return &domain.ValidationError{Field: "items", Message: "at least one order item is mandatory"}
	}
	for i, it := range r.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		switch {
		case strings.TrimSpace(it.ProductID) == "":
			return &domain.ValidationError{Field: prefix + "productId", Message: "is mandatory"}
		case strings.TrimSpace(it.ProductName) == "":
			return &domain.ValidationError{Field: prefix + "productName", Message: "is mandatory"}
		case strings.TrimSpace(it.VariationID) == "":
			return &domain.ValidationError{Field: prefix + "variationId", Message: "is mandatory"}
		case it.Quantity <= 0:
			return &domain.ValidationError{Field: prefix + "quantity", Message: "must be positive"}
		case !it.UnitPrice.IsPositive():
			return &domain.ValidationError{Field: prefix + "unitPrice", Message: "must be positive"}
		}
	}
	return nil
}

// Checkout creates gateway preferences and the PENDING orders behind them.
type Checkout struct {
	log     *slog.Logger
	repo    OrderRepository
	gateway PaymentGateway
	cfg     CheckoutConfig

	newOrderID func() string
	newToken   func() string
	now        func() time.Time
}

func NewCheckout(log *slog.Logger, repo OrderRepository, gateway PaymentGateway, cfg CheckoutConfig) *Checkout {
	return &Checkout{
		log:        log,
		repo:       repo,
		gateway:    gateway,
		cfg:        cfg,
		newOrderID: func() string { return uuid.Must(uuid.NewV7()).String() },
		newToken:   uuid.NewString,
		now:        time.Now,
	}
}

var errNoRedirect = errors.New("preference without id or redirect url")

// CreatePreference persists the order only after the gateway accepted the
// preference, so a failed gateway call never leaves an unreconcilable order.
func (c *Checkout) CreatePreference(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if err := req.Validate(); err != nil {
		return CheckoutResult{}, err
	}

	token := c.newToken()
	pref, err := c.gateway.CreatePreference(ctx, c.buildPreference(req, token))
	if err != nil {
		c.log.ErrorContext(ctx, "create preference failed", "user_id", req.UserID, "err", err)
		return CheckoutResult{}, err
	}
	if pref.ID == "" || pref.RedirectURL == "" {
		c.log.ErrorContext(ctx, "gateway returned incomplete preference", "user_id", req.UserID, "preference_id", pref.ID)
		return CheckoutResult{}, &paymentdomain.GatewayError{Op: "create preference", Err: errNoRedirect}
	}

	o := domain.NewOrder(c.newOrderID(), req.UserID, token, pref.ID,
		domain.Customer{
			Name:       req.CustomerName,
			Email:      req.PayerEmail,
			Phone:      req.CustomerPhone,
			NationalID: req.NationalID,
		},
		*req.ShippingAddress, toLineItems(req.Items), req.TotalAmount, c.now())

	if err := c.repo.Create(ctx, o); err != nil {
		return CheckoutResult{}, fmt.Errorf("persist order for preference %s: %w", pref.ID, err)
	}

	c.log.InfoContext(ctx, "checkout preference created",
		"order_id", o.ID, "preference_id", pref.ID, "correlation_token", token, "total", o.TotalAmount.String())
	return CheckoutResult{OrderID: o.ID, PreferenceID: pref.ID, RedirectURL: pref.RedirectURL}, nil
}

func (c *Checkout) buildPreference(req CheckoutRequest, token string) paymentdomain.PreferenceRequest {
	items := make([]paymentdomain.PreferenceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, paymentdomain.PreferenceItem{
			ID:         it.ProductID,
			Title:      it.ProductName,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			CurrencyID: c.cfg.Currency,
		})
	}
	area, number := SplitPhone(req.CustomerPhone)
	addr := req.ShippingAddress
	return paymentdomain.PreferenceRequest{
		ExternalReference: token,
		Items:             items,
		Payer: paymentdomain.Payer{
			Name:                 req.CustomerName,
			Email:                req.PayerEmail,
			PhoneAreaCode:        area,
			PhoneNumber:          number,
			IdentificationType:   "CPF",
			IdentificationNumber: digitsOnly(req.NationalID),
		},
		Shipment: paymentdomain.Address{
			ZipCode:      addr.ZipCode,
			StreetName:   addr.StreetName,
			StreetNumber: addr.StreetNumber,
			Apartment:    addr.Complement,
			CityName:     addr.CityName,
			StateName:    addr.StateName,
			CountryName:  addr.CountryName,
		},
		BackURLs:        c.cfg.BackURLs,
		NotificationURL: c.cfg.NotificationURL,
	}
}

func toLineItems(items []CheckoutItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.LineItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

// SplitPhone separates a Brazilian phone into area code and local number.
// A leading 55 country code is dropped when the number is long enough to
// carry one.
func SplitPhone(phone string) (area, number string) {
	d := digitsOnly(phone)
	if strings.HasPrefix(d, "55") && len(d) > 11 {
		d = d[2:]
	}
	if len(d) <= 2 {
		return "", d
	}
	return d[:2], d[2:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
