package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meninadourada/storefront/internal/payment/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBaseURL = "https://api.mercadopago.com"

// Config carries one credential set. Each Client owns its own token.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	UseSandbox  bool
}

// Client is a stateless adapter over the Mercado Pago REST API. It never
// retries; redelivery is the caller's concern.
type Client struct {
	log    *slog.Logger
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		log:    log,
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tracer: otel.Tracer("mercadopago-client"),
	}
}

func (c *Client) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (domain.Preference, error) {
	ctx, span := c.tracer.Start(ctx, "mercadopago.CreatePreference")
	defer span.End()

	var resp preferenceResponse
	if err := c.do(ctx, "create preference", http.MethodPost, "/checkout/preferences", req.ExternalReference, toWire(req), &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create preference failed")
		return domain.Preference{}, err
	}

	redirect := resp.InitPoint
	if c.cfg.UseSandbox {
		redirect = resp.SandboxInitPoint
	}
	if resp.ID == "" || redirect == "" {
		return domain.Preference{}, &domain.GatewayError{Op: "create preference", Err: errors.New("response without id or redirect url")}
	}
	span.SetAttributes(attribute.String("mp.preference_id", resp.ID))
	return domain.Preference{ID: resp.ID, RedirectURL: redirect}, nil
}

// FetchPaymentDetails resolves a notification to the provider's current view.
// For merchant orders the first approved payment wins; otherwise the merchant
// order's aggregate status is reported.
func (c *Client) FetchPaymentDetails(ctx context.Context, id, topic string) (domain.PaymentDetails, error) {
	ctx, span := c.tracer.Start(ctx, "mercadopago.FetchPaymentDetails",
		trace.WithAttributes(attribute.String("mp.topic", topic), attribute.String("mp.id", id)))
	defer span.End()

	switch topic {
	case domain.TopicPayment:
		var p paymentResponse
		if err := c.do(ctx, "fetch payment", http.MethodGet, "/v1/payments/"+url.PathEscape(id), "", nil, &p); err != nil {
			span.RecordError(err)
			return domain.PaymentDetails{}, err
		}
		if p.Status == "" {
			return domain.PaymentDetails{}, &domain.GatewayError{Op: "fetch payment", Err: errors.New("payment without status")}
		}
		paymentID := p.ID.String()
		if paymentID == "" {
			paymentID = id
		}
		return domain.PaymentDetails{Status: p.Status, ExternalReference: p.ExternalReference, PaymentID: paymentID}, nil

	case domain.TopicMerchantOrder:
		var mo merchantOrderResponse
		if err := c.do(ctx, "fetch merchant order", http.MethodGet, "/merchant_orders/"+url.PathEscape(id), "", nil, &mo); err != nil {
			span.RecordError(err)
			return domain.PaymentDetails{}, err
		}
		details := domain.PaymentDetails{ExternalReference: mo.ExternalReference}
		for _, p := range mo.Payments {
			if p.Status == domain.StatusApproved {
				details.Status = p.Status
				details.PaymentID = p.ID.String()
				return details, nil
			}
		}
		details.Status = mo.OrderStatus
		if details.Status == "" {
			details.Status = mo.Status
		}
		if details.Status == "" {
			return domain.PaymentDetails{}, &domain.GatewayError{Op: "fetch merchant order", Err: errors.New("merchant order without status")}
		}
		return details, nil

	default:
		return domain.PaymentDetails{}, &domain.GatewayError{Op: "fetch details", Err: fmt.Errorf("unsupported topic %q", topic)}
	}
}

func (c *Client) do(ctx context.Context, op, method, path, idempotencyKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &domain.GatewayError{Op: op, Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return &domain.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "mercadopago request failed", "op", op, "path", path, "err", err)
		return &domain.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	c.log.DebugContext(ctx, "mercadopago response", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.ErrorContext(ctx, "mercadopago api error", "op", op, "status", resp.StatusCode, "body", string(raw))
		return &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GatewayError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func toWire(req domain.PreferenceRequest) preferenceRequest {
	items := make([]preferenceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, preferenceItem{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			CurrencyID:  it.CurrencyID,
		})
	}

	payer := preferencePayer{
		Name:  req.Payer.Name,
		Email: req.Payer.Email,
	}
	if req.Payer.PhoneNumber != "" {
		payer.Phone = &phone{AreaCode: req.Payer.PhoneAreaCode, Number: req.Payer.PhoneNumber}
	}
	if req.Payer.IdentificationNumber != "" {
		payer.Identification = &identification{Type: req.Payer.IdentificationType, Number: req.Payer.IdentificationNumber}
	}
	if req.Shipment.ZipCode != "" || req.Shipment.StreetName != "" {
		payer.Address = &payerAddress{
			ZipCode:      req.Shipment.ZipCode,
			StreetName:   req.Shipment.StreetName,
			StreetNumber: req.Shipment.StreetNumber,
		}
	}

	out := preferenceRequest{
		Items: items,
		Payer: payer,
		BackURLs: backURLs{
			Success: req.BackURLs.Success,
			Pending: req.BackURLs.Pending,
			Failure: req.BackURLs.Failure,
		},
		NotificationURL:   req.NotificationURL,
		ExternalReference: req.ExternalReference,
	}
	if req.Shipment != (domain.Address{}) {
		out.Shipments = &preferenceShipments{ReceiverAddress: receiverAddress{
			ZipCode:      req.Shipment.ZipCode,
			StreetName:   req.Shipment.StreetName,
			StreetNumber: req.Shipment.StreetNumber,
			Apartment:    req.Shipment.Apartment,
			CityName:     req.Shipment.CityName,
			StateName:    req.Shipment.StateName,
			CountryName:  req.Shipment.CountryName,
		}}
	}
	return out
}
