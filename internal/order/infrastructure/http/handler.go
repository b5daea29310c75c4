package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meninadourada/storefront/internal/order/application"
	"github.com/meninadourada/storefront/internal/order/domain"
)

// ProviderMercadoPago is the only webhook provider this service reconciles.
const ProviderMercadoPago = "mercadopago"

const maxWebhookBody = 1 << 20

type CheckoutService interface {
	CreatePreference(ctx context.Context, req application.CheckoutRequest) (application.CheckoutResult, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, n application.Notification) (application.Outcome, error)
}

type OrderService interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.Order, error)
	RecordPaymentUpdate(ctx context.Context, preferenceID, paymentID, rawStatus string) error
}

type Handler struct {
	log        *slog.Logger
	checkout   CheckoutService
	reconciler Reconciler
	orders     OrderService
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, checkout CheckoutService, reconciler Reconciler, orders OrderService) *Handler {
	return &Handler{
		log:        log,
		checkout:   checkout,
		reconciler: reconciler,
		orders:     orders,
		tracer:     otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/create-preference", h.createPreference)
	r.Post("/payments/webhook/{provider}", h.webhook)
	r.Post("/payments/update", h.updatePayment)

	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}/status", h.updateStatus)
	return r
}

func (h *Handler) createPreference(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePreference")
	defer span.End()

	var req createPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.checkout.CreatePreference(ctx, req.toCommand())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create preference failed")
		writeDomainError(w, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", res.OrderID), attribute.String("preference.id", res.PreferenceID))

	writeJSON(w, http.StatusOK, createPreferenceResponse{
		OrderID:      res.OrderID,
		PreferenceID: res.PreferenceID,
		RedirectURL:  res.RedirectURL,
	})
}

// webhook always answers 2xx for deliveries that retrying cannot fix, so the
// provider stops redelivering them. Gateway failures answer 500 and are
// redelivered.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	provider := chi.URLParam(r, "provider")
	if provider != ProviderMercadoPago {
		writeError(w, http.StatusNotFound, "unknown_provider", provider)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	n, err := application.ParseNotification(r.URL.Query(), body)
	if err != nil {
		h.log.WarnContext(ctx, "malformed webhook notification", "query", r.URL.RawQuery, "body_size", len(body))
		writeError(w, http.StatusBadRequest, "malformed_notification", err.Error())
		return
	}
	span.SetAttributes(attribute.String("notification.topic", n.Topic), attribute.String("notification.id", n.ID))

	outcome, err := h.reconciler.Reconcile(ctx, n)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, webhookResponse{Status: string(outcome), Topic: n.Topic, ID: n.ID})
	case errors.Is(err, domain.ErrOrderNotFound):
		h.log.ErrorContext(ctx, "webhook for unknown order acknowledged", "topic", n.Topic, "id", n.ID, "err", err)
		writeJSON(w, http.StatusOK, webhookResponse{Status: "order_not_found", Topic: n.Topic, ID: n.ID})
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		h.log.ErrorContext(ctx, "webhook reconciliation failed", "topic", n.Topic, "id", n.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "reconciliation_failed", "")
	}
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdatePayment")
	defer span.End()

	var req paymentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.orders.RecordPaymentUpdate(ctx, req.PreferenceID, req.PaymentID, req.Status); err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			h.log.ErrorContext(ctx, "manual payment update failed", "preference_id", req.PreferenceID, "err", err)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "preferenceId": req.PreferenceID})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.orders.List(ctx, r.URL.Query().Get("userId"))
	if err != nil {
		h.log.ErrorContext(ctx, "list orders failed", "err", err)
		writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	o, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
