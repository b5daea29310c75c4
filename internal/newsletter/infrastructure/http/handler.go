package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meninadourada/storefront/internal/newsletter/domain"
)

type Service interface {
	Subscribe(ctx context.Context, email string) (domain.Subscription, error)
	Get(ctx context.Context, id string) (domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Unsubscribe(ctx context.Context, id string) error
}

type Handler struct {
	log *slog.Logger
	svc Service
}

func NewHandler(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/subscribe", h.subscribe)
	r.Get("/all", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/unsubscribe/{id}", h.unsubscribe)
	return r
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	sub, err := h.svc.Subscribe(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unsubscribe(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_email", err.Error())
	case errors.Is(err, domain.ErrAlreadySubscribed):
		writeError(w, http.StatusBadRequest, "already_subscribed", err.Error())
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "subscription_not_found", err.Error())
	default:
		h.log.ErrorContext(r.Context(), "newsletter request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
