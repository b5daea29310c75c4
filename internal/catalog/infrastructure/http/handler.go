package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meninadourada/storefront/internal/catalog/domain"
)

const (
	maxProductBody = 1 << 20
	maxBatchBody   = 16 << 20
)

type Service interface {
	Create(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	CreateBatch(ctx context.Context, in []domain.ProductInput) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, page, size int) (domain.Page, error)
	Update(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type Handler struct {
	log    *slog.Logger
	svc    Service
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc, tracer: otel.Tracer("catalog-http")}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/insert", h.create)
	r.Post("/batch-insert", h.createBatch)
	r.Get("/all", h.list)
	r.Get("/findById/{id}", h.get)
	r.Put("/update/{id}", h.update)
	r.Delete("/delete/{id}", h.delete)
	r.Delete("/delete-all", h.deleteAll)
	return r
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req productRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProductBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	p, err := h.svc.Create(ctx, req.toInput())
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	span.SetAttributes(attribute.String("product.id", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProductBatch")
	defer span.End()

	var req []productRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	in := make([]domain.ProductInput, 0, len(req))
	for _, p := range req {
		in = append(in, p.toInput())
	}
	products, err := h.svc.CreateBatch(ctx, in)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	span.SetAttributes(attribute.Int("product.count", len(products)))
	writeJSON(w, http.StatusCreated, products)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	page, err := intParam(r, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_page", err.Error())
		return
	}
	size, err := intParam(r, "size")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_size", err.Error())
		return
	}
	result, err := h.svc.List(ctx, page, size)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct")
	defer span.End()

	var req productRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProductBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	p, err := h.svc.Update(ctx, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteProduct")
	defer span.End()

	if err := h.svc.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteAllProducts")
	defer span.End()

	n, err := h.svc.DeleteAll(ctx)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteAllResponse{Deleted: n})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", "")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog request failed")
		h.log.ErrorContext(ctx, "catalog request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

// intParam reads an optional non-negative query parameter; absent means 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
