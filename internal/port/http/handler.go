package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/service"
	"github.com/shopspring/decimal"
)

const (
	maxBodyBytes     = 1 << 20
	maxFeaturedLimit = 100
)

var errBadRequest = errors.New("bad request")

type Catalog interface {
	ListProducts(ctx context.Context, q entity.ProductQuery) ([]entity.Product, error)
	FeaturedProducts(ctx context.Context, limit int) ([]entity.Product, error)
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	CreateProduct(ctx context.Context, product entity.Product) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type Carts interface {
	Get(ctx context.Context, sessionID string) (*service.CartAggregator, error)
}

type Handler struct {
	catalog Catalog
	carts   Carts
	taxRate decimal.Decimal
	log     logger.Logger
}

func NewHandler(catalog Catalog, carts Carts, taxRate decimal.Decimal, log logger.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		carts:   carts,
		taxRate: taxRate,
		log:     log,
	}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := entity.ProductQuery{
		Category: entity.Category(r.URL.Query().Get("category")),
		Sort:     entity.SortOrder(r.URL.Query().Get("sort")),
	}

	products, err := h.catalog.ListProducts(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Products: nonNilProducts(products)})
}

func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeaturedLimit {
			h.fail(w, r, badRequest("limit must be an integer between 1 and "+strconv.Itoa(maxFeaturedLimit)))
			return
		}
		limit = n
	}

	products, err := h.catalog.FeaturedProducts(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Products: nonNilProducts(products)})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	agg, err := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(agg.Lines(), h.taxRate))
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ProductID == "" {
		h.fail(w, r, badRequest("product_id is required"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	agg, err := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	lines, err := agg.AddLine(r.Context(), *product, req.Size, req.Color, quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(lines, h.taxRate))
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Quantity == nil {
		h.fail(w, r, badRequest("quantity is required"))
		return
	}

	agg, err := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines, err := agg.UpdateQuantity(r.Context(), pathParam(r, "key"), *req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(lines, h.taxRate))
}

func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	agg, err := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines := agg.RemoveLine(r.Context(), pathParam(r, "key"))
	writeJSON(w, http.StatusOK, newCartResponse(lines, h.taxRate))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	agg, err := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines := agg.Clear(r.Context())
	writeJSON(w, http.StatusOK, newCartResponse(lines, h.taxRate))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req entity.Product
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		h.log.Infof("Product %s created by UserID=%s", created.ID, claims.UserID)
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		h.log.Infof("Product %s deleted by UserID=%s", id, claims.UserID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps domain and repository errors to a status code. Server-side
// failures are logged and their detail is not sent to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, entity.ErrInvalidSelection),
		errors.Is(err, entity.ErrInvalidProduct),
		errors.Is(err, entity.ErrInvalidQuery),
		errors.Is(err, service.ErrEmptySession):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

// pathParam returns the decoded chi URL parameter. chi matches against the
// raw path when the request had escaped characters, so the value is
// unescaped here in that case.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
