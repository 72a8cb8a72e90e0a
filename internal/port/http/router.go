package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/metrics"
)

type RouterConfig struct {
	JWTSecret    string
	SecureCookie bool
}

// NewRouter mounts the storefront API. m may be nil, in which case /metrics
// is not served.
func NewRouter(h *Handler, cfg RouterConfig, log logger.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log, m))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/featured", h.FeaturedProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(CartSession(cfg.SecureCookie))

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/lines", h.AddLine)
			r.Patch("/cart/lines/{key}", h.UpdateLine)
			r.Delete("/cart/lines/{key}", h.RemoveLine)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(JWTAuth(cfg.JWTSecret, log))
			r.Use(RequireRole(RoleAdmin))

			r.Post("/products", h.CreateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
		})
	})

	return r
}
