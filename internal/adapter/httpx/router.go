package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zibanoo/commerce-core/internal/adapter/httpx/middlewares"
	"github.com/zibanoo/commerce-core/internal/pkg/metrics"
)

// NewRouter wires the HTTP surface. The payment confirmation route is left
// unauthenticated on purpose: it is called by the gateway, not by users.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Identity)
	r.Use(m.Middleware)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/payments/confirm", h.ConfirmPayment)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireUser)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Post("/{id}/cancel", h.CancelOrder)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.ListCart)
			r.Post("/", h.AddCartLine)
			r.Delete("/{id}", h.RemoveCartLine)
		})

		r.Post("/coupons/validate", h.ValidateCoupon)
	})

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireUser, middlewares.RequireAdmin)

		r.Post("/orders/{id}/process", h.ProcessOrder)
		r.Post("/orders/{id}/ship", h.ShipOrder)
		r.Post("/orders/{id}/deliver", h.DeliverOrder)

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", h.ListPromotions)
			r.Post("/", h.CreatePromotion)
		})
	})

	return otelhttp.NewHandler(r, "commerce-core")
}
