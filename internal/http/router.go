package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/payment"
)

// Deps is everything the storefront API serves from.
type Deps struct {
	Products ProductLister
	Carts    CartFlow
	Checkout SessionCreator
	Verifier payment.Verifier
	Events   EventHandler
	Archive  EventRecorder
	Orders   OrderFinder
	Shipper  Shipper
	Health   HealthReporter

	Flow           domain.FlowOptions
	AdminToken     string
	SecureCookies  bool
	RequestTimeout time.Duration
	WebhookTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.WebhookTimeout <= 0 {
		d.WebhookTimeout = d.RequestTimeout
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	carts := NewCartHandler(d.Carts, d.Products, d.Flow, d.RequestTimeout, d.Logger)
	checkout := NewCheckoutHandler(d.Checkout, d.RequestTimeout, d.Logger)
	webhooks := NewWebhookHandler(d.Verifier, d.Events, d.Archive, d.WebhookTimeout, d.Logger)
	orders := NewOrdersHandler(d.Orders, d.Shipper, d.RequestTimeout, d.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/health", healthHandler(d.Health))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", carts.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(CartSession(d.SecureCookies))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)
				r.Post("/router", carts.SelectRouter)
				r.Post("/data-plan", carts.AddDataPlan)
				r.Post("/data-plan/skip", carts.SkipDataPlan)
				r.Put("/items/{product_id}", carts.UpdateQuantity)
				r.Delete("/items/{product_id}", carts.RemoveItem)
			})
			r.Post("/checkout", checkout.CreateSession)
		})

		r.Post("/webhooks/stripe", webhooks.Receive)
		r.Get("/orders/{session_id}", orders.GetOrder)

		if d.AdminToken != "" {
			r.With(AdminAuth(d.AdminToken)).Post("/admin/orders/{session_id}/ship", orders.MarkShipped)
		}
	})

	return otelhttp.NewHandler(r, "storefront")
}
