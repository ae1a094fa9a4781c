// Package http exposes the storefront screens and the admin console as JSON endpoints.
package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/admin"
	"github.com/fjod/go_storefront/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Catalog is everything the handlers need from the remote catalog.
type Catalog interface {
	view.Catalog
	admin.ProductClient
	admin.OrderClient
}

type Deps struct {
	Catalog  Catalog
	Cart     CartStore
	Hydrator view.Hydrator
	Orders   view.OrderSubmitter
	Theme    ThemeStore
}

func NewRouter(d Deps, log zerolog.Logger, requestTimeout time.Duration) http.Handler {
	products := NewProductHandler(d.Catalog, d.Cart, requestTimeout)
	carts := NewCartHandler(d.Cart, d.Hydrator, d.Orders, requestTimeout)
	orders := NewOrderHandler(d.Cart, d.Hydrator, d.Orders, requestTimeout)
	themes := NewThemeHandler(d.Theme, requestTimeout)
	admins := NewAdminHandler(d.Catalog, d.Catalog, requestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// long-lived stream: no timeout, no compression
		r.Get("/cart/events", carts.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(middleware.Compress(5))

			r.Get("/products", products.ListProducts)
			r.Get("/products/{id}", products.GetProduct)

			r.Get("/cart", carts.GetCart)
			r.Delete("/cart", carts.ClearCart)
			r.Get("/cart/count", carts.Count)
			r.Post("/cart/items", carts.AddItem)
			r.Put("/cart/items/{product_id}", carts.UpdateQuantity)
			r.Delete("/cart/items/{product_id}", carts.RemoveItem)

			r.Post("/orders", orders.PlaceOrder)

			r.Get("/theme", themes.GetTheme)
			r.Put("/theme", themes.SetTheme)
			r.Post("/theme/toggle", themes.Toggle)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/products", admins.ListProducts)
				r.Post("/products", admins.CreateProduct)
				r.Delete("/products/{id}", admins.DeleteProduct)
				r.Get("/orders", admins.ListOrders)
				r.Post("/orders/{id}/complete", admins.CompleteOrder)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
