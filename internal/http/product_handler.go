package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/view"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog view.Catalog
	cart    view.CartStore
	timeout time.Duration
}

func NewProductHandler(c view.Catalog, cart view.CartStore, timeout time.Duration) *ProductHandler {
	return &ProductHandler{catalog: c, cart: cart, timeout: timeout}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	opts := catalog.ListOptions{
		Sort:     domain.SortOrder(q.Get("sort")),
		Category: q.Get("category"),
	}
	if !opts.Sort.Valid() {
		respondError(w, r, http.StatusBadRequest, "invalid_sort", "sort must be one of newest, oldest, price-high, price-low, all", "")
		return
	}

	list := view.NewProductList(h.catalog, opts)
	defer list.Close()
	if _, err := list.Load(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, list.State())
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	detail := view.NewProductDetail(h.catalog, h.cart, chi.URLParam(r, "id"))
	defer detail.Close()
	if _, err := detail.Load(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, detail.State())
}
