package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/view"
)

type OrderHandler struct {
	store    CartStore
	hydrator view.Hydrator
	orders   view.OrderSubmitter
	timeout  time.Duration
}

func NewOrderHandler(store CartStore, hydrator view.Hydrator, orders view.OrderSubmitter, timeout time.Duration) *OrderHandler {
	return &OrderHandler{store: store, hydrator: hydrator, orders: orders, timeout: timeout}
}

// PlaceOrder hydrates the current cart and submits it with the posted contact form.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var form domain.ContactForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	page := view.NewCartPage(h.hydrator, h.store, h.orders)
	defer page.Close()
	if _, err := page.Load(ctx); err != nil {
		handleError(w, r, err)
		return
	}

	conf, err := page.PlaceOrder(ctx, form)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, conf)
}
