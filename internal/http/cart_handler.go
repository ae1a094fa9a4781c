package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartStore is the store as the HTTP layer sees it.
type CartStore interface {
	view.CartStore
	Clear(ctx context.Context) error
}

type CartHandler struct {
	store    CartStore
	hydrator view.Hydrator
	orders   view.OrderSubmitter
	timeout  time.Duration
}

func NewCartHandler(store CartStore, hydrator view.Hydrator, orders view.OrderSubmitter, timeout time.Duration) *CartHandler {
	return &CartHandler{store: store, hydrator: hydrator, orders: orders, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the raw mapping in insertion order with its badge count.
type CartResponse struct {
	Items     []domain.CartEntry `json:"items"`
	ItemCount int                `json:"item_count"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page := view.NewCartPage(h.hydrator, h.store, h.orders)
	defer page.Close()
	if _, err := page.Load(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page.State())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.store.Add(ctx, req.ProductID, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusCreated)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	if err := h.store.SetQuantity(ctx, chi.URLParam(r, "product_id"), req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Remove(ctx, chi.URLParam(r, "product_id")); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Clear(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.store.Get(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]int{"count": c.TotalQuantity()})
}

// Events streams the badge count as server-sent events: once on connect, then after every
// cart change until the client goes away.
func (h *CartHandler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	log := zerolog.Ctx(r.Context())

	badge, err := view.NewBadge(r.Context(), h.store, view.WithBadgeLogger(*log))
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer badge.Close()

	updates := make(chan int, 1)
	stop := badge.Listen(func(n int) {
		// keep only the latest count
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- n:
		default:
		}
	})
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(n int) bool {
		if _, err := fmt.Fprintf(w, "event: count\ndata: {\"count\":%d}\n\n", n); err != nil {
			return false
		}
		if err := rc.Flush(); err != nil {
			log.Debug().Err(err).Msg("flush not supported")
		}
		return true
	}

	if !send(badge.Count()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-updates:
			if !send(n) {
				return
			}
		}
	}
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, status int) {
	c, err := h.store.Get(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, status, CartResponse{Items: c.Entries(), ItemCount: c.TotalQuantity()})
}
