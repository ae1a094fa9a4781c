package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/admin"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxUploadSize = 10 << 20 // 10MB

type AdminHandler struct {
	products admin.ProductClient
	orders   admin.OrderClient
	timeout  time.Duration
}

func NewAdminHandler(products admin.ProductClient, orders admin.OrderClient, timeout time.Duration) *AdminHandler {
	return &AdminHandler{products: products, orders: orders, timeout: timeout}
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	panel := admin.NewProductPanel(h.products, *zerolog.Ctx(r.Context()))
	defer panel.Close()
	if _, err := panel.Load(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, panel.State())
}

// CreateProduct accepts the admin form as multipart data with an optional "picture" file.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid multipart form", err.Error())
		return
	}

	np, err := parseNewProduct(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	panel := admin.NewProductPanel(h.products, *zerolog.Ctx(r.Context()))
	defer panel.Close()
	created, err := panel.Create(ctx, np)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	panel := admin.NewProductPanel(h.products, *zerolog.Ctx(r.Context()))
	defer panel.Close()
	if err := panel.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type OrdersResponse struct {
	Status  string         `json:"status"`
	Orders  []domain.Order `json:"data"`
	Summary admin.Summary  `json:"summary"`
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	panel := admin.NewOrderPanel(h.orders, *zerolog.Ctx(r.Context()))
	defer panel.Close()
	if _, err := panel.Load(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	st := panel.State()
	respondJSON(w, r, http.StatusOK, OrdersResponse{Status: st.Status, Orders: st.Data, Summary: panel.Summary()})
}

func (h *AdminHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	panel := admin.NewOrderPanel(h.orders, *zerolog.Ctx(r.Context()))
	defer panel.Close()
	if err := panel.Complete(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseNewProduct(r *http.Request) (domain.NewProduct, error) {
	np := domain.NewProduct{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    strings.TrimSpace(r.FormValue("category")),
	}

	var err error
	if np.Price, err = parseNumber("price", r.FormValue("price")); err != nil {
		return np, err
	}
	if v := r.FormValue("Discounted_price"); strings.TrimSpace(v) != "" {
		d, err := parseNumber("Discounted_price", v)
		if err != nil {
			return np, err
		}
		np.DiscountedPrice = &d
	}
	if v := r.FormValue("ratings"); strings.TrimSpace(v) != "" {
		if np.Ratings, err = parseNumber("ratings", v); err != nil {
			return np, err
		}
	}

	file, header, err := r.FormFile("picture")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return np, nil
	case err != nil:
		return np, &domain.ValidationError{Field: "picture", Reason: err.Error()}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return np, &domain.ValidationError{Field: "picture", Reason: err.Error()}
	}
	np.Image = &domain.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}
	return np, nil
}

func parseNumber(field, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Reason: "must be a number"}
	}
	return f, nil
}
