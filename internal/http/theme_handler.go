package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/theme"
)

type ThemeStore interface {
	Get(ctx context.Context) (theme.Theme, error)
	Set(ctx context.Context, t theme.Theme) error
	Toggle(ctx context.Context) (theme.Theme, error)
}

type ThemeHandler struct {
	store   ThemeStore
	timeout time.Duration
}

func NewThemeHandler(store ThemeStore, timeout time.Duration) *ThemeHandler {
	return &ThemeHandler{store: store, timeout: timeout}
}

type ThemeDTO struct {
	Theme theme.Theme `json:"theme"`
}

func (h *ThemeHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.store.Get(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ThemeDTO{Theme: t})
}

func (h *ThemeHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ThemeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	t, err := theme.Parse(string(req.Theme))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := h.store.Set(ctx, t); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ThemeDTO{Theme: t})
}

func (h *ThemeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	t, err := h.store.Toggle(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ThemeDTO{Theme: t})
}
