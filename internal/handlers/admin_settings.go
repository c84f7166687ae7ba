package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/models"
)

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.CurrentSettings(r.Context())
	if err != nil {
		storeFailure(w, err, "Failed to load settings")
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// SaveSettings replaces the whole settings record.
func (h *AdminHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.SiteSettings
	if err := decodeJSON(r, &settings); err != nil {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	if err := h.Store.SaveSettings(r.Context(), &settings); err != nil {
		storeFailure(w, err, "Failed to save settings")
		return
	}
	slog.Info("Settings saved", "shop_open", settings.ShopOpen, "delivery_enabled", settings.DeliveryEnabled)
	respondWithJSON(w, http.StatusOK, settings)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *AdminHandler) SetShopOpen(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "shop_open", h.Store.SetShopOpen)
}

func (h *AdminHandler) SetDeliveryEnabled(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "delivery_enabled", h.Store.SetDeliveryEnabled)
}

func (h *AdminHandler) toggle(w http.ResponseWriter, r *http.Request, name string,
	set func(ctx context.Context, on bool) (*models.SiteSettings, error)) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil || req.Enabled == nil {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	settings, err := set(r.Context(), *req.Enabled)
	if err != nil {
		storeFailure(w, err, "Failed to update "+name)
		return
	}
	slog.Info("Shop switch changed", "switch", name, "enabled", *req.Enabled)
	respondWithJSON(w, http.StatusOK, settings)
}
