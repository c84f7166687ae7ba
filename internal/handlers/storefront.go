package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/alextreichler/flowershop/internal/clientstate"
	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/models"
	"github.com/alextreichler/flowershop/internal/search"
	"github.com/alextreichler/flowershop/internal/store"
)

// ShopHandler serves the public catalog, the cart and the language switch.
type ShopHandler struct {
	Store        *store.Store
	SessionStore sessions.Store
	Matcher      *search.Matcher
	Bundle       i18n.Bundle
}

type productView struct {
	models.Product
	EffectivePrice int `json:"effective_price"`
}

func viewProduct(p models.Product) productView {
	return productView{Product: p, EffectivePrice: p.EffectivePrice()}
}

func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)
	lang := requestLang(st, r)

	products, err := h.Store.ListProducts(r.Context(), true)
	if err != nil {
		slog.Error("Failed to list products", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return
	}
	products = h.Matcher.FilterProducts(products, r.URL.Query().Get("q"))

	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, viewProduct(p))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *ShopHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)
	lang := requestLang(st, r)

	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, lang, "error.invalid_request")
		return
	}
	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil || !p.Available {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Error("Failed to get product", "id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, lang, "error.server")
			return
		}
		respondWithError(w, http.StatusNotFound, lang, "error.not_found")
		return
	}
	respondWithJSON(w, http.StatusOK, viewProduct(*p))
}

func (h *ShopHandler) ListFlowers(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)
	lang := requestLang(st, r)

	flowers, err := h.Store.ListFlowers(r.Context(), true)
	if err != nil {
		slog.Error("Failed to list flowers", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return
	}
	respondWithJSON(w, http.StatusOK, h.Matcher.FilterFlowers(flowers, r.URL.Query().Get("q")))
}

type publicSettings struct {
	ShopOpen        bool              `json:"shop_open"`
	DeliveryEnabled bool              `json:"delivery_enabled"`
	ShopName        string            `json:"shop_name"`
	Tagline         string            `json:"tagline"`
	Phone           string            `json:"phone"`
	Address         string            `json:"address"`
	Instagram       string            `json:"instagram"`
	Content         map[string]string `json:"content"`
}

// PublicSettings exposes branding, the shop switches and only the content
// blocks that are both enabled and filled in.
func (h *ShopHandler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)
	lang := requestLang(st, r)

	s, err := h.Store.CurrentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return
	}
	respondWithJSON(w, http.StatusOK, publicSettings{
		ShopOpen:        s.ShopOpen,
		DeliveryEnabled: s.DeliveryEnabled,
		ShopName:        s.ShopName,
		Tagline:         s.Tagline,
		Phone:           s.Phone,
		Address:         s.Address,
		Instagram:       s.Instagram,
		Content:         s.VisibleContent(),
	})
}

type langRequest struct {
	Lang string `json:"lang"`
}

func (h *ShopHandler) GetLang(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)
	respondWithJSON(w, http.StatusOK, langRequest{Lang: requestLang(st, r)})
}

func (h *ShopHandler) SetLang(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)

	var req langRequest
	if err := decodeJSON(r, &req); err != nil || !i18n.IsSupported(req.Lang) {
		respondWithError(w, http.StatusBadRequest, requestLang(st, r), "error.invalid_request")
		return
	}
	st.Set(clientstate.LangKey, req.Lang)
	if !saveState(st, r, w, req.Lang) {
		return
	}
	respondWithJSON(w, http.StatusOK, req)
}

// Strings returns the whole string table for one language.
func (h *ShopHandler) Strings(w http.ResponseWriter, r *http.Request) {
	lang := r.PathValue("lang")
	if !i18n.IsSupported(lang) {
		respondWithError(w, http.StatusNotFound, i18n.English, "error.not_found")
		return
	}
	respondWithJSON(w, http.StatusOK, h.Bundle.Strings(lang))
}

func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
