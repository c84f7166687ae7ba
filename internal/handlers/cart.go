package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alextreichler/flowershop/internal/cart"
	"github.com/alextreichler/flowershop/internal/clientstate"
	"github.com/alextreichler/flowershop/internal/models"
	"github.com/alextreichler/flowershop/internal/store"
)

type cartView struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice int               `json:"total_price"`
}

func viewCart(c *cart.Cart) cartView {
	return cartView{Items: c.Items(), TotalItems: c.TotalItems(), TotalPrice: c.TotalPrice()}
}

// loadCart opens the client state and the cart bound to the current shop
// switches.
func (h *ShopHandler) loadCart(w http.ResponseWriter, r *http.Request) (*clientstate.Session, *cart.Cart, string, bool) {
	st := clientstate.Open(h.SessionStore, r)
	lang := requestLang(st, r)

	settings, err := h.Store.CurrentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return nil, nil, lang, false
	}
	flowers, err := h.Store.ListFlowers(r.Context(), true)
	if err != nil {
		slog.Error("Failed to list flowers", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return nil, nil, lang, false
	}
	return st, cart.Load(st, settings.State(), cart.NewCatalog(flowers)), lang, true
}

// GetCart also writes back the cookie when lines for withdrawn flowers were
// dropped on load.
func (h *ShopHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	st, c, lang, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	if !saveState(st, r, w, lang) {
		return
	}
	respondWithJSON(w, http.StatusOK, viewCart(c))
}

type addItemRequest struct {
	FlowerID int `json:"flower_id"`
}

// AddItem puts one stem of a flower in the cart.
func (h *ShopHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	st, c, lang, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil || req.FlowerID <= 0 {
		respondWithError(w, http.StatusBadRequest, lang, "error.invalid_request")
		return
	}

	f, err := h.Store.GetFlower(r.Context(), req.FlowerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, lang, "error.not_found")
			return
		}
		slog.Error("Failed to get flower", "id", req.FlowerID, "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return
	}
	if !f.Available {
		respondWithError(w, http.StatusConflict, lang, "error.unavailable")
		return
	}

	if err := c.Add(*f); err != nil {
		key := "error.shop_closed"
		if errors.Is(err, cart.ErrFull) {
			key = "error.cart_full"
		}
		respondWithError(w, http.StatusConflict, lang, key)
		return
	}
	if !saveState(st, r, w, lang) {
		return
	}
	respondWithJSON(w, http.StatusOK, viewCart(c))
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
	Delta    *int `json:"delta"`
}

// SetItem replaces the quantity of a cart line; zero or less removes it.
func (h *ShopHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, func(c *cart.Cart, id int, req quantityRequest) bool {
		if req.Quantity == nil {
			return false
		}
		c.SetQuantity(id, *req.Quantity)
		return true
	})
}

// AdjustItem adds delta to the quantity of a cart line.
func (h *ShopHandler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, func(c *cart.Cart, id int, req quantityRequest) bool {
		if req.Delta == nil {
			return false
		}
		c.AdjustQuantity(id, *req.Delta)
		return true
	})
}

func (h *ShopHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, func(c *cart.Cart, id int, _ quantityRequest) bool {
		c.Remove(id)
		return true
	})
}

func (h *ShopHandler) changeItem(w http.ResponseWriter, r *http.Request, apply func(*cart.Cart, int, quantityRequest) bool) {
	st, c, lang, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, lang, "error.invalid_request")
		return
	}

	var req quantityRequest
	if r.Method != http.MethodDelete {
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, lang, "error.invalid_request")
			return
		}
	}
	if !apply(c, id, req) {
		respondWithError(w, http.StatusBadRequest, lang, "error.invalid_request")
		return
	}
	if !saveState(st, r, w, lang) {
		return
	}
	respondWithJSON(w, http.StatusOK, viewCart(c))
}

func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st, c, lang, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	c.Clear()
	if !saveState(st, r, w, lang) {
		return
	}
	respondWithJSON(w, http.StatusOK, viewCart(c))
}
