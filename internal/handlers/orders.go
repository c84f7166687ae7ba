package handlers

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/alextreichler/flowershop/internal/cart"
	"github.com/alextreichler/flowershop/internal/clientstate"
	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/order"
	"github.com/alextreichler/flowershop/internal/store"
)

type OrderHandler struct {
	Store        *store.Store
	SessionStore sessions.Store
	Orders       *order.Service
	// Limiter, when set, rejects a second valid order from the same host
	// within its window.
	Limiter *RateLimiter
	// Now defaults to time.Now.
	Now func() time.Time
}

func (h *OrderHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// SubmitOrder forwards a product or bouquet order to the shop. Bouquet
// orders are subject to the per-browser cooldown and empty the cart on
// success.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	st := clientstate.Open(h.SessionStore, r)
	lang := requestLang(st, r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, lang, "error.invalid_request")
		return
	}
	o, err := order.Parse(body)
	if err != nil {
		h.orderFailure(w, lang, err)
		return
	}

	settings, err := h.Store.CurrentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return
	}

	var cooldown *cart.Cooldown
	if o.Kind() == order.TypeBouquet {
		cooldown = cart.NewCooldown(st).WithClock(h.now)
		if !cooldown.Allowed() {
			respondWithJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:      i18n.T("error.cooldown", lang),
				RetryAfter: cooldown.SecondsLeft(),
			})
			return
		}
	}

	host := clientHost(r)
	if h.Limiter != nil {
		if left, ok := h.Limiter.Reserve(host); !ok {
			slog.Warn("Duplicate order rejected", "ip", host)
			respondWithJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:      i18n.T("error.duplicate", lang),
				RetryAfter: int(math.Ceil(left.Seconds())),
			})
			return
		}
	}

	if err := h.Orders.Submit(r.Context(), o, settings.State()); err != nil {
		if h.Limiter != nil {
			h.Limiter.Release(host)
		}
		h.orderFailure(w, lang, err)
		return
	}

	if cooldown != nil {
		cooldown.Start()
		cart.Load(st, settings.State(), nil).Clear()
	}
	if !saveState(st, r, w, lang) {
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: i18n.T("order.success", lang)})
}

func (h *OrderHandler) orderFailure(w http.ResponseWriter, lang string, err error) {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{
			Error:  i18n.T("error.validation", lang),
			Fields: verr.Fields,
		})
	case errors.Is(err, order.ErrShopClosed):
		respondWithError(w, http.StatusBadRequest, lang, "error.shop_closed")
	case errors.Is(err, order.ErrNotConfigured):
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
	default:
		respondWithError(w, http.StatusInternalServerError, lang, "error.order_failed")
	}
}
