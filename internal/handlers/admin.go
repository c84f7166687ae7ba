package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/flowershop/internal/auth"
	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/imaging"
	"github.com/alextreichler/flowershop/internal/store"
)

// AdminCookieName carries the signed admin session token.
const AdminCookieName = "admin_session"

const adminLoginPath = "/admin/login"

type AdminHandler struct {
	Store     *store.Store
	Codec     *auth.Codec
	Templates *TemplateCache
	Uploads   *imaging.Uploads
	Validate  *validator.Validate

	Password     string
	PasswordHash string
	CookieSecure bool
	CookieDomain string
}

func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	tmpl := h.Templates.Get("login.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	settings, err := h.Store.CurrentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load settings for login page", "error", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, map[string]interface{}{"ShopName": settings.ShopName}); err != nil {
		slog.Error("Failed to render login page", "error", err)
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}

	if !h.checkPassword(req.Password) {
		slog.Warn("Admin login failed", "ip", r.RemoteAddr)
		respondWithError(w, http.StatusUnauthorized, i18n.English, "error.unauthorized")
		return
	}

	token, err := h.Codec.Issue()
	if err != nil {
		slog.Error("Failed to issue admin token", "error", err)
		respondWithError(w, http.StatusInternalServerError, i18n.English, "error.server")
		return
	}

	http.SetCookie(w, h.cookie(token, int(auth.MaxAge.Seconds())))
	slog.Info("Admin login successful", "ip", r.RemoteAddr)
	respondWithJSON(w, http.StatusOK, successResponse{Success: true})
}

// checkPassword prefers the bcrypt hash when one is configured. With no
// password configured every attempt fails.
func (h *AdminHandler) checkPassword(password string) bool {
	if password == "" {
		return false
	}
	if h.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(password)) == nil
	}
	if h.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h.Password), []byte(password)) == 1
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie("", -1))
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		respondWithJSON(w, http.StatusOK, successResponse{Success: true})
		return
	}
	http.Redirect(w, r, adminLoginPath, http.StatusSeeOther)
}

func (h *AdminHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     AdminCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

// AccessGate lets a request through only when it carries a valid admin
// token. Everything else is sent to the login page.
func (h *AdminHandler) AccessGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(AdminCookieName)
		if err != nil || !h.Codec.Validate(c.Value) {
			slog.Info("AccessGate: not authenticated, redirecting to login", "path", r.URL.Path)
			http.Redirect(w, r, adminLoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		slog.Error("Failed to load dashboard stats", "error", err)
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}
	settings, err := h.Store.CurrentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		http.Error(w, "Error fetching settings", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("dashboard.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]interface{}{
		"Stats":    stats,
		"Settings": settings,
	}
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render dashboard", "error", err)
	}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		slog.Error("Failed to load dashboard stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, i18n.English, "error.server")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
