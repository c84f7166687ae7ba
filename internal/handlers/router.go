package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Routes groups the handlers served by the shop.
type Routes struct {
	Shop      *ShopHandler
	Orders    *OrderHandler
	Admin     *AdminHandler
	UploadDir string
}

// Handler builds the mux and wraps it in the middleware chain.
func (rt *Routes) Handler() http.Handler {
	mux := http.NewServeMux()

	// Uploaded images
	fileServer := http.FileServer(http.Dir(rt.UploadDir))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads", fileServer))

	mux.HandleFunc("GET /health", Health)

	// Storefront
	mux.HandleFunc("GET /api/products", rt.Shop.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", rt.Shop.GetProduct)
	mux.HandleFunc("GET /api/flowers", rt.Shop.ListFlowers)
	mux.HandleFunc("GET /api/settings", rt.Shop.PublicSettings)
	mux.HandleFunc("GET /api/lang", rt.Shop.GetLang)
	mux.HandleFunc("PUT /api/lang", rt.Shop.SetLang)
	mux.HandleFunc("GET /api/i18n/{lang}", rt.Shop.Strings)

	// Cart
	mux.HandleFunc("GET /api/cart", rt.Shop.GetCart)
	mux.HandleFunc("POST /api/cart/items", rt.Shop.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{id}", rt.Shop.SetItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", rt.Shop.AdjustItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", rt.Shop.RemoveItem)
	mux.HandleFunc("DELETE /api/cart", rt.Shop.ClearCart)

	// Orders
	mux.HandleFunc("POST /api/orders", rt.Orders.SubmitOrder)

	// Admin login is always reachable
	mux.HandleFunc("GET /admin/login", rt.Admin.LoginPage)
	mux.HandleFunc("POST /api/admin/login", rt.Admin.Login)
	mux.HandleFunc("POST /api/admin/logout", rt.Admin.Logout)

	// Protected Routes
	gate := func(fn http.HandlerFunc) http.Handler { return rt.Admin.AccessGate(fn) }
	mux.Handle("GET /admin", gate(rt.Admin.Dashboard))
	mux.Handle("GET /api/admin/stats", gate(rt.Admin.Stats))

	mux.Handle("GET /api/admin/products", gate(rt.Admin.ListProducts))
	mux.Handle("POST /api/admin/products", gate(rt.Admin.CreateProduct))
	mux.Handle("POST /api/admin/products/import", gate(rt.Admin.ImportProducts))
	mux.Handle("GET /api/admin/products/{id}", gate(rt.Admin.GetProduct))
	mux.Handle("PUT /api/admin/products/{id}", gate(rt.Admin.UpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", gate(rt.Admin.DeleteProduct))

	mux.Handle("GET /api/admin/flowers", gate(rt.Admin.ListFlowers))
	mux.Handle("POST /api/admin/flowers", gate(rt.Admin.CreateFlower))
	mux.Handle("GET /api/admin/flowers/{id}", gate(rt.Admin.GetFlower))
	mux.Handle("PUT /api/admin/flowers/{id}", gate(rt.Admin.UpdateFlower))
	mux.Handle("DELETE /api/admin/flowers/{id}", gate(rt.Admin.DeleteFlower))

	mux.Handle("GET /api/admin/settings", gate(rt.Admin.GetSettings))
	mux.Handle("PUT /api/admin/settings", gate(rt.Admin.SaveSettings))
	mux.Handle("PATCH /api/admin/settings/shop-open", gate(rt.Admin.SetShopOpen))
	mux.Handle("PATCH /api/admin/settings/delivery", gate(rt.Admin.SetDeliveryEnabled))

	mux.Handle("POST /api/admin/images", gate(rt.Admin.UploadImage))

	// Unknown admin paths are gated too, so they reveal nothing to anonymous callers.
	mux.Handle("/admin/", gate(http.NotFound))
	mux.Handle("/api/admin/", gate(http.NotFound))

	// Chain: RequestID -> RealIP -> Logger -> Recoverer -> Security Headers -> Mux
	return middleware.RequestID(
		middleware.RealIP(
			LoggingMiddleware(
				middleware.Recoverer(
					SecurityHeadersMiddleware(mux),
				),
			),
		),
	)
}
