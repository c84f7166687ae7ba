package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"

	"github.com/alextreichler/flowershop/internal/auth"
	"github.com/alextreichler/flowershop/internal/config"
	"github.com/alextreichler/flowershop/internal/handlers"
	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/imaging"
	"github.com/alextreichler/flowershop/internal/notify"
	"github.com/alextreichler/flowershop/internal/order"
	"github.com/alextreichler/flowershop/internal/search"
	"github.com/alextreichler/flowershop/internal/store"
)

func main() {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	// Using TextHandler for console readability
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run Migrations
	if err := db.Migrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 3. Client state cookie (cart, language, cooldown)
	hashKey, blockKey := cfg.SessionKeys()
	sessionStore := sessions.NewCookieStore(hashKey, blockKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	sessionStore.Options.MaxAge = 30 * 24 * 60 * 60
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(nil, "templates"); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 5. Order notifications
	var notifier notify.Notifier = notify.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID)
	if cfg.EmailEnabled() {
		notifier = &notify.Multi{
			Primary:     notifier,
			Secondaries: []notify.Notifier{notify.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.OrderEmailTo)},
		}
		slog.Info("Order copies will be emailed", "to", cfg.OrderEmailTo)
	}
	orders, err := order.NewService(notifier, db)
	if err != nil {
		slog.Error("Failed to initialize order service", "error", err)
		os.Exit(1)
	}

	codec, err := auth.NewCodec([]byte(cfg.AdminSessionSecret))
	if err != nil {
		slog.Error("Failed to initialize admin sessions", "error", err)
		os.Exit(1)
	}

	// 6. Setup Handlers
	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	routes := &handlers.Routes{
		Shop: &handlers.ShopHandler{
			Store:        db,
			SessionStore: sessionStore,
			Matcher:      search.Default(),
			Bundle:       i18n.Default(),
		},
		Orders: &handlers.OrderHandler{
			Store:        db,
			SessionStore: sessionStore,
			Orders:       orders,
			// Double-submit guard for the order form
			Limiter: handlers.NewRateLimiter(ctx, 3*time.Second, nil),
		},
		Admin: &handlers.AdminHandler{
			Store:        db,
			Codec:        codec,
			Templates:    templates,
			Uploads:      &imaging.Uploads{Dir: cfg.UploadDir, URLPrefix: "/uploads/"},
			Validate:     order.NewValidator(),
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		UploadDir: cfg.UploadDir,
	}

	// 7. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-stop

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
