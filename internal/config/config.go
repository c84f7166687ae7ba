package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/hkdf"
)

type Config struct {
	Port         string
	DatabaseURL  string
	UploadDir    string
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	// Admin access
	AdminPassword      string
	AdminPasswordHash  string
	AdminSessionSecret string

	// Order notifications
	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	OrderEmailTo string
}

// LoadConfig reads the environment, after merging a .env file from the
// working directory when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "./flowershop.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnv("COOKIE_SECURE", "true") == "true",

		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash:  os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminSessionSecret: os.Getenv("ADMIN_SESSION_SECRET"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		OrderEmailTo: os.Getenv("ORDER_EMAIL_TO"),
	}

	// Session Key (cart, language and cooldown cookie)
	sessionKeyStr := os.Getenv("SESSION_KEY")
	if sessionKeyStr == "" {
		slog.Warn("SESSION_KEY environment variable not set. Generating a random key for development. Carts will be lost on restart. PLEASE SET SESSION_KEY IN PRODUCTION!")
		cfg.SessionKey = generateRandomBytes(32)
	} else {
		decodedKey, err := base64.StdEncoding.DecodeString(sessionKeyStr)
		if err != nil || len(decodedKey) < 32 {
			slog.Warn("SESSION_KEY is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE SESSION_KEY IN PRODUCTION!")
			cfg.SessionKey = generateRandomBytes(32)
		} else {
			cfg.SessionKey = decodedKey
		}
	}

	// Admin session secret (signs admin_session tokens)
	if cfg.AdminSessionSecret == "" {
		slog.Warn("ADMIN_SESSION_SECRET environment variable not set. Generating a random secret for development. Admin sessions will be invalid on restart. PLEASE SET ADMIN_SESSION_SECRET IN PRODUCTION!")
		cfg.AdminSessionSecret = hex.EncodeToString(generateRandomBytes(32))
	}

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		slog.Warn("Neither ADMIN_PASSWORD nor ADMIN_PASSWORD_HASH is set. Admin login is disabled.")
	}

	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		slog.Warn("Telegram is not configured. Orders will be rejected until TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set.")
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8080"
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		slog.Error("Invalid SMTP_PORT environment variable. Falling back to default.", "SMTP_PORT", os.Getenv("SMTP_PORT"))
		smtpPort = 587
	}
	cfg.SMTPPort = smtpPort

	return cfg, nil
}

// EmailEnabled reports whether order copies should also be mailed.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.OrderEmailTo != ""
}

// SessionKeys derives the client state cookie keys from SessionKey: a
// 32-byte HMAC key that signs the cookie and a 32-byte AES-256 key that
// encrypts it.
func (c *Config) SessionKeys() (hashKey, blockKey []byte) {
	return deriveKey(c.SessionKey, "flowershop session hash"), deriveKey(c.SessionKey, "flowershop session block")
}

func deriveKey(secret []byte, info string) []byte {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		// hkdf only fails past 255 blocks of output
		panic(err)
	}
	return key
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// generateRandomBytes generates a random byte slice of specified length
// using crypto/rand.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
