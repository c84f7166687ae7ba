package handlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// LoggingMiddleware logs the details of each HTTP request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)
		slog.Info("HTTP Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start),
			"ip", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Custom ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SecurityHeadersMiddleware adds standard security headers
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; script-src 'self' 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter lets one accepted request per client host through per window.
// It guards the order endpoint against double submits; a request that fails
// releases its reservation so the client can retry at once.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter whose cleanup goroutine stops with ctx.
// A nil now means time.Now.
func NewRateLimiter(ctx context.Context, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	rl := &RateLimiter{
		visitors: make(map[string]time.Time),
		window:   window,
		now:      now,
	}
	if window > 0 {
		go rl.cleanup(ctx)
	}
	return rl
}

// cleanup removes old entries to prevent memory leaks
func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := rl.now()
			rl.mu.Lock()
			for key, seen := range rl.visitors {
				if now.Sub(seen) > rl.window {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Reserve claims the window for key. When key is still inside an earlier
// window it reports the time left and false.
func (rl *RateLimiter) Reserve(key string) (time.Duration, bool) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if seen, ok := rl.visitors[key]; ok {
		if left := rl.window - now.Sub(seen); left > 0 {
			return left, false
		}
	}
	rl.visitors[key] = now
	return 0, true
}

// Release gives back a reservation whose request did not go through.
func (rl *RateLimiter) Release(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.visitors, key)
}

// clientHost is the caller's address without the port, so reconnecting does
// not change it. RealIP may already have replaced RemoteAddr with a bare IP.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
