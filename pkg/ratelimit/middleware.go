package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/simple-workspace/pkg/client"
	"github.com/tendant/simple-workspace/pkg/errors"
	"github.com/tendant/simple-workspace/pkg/response"
)

// Config holds the rate limiting knobs. Separate limits apply globally,
// per client IP, per authenticated account, and to the admin surface.
type Config struct {
	GlobalEnabled    bool
	GlobalBurst      int
	GlobalRefillRate float64

	PerIPEnabled    bool
	PerIPBurst      int
	PerIPRefillRate float64

	PerAccountEnabled    bool
	PerAccountBurst      int
	PerAccountRefillRate float64

	// Admin endpoints get their own, stricter per-IP limit.
	AdminEnabled    bool
	AdminBurst      int
	AdminRefillRate float64

	BucketTTL time.Duration
}

// DefaultConfig allows 1000 req/min globally, 100 req/min per IP,
// 200 req/min per account, and 30 req/min per IP on /admin routes
func DefaultConfig() *Config {
	return &Config{
		GlobalEnabled:    true,
		GlobalBurst:      1000,
		GlobalRefillRate: 1000.0 / 60.0,

		PerIPEnabled:    true,
		PerIPBurst:      100,
		PerIPRefillRate: 100.0 / 60.0,

		PerAccountEnabled:    true,
		PerAccountBurst:      200,
		PerAccountRefillRate: 200.0 / 60.0,

		AdminEnabled:    true,
		AdminBurst:      30,
		AdminRefillRate: 30.0 / 60.0,

		BucketTTL: 1 * time.Hour,
	}
}

// Middleware enforces the configured limits ahead of the router
type Middleware struct {
	config     *Config
	global     *Bucket
	perIP      *KeyedLimiter
	perAccount *KeyedLimiter
	admin      *KeyedLimiter
}

// NewMiddleware creates a rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{config: config}
	if config.GlobalEnabled {
		m.global = NewBucket(config.GlobalBurst, config.GlobalRefillRate)
	}
	if config.PerIPEnabled {
		m.perIP = NewKeyedLimiter(config.PerIPBurst, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.PerAccountEnabled {
		m.perAccount = NewKeyedLimiter(config.PerAccountBurst, config.PerAccountRefillRate, config.BucketTTL)
	}
	if config.AdminEnabled {
		m.admin = NewKeyedLimiter(config.AdminBurst, config.AdminRefillRate, config.BucketTTL)
	}

	return m
}

// Handler enforces the connection-scoped limits: global, per client IP,
// and the stricter admin-surface limit. It runs ahead of authentication.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.global != nil && !m.global.Allow() {
			m.reject(w, r, "global")
			return
		}

		ip := client.ClientIP(r)
		if m.perIP != nil && ip != "" && !m.perIP.Allow(ip) {
			m.reject(w, r, "ip")
			return
		}

		if m.admin != nil && strings.HasPrefix(r.URL.Path, "/admin") {
			if !m.admin.Allow(ip) {
				m.reject(w, r, "admin")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// AccountHandler enforces the per-account limit. It must be installed
// after the authentication stage, which attaches the caller identity the
// bucket is keyed on; unauthenticated requests pass through.
func (m *Middleware) AccountHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.perAccount != nil {
			if user, ok := client.FromContext(r.Context()); ok {
				if !m.perAccount.Allow(user.AccountID.String()) {
					m.reject(w, r, "account")
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", client.ClientIP(r),
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Retry-After", "60")
	response.ErrStatus(w, r, http.StatusTooManyRequests, errors.ErrCodeRateLimited,
		"too many requests, please try again later")
}
