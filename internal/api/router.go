package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/middleware"
)

// RouterConfig carries the optional pieces of the HTTP surface. Nil fields
// leave the matching routes or middleware out.
type RouterConfig struct {
	Analytics      *analytics.Handler
	Health         *health.Checker
	Metrics        *metrics.Metrics
	CORS           middleware.CORSConfig
	RateLimiter    *middleware.RateLimiter
	RequestTimeout time.Duration
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/texts", h.Texts)
	mux.HandleFunc("GET /api/v1/texts/{name}/words", h.Words)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/rules", h.Rules)
	mux.HandleFunc("POST /api/v1/rules/reload", h.ReloadRules)
	if cfg.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", cfg.Analytics.Stats)
	}
	if cfg.Health != nil {
		mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())
	}
	mux.HandleFunc("GET /{name}", h.Legacy)

	var handler http.Handler = mux
	if cfg.RequestTimeout > 0 {
		handler = middleware.Timeout(cfg.RequestTimeout)(handler)
	}
	corsCfg := cfg.CORS
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg = middleware.DefaultCORSConfig()
	}
	if cfg.RateLimiter != nil {
		handler = middleware.RateLimit(cfg.RateLimiter)(handler)
	}
	handler = middleware.CORS(corsCfg)(handler)
	handler = middleware.RequestID(handler)
	if cfg.Metrics != nil {
		handler = middleware.Metrics(cfg.Metrics)(handler)
	}
	return handler
}
