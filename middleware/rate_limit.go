package middleware

import (
	"html"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"debt_flow_app_go/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "debtflow_rate_limited_total",
	Help: "Requests rejected by a rate limiter, by limiter name.",
}, []string{"limiter"})

// RateLimitConfig configures a token bucket per client
type RateLimitConfig struct {
	// Name labels the rejection metric
	Name string
	// Requests is the burst size and the number of requests refilled per Window
	Requests int
	Window   time.Duration
	// KeyFunc picks the bucket; defaults to the client IP
	KeyFunc func(c echo.Context) string
	Message string
	// IdleTTL drops buckets unused for this long (default 10 minutes)
	IdleTTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	config   RateLimitConfig
	limit    rate.Limit
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter starts a limiter and its idle-bucket sweeper
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = 1
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}

	rl := &RateLimiter{
		config:   config,
		limit:    rate.Every(config.Window / time.Duration(config.Requests)),
		visitors: make(map[string]*visitor),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Close stops the sweeper
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// reserve takes a token for key, or reports how long until one is free
func (rl *RateLimiter) reserve(key string) (ok bool, wait time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.config.Requests)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects requests over the limit with 429 and Retry-After
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rl.config.KeyFunc(c)
			ok, wait := rl.reserve(key)
			if ok {
				return next(c)
			}

			rateLimited.WithLabelValues(rl.config.Name).Inc()
			logger.FromContext(c.Request().Context()).Info("rate limited",
				zap.String("limiter", rl.config.Name),
				zap.Duration("retry_after", wait),
			)
			retry := int(math.Ceil(wait.Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
			if IsHTMX(c) {
				return c.HTML(http.StatusTooManyRequests, `<div class="alert alert-error" role="alert">`+html.EscapeString(rl.config.Message)+`</div>`)
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
		}
	}
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-rl.config.IdleTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// SessionOrIP keys a limiter by browser session, falling back to the IP
func SessionOrIP(c echo.Context) string {
	if id := SessionID(c); id != "" {
		return "session:" + id
	}
	return "ip:" + c.RealIP()
}
