package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/types"
	"github.com/localnerve/macroai/internal/utils"
	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds the limiter table between cleanups
const maxTrackedKeys = 10000

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows max requests per window for each user, or each client
// IP before authentication
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	window   time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewRateLimiter creates a limiter that refills max tokens per window
func NewRateLimiter(window time.Duration, max int, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Every(window / time.Duration(max)),
		burst:    max,
		window:   window,
		log:      log,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		if len(rl.visitors) >= maxTrackedKeys {
			rl.evictLocked(now)
		}
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, ok := UserID(c)
		if !ok {
			key = "ip:" + c.IP()
		}

		reservation := rl.getLimiter(key).ReserveN(rl.now(), 1)
		if !reservation.OK() {
			return rl.reject(c, key, rl.window)
		}
		if delay := reservation.DelayFrom(rl.now()); delay > 0 {
			reservation.CancelAt(rl.now())
			return rl.reject(c, key, delay)
		}
		return c.Next()
	}
}

// AuthFailures limits rejected credentials per client IP. Only requests the
// downstream chain fails as unauthorized spend a token; once the bucket is
// empty the client is refused before its token is checked again.
func (rl *RateLimiter) AuthFailures() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "authfail:ip:" + c.IP()
		lim := rl.getLimiter(key)

		now := rl.now()
		if lim.TokensAt(now) < 1 {
			reservation := lim.ReserveN(now, 1)
			if !reservation.OK() {
				return rl.reject(c, key, rl.window)
			}
			delay := reservation.DelayFrom(now)
			reservation.CancelAt(now)
			return rl.reject(c, key, delay)
		}

		err := c.Next()
		if types.IsKind(err, types.KindUnauthorized) {
			lim.AllowN(rl.now(), 1)
		}
		return err
	}
}

func (rl *RateLimiter) reject(c *fiber.Ctx, key string, retryAfter time.Duration) error {
	rl.log.Warn("Rate limit exceeded", "key", key, "path", c.Path(), "method", c.Method())
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	return utils.ErrorResponse(c, "Too many requests, please try again later", fiber.StatusTooManyRequests, "rate_limit")
}

// Cleanup drops limiters idle for longer than the window
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.evictLocked(rl.now())
}

func (rl *RateLimiter) evictLocked(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until stop is closed
func (rl *RateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
