package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"task-board.com/task-board/internal/constants"
)

type window struct {
	count int
	start time.Time
}

// RateLimiter counts requests per caller in fixed windows. Callers are keyed
// by the X-User-Id header, or by address when the header is absent.
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	swept   time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records one request for key. When the caller is over the limit it
// returns false and how long until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.period {
		for k, w := range l.windows {
			if now.Sub(w.start) > l.period {
				delete(l.windows, k)
			}
		}
		l.swept = now
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > l.period {
		w = &window{start: now}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false, w.start.Add(l.period).Sub(now)
	}
	w.count++
	return true, 0
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(constants.UserHeader)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			ok, wait := l.Allow(key)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
