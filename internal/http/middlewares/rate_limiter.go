package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "todo-service.com/todo-service/internal/errors"
)

// windowLimiter counts requests per key in fixed windows.
type windowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*requestWindow
	swept   time.Time
	now     func() time.Time
}

type requestWindow struct {
	start time.Time
	count int
}

// allow records one request for key and returns how long the caller must wait
// when the window is exhausted.
func (l *windowLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > l.window {
		for k, w := range l.windows {
			if now.Sub(w.start) > l.window {
				delete(l.windows, k)
			}
		}
		l.swept = now
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > l.window {
		w = &requestWindow{start: now}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// RateLimiter allows limit requests per window for each owner, or per client IP
// when the request carries no owner.
func RateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	l := &windowLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*requestWindow),
		now:     time.Now,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if owner := Owner(c); owner != "" {
				key = "owner:" + owner
			}

			ok, wait := l.allow(key)
			if !ok {
				seconds := int(wait.Round(time.Second) / time.Second)
				c.Response().Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
				return apperrors.ErrRateLimited
			}
			return next(c)
		}
	}
}
