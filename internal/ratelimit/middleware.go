package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Middleware enforces limit per client IP on the wrapped routes.
func Middleware(l *Limiter, limit Limit) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := l.Check(c.Request().Context(), limit, c.RealIP())

			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit.Max, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if !d.Allowed {
				retryAfter := int(d.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":      "Слишком много запросов, попробуйте позже",
					"code":       "RATE_LIMITED",
					"retryAfter": retryAfter,
				})
			}
			return next(c)
		}
	}
}
