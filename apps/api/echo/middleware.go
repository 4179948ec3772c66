package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-learn/core/ratelimit"
)

// rateLimitMiddleware throttles the authenticated user. Must run after the JWT middleware.
func rateLimitMiddleware(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			userID, err := getContextUserID(ctx)
			if err != nil {
				return err
			}
			if !limiter.Allow(userID) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
