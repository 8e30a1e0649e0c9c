package ratelimit

import (
	"fmt"

	"callbridge/internal/apierrors"
	"callbridge/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware limiting requests per client IP for
// the named route
func (s *Service) Middleware(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Enabled() {
			c.Next()
			return
		}

		ctx := observability.WithFields(c.Request.Context(),
			observability.Field{Key: "route", Value: route},
		)
		result, err := s.Check(ctx, route+":"+c.ClientIP())
		if err != nil {
			apierrors.RespondWithError(c, err)
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", (result.RetryAfterMs+999)/1000))
			s.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "retry_after_ms", Value: result.RetryAfterMs},
			), "rate limit exceeded")
			apierrors.RespondWithError(c, apierrors.TooManyRequests("Too many calls started, please retry later"))
			return
		}

		c.Next()
	}
}
