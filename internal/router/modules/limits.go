package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-content-auth/internal/container"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
)

// limit builds a rate limiter on Redis when available, otherwise in process.
// RATE_LIMIT_ENABLED=false turns every limiter into a pass-through.
func limit(max int, window time.Duration, key middleware.KeyFunc) gin.HandlerFunc {
	if !container.GetConfig().RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}
	var lim middleware.Limiter
	if rdb := container.GetRedis(); rdb != nil {
		lim = middleware.NewRedisLimiter(rdb, max, window)
	} else {
		lim = middleware.NewLocalLimiter(max, window)
	}
	return middleware.RateLimit(lim, key, nil)
}
