package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"personahub/api/internal/config"
)

// RateLimit is a fixed-window counter per client IP and route class,
// backed by redis. Redis being down fails open: limiting is a
// protection, not a dependency, and an outage must not take login with
// it.
func RateLimit(class string, cfg config.RateLimitConfig, redisClient *redis.Client, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rl:%s:%s", class, c.ClientIP())

		count, err := redisClient.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable, failing open")
			c.Next()
			return
		}
		if count == 1 {
			redisClient.Expire(c.Request.Context(), key, cfg.Window)
		}

		if count > int64(cfg.MaxAttempts) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}

		c.Next()
	}
}
