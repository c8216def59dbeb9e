package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/service-marketplace/internal/http/response"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 60 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit("all", limit, period, func(*gin.Context) bool { return true })
}

// MutationRateLimit - более строгий лимит только для изменяющих запросов.
func MutationRateLimit(limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit("mutation", limit, period, func(c *gin.Context) bool {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return false
		}
		return true
	})
}

func rateLimit(prefix string, limit int64, period time.Duration, applies func(*gin.Context) bool) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(
		memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix, CleanUpInterval: limiter.DefaultCleanUpInterval}),
		limiter.Rate{Period: period, Limit: limit},
	)

	return func(c *gin.Context) {
		if !applies(c) {
			c.Next()
			return
		}

		lctx, err := instance.Get(c, c.ClientIP())
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Response{
				Success: false,
				Message: "слишком много запросов, попробуйте позже",
			})
			return
		}

		c.Next()
	}
}
