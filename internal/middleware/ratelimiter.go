package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter limits requests per client IP. Counters live in Redis when a
// client is given so every instance shares them.
func RateLimiter(rdb *redis.Client, perMinute int64) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  perMinute,
	}

	store := memory.NewStore()
	if rdb != nil {
		redisStore, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
			Prefix: "campustrack_limiter",
		})
		if err != nil {
			log.Printf("⚠️ Redis rate limit store unavailable, using memory: %v", err)
		} else {
			store = redisStore
		}
	}

	return ginlimiter.NewMiddleware(limiter.New(store, rate))
}
