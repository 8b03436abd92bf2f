package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "20-M". With a redis client the counters are shared across instances.
func RateLimit(rate string, client *redis.Client) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "rlqty:limiter"})
		if err != nil {
			return nil, fmt.Errorf("create rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, parsed)), nil
}
