package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// StoreLimiter applies a fixed window rate to keys held in a limiter store
type StoreLimiter struct {
	limiter *limiter.Limiter
}

func newStoreLimiter(store limiter.Store, limit int, window time.Duration) *StoreLimiter {
	rate := limiter.Rate{Period: window, Limit: int64(limit)}
	return &StoreLimiter{limiter: limiter.New(store, rate)}
}

// NewRedisLimiter keeps window counters in Redis so limits hold across instances.
// It fails when the counter scripts cannot be loaded.
func NewRedisLimiter(client redisstore.Client, prefix string, limit int, window time.Duration) (*StoreLimiter, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   prefix + ":ratelimit",
		MaxRetry: limiter.DefaultMaxRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	return newStoreLimiter(store, limit, window), nil
}

// NewMemoryLimiter keeps counters in process, for single instance deployments
func NewMemoryLimiter(limit int, window time.Duration) *StoreLimiter {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "ratelimit",
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	return newStoreLimiter(store, limit, window)
}

// Allow implements Limiter
func (l *StoreLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	result, err := l.limiter.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}
	return Decision{
		Allowed:   !result.Reached,
		Limit:     int(result.Limit),
		Remaining: int(result.Remaining),
		ResetAt:   time.Unix(result.Reset, 0),
	}, nil
}

// RateLimit limits requests per client IP. Limiter failures let the request through.
func RateLimit(limiter Limiter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			apierrors.Respond(c, apierrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
