package client

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	axonetRedis "github.com/jaxron/axonet/middleware/redis"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/kwservices/xptracker/internal/redis"
	"github.com/kwservices/xptracker/internal/setup/client/interceptor/useragent"
	"github.com/kwservices/xptracker/internal/setup/config"
	"github.com/kwservices/xptracker/internal/setup/telemetry/logger"
	"go.uber.org/zap"
)

// StatsClients holds the HTTP clients used against the stats API.
type StatsClients struct {
	// Live serves level and medal lookups, which must never be cached.
	Live *client.Client
	// Resolve serves id resolution, whose responses are cached in Redis.
	Resolve *client.Client
}

// GetStatsClients constructs the HTTP clients for the stats API with a middleware chain
// for reliability. Only the resolve client caches responses.
func GetStatsClients(
	cfg *config.CommonConfig, redisManager *redis.Manager, zapLogger *zap.Logger, requestTimeout time.Duration,
) (*StatsClients, error) {
	redisClient, err := redisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		return nil, err
	}

	live := NewHTTPClient(zapLogger, requestTimeout,
		append(reliabilityChain(cfg), useragent.New(cfg.Stats.UserAgent))...)

	// The cache sits below singleflight so identical in-flight lookups share one remote call
	resolveChain := append(reliabilityChain(cfg),
		axonetRedis.New(redisClient, time.Duration(cfg.Stats.ResolveCacheTTL)*time.Second),
		useragent.New(cfg.Stats.UserAgent),
	)

	return &StatsClients{
		Live:    live,
		Resolve: NewHTTPClient(zapLogger, requestTimeout, resolveChain...),
	}, nil
}

// reliabilityChain returns fresh circuit breaker, retry and singleflight middlewares.
func reliabilityChain(cfg *config.CommonConfig) []middleware.Middleware {
	return []middleware.Middleware{
		circuitbreaker.New(
			cfg.CircuitBreaker.MaxRequests,
			time.Duration(cfg.CircuitBreaker.Interval)*time.Millisecond,
			time.Duration(cfg.CircuitBreaker.Timeout)*time.Millisecond,
		),
		retry.New(
			cfg.Retry.MaxRetries,
			time.Duration(cfg.Retry.Delay)*time.Millisecond,
			time.Duration(cfg.Retry.MaxDelay)*time.Millisecond,
		),
		singleflight.New(),
	}
}

// NewHTTPClient creates an axonet client using sonic for JSON and zap for logging.
func NewHTTPClient(zapLogger *zap.Logger, requestTimeout time.Duration, middlewares ...middleware.Middleware) *client.Client {
	return client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.New(zapLogger.Named("http"))),
		client.WithTimeout(requestTimeout),
		client.WithMiddleware(middlewares...),
	)
}
