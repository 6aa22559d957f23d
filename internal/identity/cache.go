package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/qna-go-api/internal/observability"
)

const cacheKeyPrefix = "qna:identity:"

// CachedResolver memoises successful lookups in Redis. Misses are never cached so a user created
// after a lookup is visible on the next request.
type CachedResolver struct {
	next   Resolver
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedResolver wraps next. A nil client disables caching.
func NewCachedResolver(next Resolver, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) Resolver {
	if cache == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedResolver{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "identity_cache").Logger(),
	}
}

func (r *CachedResolver) Resolve(ctx context.Context, userID string) (User, error) {
	key := cacheKeyPrefix + userID

	payload, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user User
		if jsonErr := json.Unmarshal(payload, &user); jsonErr == nil {
			observability.IdentityCacheLookups().WithLabelValues("hit").Inc()
			return user, nil
		}
		r.logger.Warn().Str("user_id", userID).Msg("discarding corrupt identity cache entry")
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn().Err(err).Msg("identity cache read failed")
	}
	observability.IdentityCacheLookups().WithLabelValues("miss").Inc()

	user, err := r.next.Resolve(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if encoded, err := json.Marshal(user); err == nil {
		if err := r.cache.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			r.logger.Warn().Err(err).Msg("identity cache write failed")
		}
	}
	return user, nil
}
