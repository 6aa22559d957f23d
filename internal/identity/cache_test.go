package identity_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/identity"
)

type countingResolver struct {
	users map[string]identity.User
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, userID string) (identity.User, error) {
	r.calls++
	user, ok := r.users[userID]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

func TestCachedResolverServesRepeatLookupsFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := &countingResolver{users: map[string]identity.User{
		"user_1": {ID: "user_1", FirstName: "Ada", LastName: "Lovelace"},
	}}
	resolver := identity.NewCachedResolver(backend, client, time.Minute, zerolog.Nop())

	first, err := resolver.Resolve(context.Background(), "user_1")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "user_1")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, backend.calls)
	require.True(t, mr.Exists("qna:identity:user_1"))

	mr.FastForward(2 * time.Minute)
	_, err = resolver.Resolve(context.Background(), "user_1")
	require.NoError(t, err)
	require.Equal(t, 2, backend.calls)
}

func TestCachedResolverDoesNotCacheMisses(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := &countingResolver{users: map[string]identity.User{}}
	resolver := identity.NewCachedResolver(backend, client, time.Minute, zerolog.Nop())

	_, err = resolver.Resolve(context.Background(), "user_new")
	require.ErrorIs(t, err, identity.ErrUserNotFound)

	backend.users["user_new"] = identity.User{ID: "user_new", FirstName: "Late"}
	user, err := resolver.Resolve(context.Background(), "user_new")
	require.NoError(t, err)
	require.Equal(t, "Late", user.FirstName)
	require.Equal(t, 2, backend.calls)
}

func TestNewCachedResolverWithoutRedisReturnsBackend(t *testing.T) {
	backend := &countingResolver{}
	require.Same(t, backend, identity.NewCachedResolver(backend, nil, time.Minute, zerolog.Nop()))
}
