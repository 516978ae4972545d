package firebase

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdayat/jobtrack/internal/services"
)

func testSessionStore(t *testing.T, store SessionStore, key string) {
	t.Helper()
	ctx := context.Background()

	user, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, user)

	saved := &services.User{
		UID:           "firebase-uid",
		Email:         "jane@example.com",
		EmailVerified: true,
		DisplayName:   "Jane Doe",
		ProviderID:    "google.com",
		IDToken:       "firebase-id-token",
		RefreshToken:  "refresh-token",
		ExpiresAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, key, saved))

	user, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, saved.UID, user.UID)
	assert.Equal(t, saved.Email, user.Email)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, saved.IDToken, user.IDToken)
	assert.Equal(t, saved.RefreshToken, user.RefreshToken)
	assert.True(t, saved.ExpiresAt.Equal(user.ExpiresAt))

	require.NoError(t, store.Delete(ctx, key))
	user, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, store.Delete(ctx, key))
}

func TestMemoryStore(t *testing.T) {
	testSessionStore(t, NewMemoryStore(), sessionKey(testConfig, DefaultAppName))
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	key := sessionKey(testConfig, "test-"+uuid.NewString())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	testSessionStore(t, NewRedisStore(client), key)
}

func TestRedisStore_CorruptSession(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	key := sessionKey(testConfig, "test-"+uuid.NewString())
	t.Cleanup(func() { client.Del(context.Background(), key) })
	require.NoError(t, client.Set(ctx, key, "not json", 0).Err())

	user, err := NewRedisStore(client).Load(ctx, key)
	assert.Error(t, err)
	assert.Nil(t, user)
}
