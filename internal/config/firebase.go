package config

import (
	"github.com/mdayat/jobtrack/internal/firebase"
	"github.com/mdayat/jobtrack/internal/services"
)

// NewFirebaseProvider builds the Firebase provider from Env. Sessions are
// kept in Redis when REDIS_URL is set and in memory otherwise.
func NewFirebaseProvider(opts ...firebase.Option) (*firebase.Provider, error) {
	base := []firebase.Option{
		firebase.WithOAuthClient(Env.GOOGLE_OAUTH_CLIENT_ID, Env.GOOGLE_OAUTH_CLIENT_SECRET),
	}

	redisClient, err := services.InitRedis(Env.REDIS_URL)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		base = append(base, firebase.WithSessionStore(firebase.NewRedisStore(redisClient)))
	}

	return firebase.New(append(base, opts...)...), nil
}
