package services

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var (
	redisOnce   sync.Once
	redisErr    error
	redisClient *redis.Client
)

// InitRedis connects the client backing persisted auth sessions. An empty
// REDIS_URL leaves the client nil.
func InitRedis(REDIS_URL string) (*redis.Client, error) {
	redisOnce.Do(func() {
		if REDIS_URL == "" {
			return
		}

		opts, err := redis.ParseURL(REDIS_URL)
		if err != nil {
			redisErr = errors.Wrap(err, "failed to parse redis url")
			return
		}
		redisClient = redis.NewClient(opts)
	})

	return redisClient, redisErr
}

func GetRedis() *redis.Client {
	return redisClient
}
