package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mdayat/jobtrack/internal/services"
)

// SessionStore persists the signed in user of an auth handle between
// process restarts.
type SessionStore interface {
	Load(ctx context.Context, key string) (*services.User, error)
	Save(ctx context.Context, key string, user *services.User) error
	Delete(ctx context.Context, key string) error
}

func sessionKey(cfg services.Config, appName string) string {
	return fmt.Sprintf("firebase:authUser:%s:%s", cfg.APIKey, appName)
}

type persistedUser struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	DisplayName   string    `json:"displayName,omitempty"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	ProviderID    string    `json:"providerId"`
	IDToken       string    `json:"idToken"`
	RefreshToken  string    `json:"refreshToken"`
	ExpiresAt     time.Time `json:"expirationTime"`
}

func encodeUser(user *services.User) ([]byte, error) {
	return json.Marshal(persistedUser{
		UID:           user.UID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		DisplayName:   user.DisplayName,
		PhotoURL:      user.PhotoURL,
		ProviderID:    user.ProviderID,
		IDToken:       user.IDToken,
		RefreshToken:  user.RefreshToken,
		ExpiresAt:     user.ExpiresAt,
	})
}

func decodeUser(data []byte) (*services.User, error) {
	var p persistedUser
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return &services.User{
		UID:           p.UID,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		DisplayName:   p.DisplayName,
		PhotoURL:      p.PhotoURL,
		ProviderID:    p.ProviderID,
		IDToken:       p.IDToken,
		RefreshToken:  p.RefreshToken,
		ExpiresAt:     p.ExpiresAt,
	}, nil
}

// MemoryStore keeps sessions for the lifetime of the process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]byte{}}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*services.User, error) {
	s.mu.Lock()
	data, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeUser(data)
}

func (s *MemoryStore) Save(ctx context.Context, key string, user *services.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return errors.Wrap(err, "failed to encode user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = data
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// RedisStore keeps sessions in Redis under the session key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) (*services.User, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get persisted user")
	}

	user, err := decodeUser(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode persisted user")
	}
	return user, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, user *services.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return errors.Wrap(err, "failed to encode user")
	}

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to persist user")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete persisted user")
	}
	return nil
}
