package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/domain"
)

// StateStore is a Redis implementation of app.StateRepository.
// Every record is a plain string key refreshed with the TTL on each write, so an
// abandoned session ages out on its own.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{
		client: client,
		ttl:    ttl,
		prefix: "quiz:state:",
	}
}

func (s *StateStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStateNotFound
	}
	return data, err
}

func (s *StateStore) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *StateStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *StateStore) key(key string) string {
	return s.prefix + key
}
