package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReplayStore implements ports.ReplayStore using Redis SET NX. It remembers
// Telegram init-data hashes for the duration of their freshness window so a
// captured payload cannot be presented twice.
type ReplayStore struct {
	client *goredis.Client
	prefix string
}

// NewReplayStore creates a new Redis-backed replay store.
func NewReplayStore(client *goredis.Client) *ReplayStore {
	return &ReplayStore{
		client: client,
		prefix: "replay:",
	}
}

// CheckAndSet atomically checks if a token was seen, recording it if not.
// Returns true if the token is new, false if already presented.
func (s *ReplayStore) CheckAndSet(ctx context.Context, scope string, token string, ttl time.Duration) (bool, error) {
	key := s.prefix + scope + ":" + token
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, the token was already used
			return false, nil
		}
		return false, fmt.Errorf("redis replay check: %w", err)
	}
	return result == "OK", nil
}
