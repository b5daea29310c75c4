package idempotency

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers processed message keys in Redis for a bounded TTL.
type Store struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, prefix: "idem"}
}

func (s *Store) Key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

// Seen marks key as processed and reports whether it already was.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}
