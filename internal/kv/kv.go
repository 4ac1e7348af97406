// Package kv wraps the Redis connection with namespaced JSON values,
// TTLs, list queues and lightweight message entries.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubearchivist/internal/errs"

	"github.com/redis/go-redis/v9"
)

// Store is the namespaced Redis accessor.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// NewStore connects to Redis using a redis:// connection string. All
// keys are transparently prefixed with the namespace.
func NewStore(con, namespace string) (*Store, error) {
	opt, err := redis.ParseURL(con)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_CON %q: %w", con, err)
	}
	return &Store{rdb: redis.NewClient(opt), prefix: namespace}, nil
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// SetJSON stores value as JSON. A zero ttl means no expiry.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), raw, ttl).Err()
}

// GetJSON loads a JSON value into out. Missing keys return ErrNotFound.
func (s *Store) GetJSON(ctx context.Context, key string, out any) error {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Set stores a raw string value. A zero ttl means no expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

// Get loads a raw string value. Missing keys return ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNotFound
	}
	return val, err
}

// Del removes one or more keys.
func (s *Store) Del(ctx context.Context, ks ...string) error {
	full := make([]string, len(ks))
	for i, k := range ks {
		full[i] = s.key(k)
	}
	return s.rdb.Del(ctx, full...).Err()
}

// Exists reports whether the key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	return n > 0, err
}

// KeysByPrefix scans for keys under the given application prefix,
// returned without the namespace.
func (s *Store) KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		found  []string
	)
	match := s.key(prefix) + "*"
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			found = append(found, strings.TrimPrefix(k, s.prefix))
		}
		if next == 0 {
			return found, nil
		}
		cursor = next
	}
}

// DelByPrefix removes all keys under the given application prefix.
func (s *Store) DelByPrefix(ctx context.Context, prefix string) (int, error) {
	ks, err := s.KeysByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(ks) == 0 {
		return 0, nil
	}
	if err := s.Del(ctx, ks...); err != nil {
		return 0, err
	}
	return len(ks), nil
}
