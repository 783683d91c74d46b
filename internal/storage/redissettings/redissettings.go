package redissettings

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultHashKey = "pickupbox:settings"

// Storage keeps all settings in one redis hash.
type Storage struct {
	c   *redis.Client
	key string
}

func New(addr, hashKey string) *Storage {
	if hashKey == "" {
		hashKey = defaultHashKey
	}
	return &Storage{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		key: hashKey,
	}
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.c.HGet(ctx, s.key, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis hget")
	}
	return val, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.c.HSet(ctx, s.key, key, value).Err(); err != nil {
		return errors.Wrap(err, "redis hset")
	}
	return nil
}

func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.c.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis hkeys")
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Storage) Close() error {
	return s.c.Close()
}
