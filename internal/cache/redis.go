package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/pitabwire/sdui/model"
)

// DefaultRedisPrefix namespaces every key the Redis storage writes.
const DefaultRedisPrefix = "sdui"

// RedisStorage is a Redis-backed MicroappStorage. Each entry lives at
// "{prefix}:microapp:{code}" and the set "{prefix}:microapps" indexes codes.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStorage creates a Redis storage. An empty prefix uses DefaultRedisPrefix.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) entryKey(code string) string {
	return fmt.Sprintf("%s:microapp:%s", s.prefix, code)
}

func (s *RedisStorage) indexKey() string {
	return s.prefix + ":microapps"
}

// SaveMapped writes the entry and its index membership in one transaction.
func (s *RedisStorage) SaveMapped(ctx context.Context, data *model.CachedMicroappData) error {
	if err := validateForSave(data); err != nil {
		return err
	}
	raw, err := encode(data)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(data.MicroappCode), raw, 0)
		pipe.SAdd(ctx, s.indexKey(), data.MicroappCode)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %q: %w", data.MicroappCode, err)
	}
	return nil
}

// LoadMapped reads the entry for code.
func (s *RedisStorage) LoadMapped(ctx context.Context, code string) (*model.CachedMicroappData, error) {
	raw, err := s.client.Get(ctx, s.entryKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(code)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", code, err)
	}
	return decode(code, raw)
}

// GetAllCodes returns the members of the code index.
func (s *RedisStorage) GetAllCodes(ctx context.Context) ([]string, error) {
	codes, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list codes: %w", err)
	}
	sort.Strings(codes)
	return codes, nil
}

// Delete removes the entry and its index membership.
func (s *RedisStorage) Delete(ctx context.Context, code string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(code))
		pipe.SRem(ctx, s.indexKey(), code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %q: %w", code, err)
	}
	return nil
}

// Contains reports whether the entry key exists.
func (s *RedisStorage) Contains(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.entryKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %q: %w", code, err)
	}
	return n > 0, nil
}

// HealthCheck pings the server.
func (s *RedisStorage) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
