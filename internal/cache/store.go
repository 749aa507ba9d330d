package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	pkgredis "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/redis"
)

// ErrMiss is returned by a Store when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Invalidate(ctx context.Context) (int64, error)
	Len(ctx context.Context) (int64, error)
	Name() string
}

// RedisStore keeps entries in Redis under keyPrefix with a TTL.
type RedisStore struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisStore(client *pkgredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key)
	if pkgredis.IsNilError(err) {
		return nil, ErrMiss
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, s.ttl)
}

func (s *RedisStore) Invalidate(ctx context.Context) (int64, error) {
	return s.client.FlushByPattern(ctx, keyPrefix+"*")
}

func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	return s.client.CountByPattern(ctx, keyPrefix+"*")
}

func (s *RedisStore) Name() string { return "redis" }

// LocalStore is an in-process LRU used when Redis is not configured.
type LocalStore struct {
	lru *lru.Cache[string, []byte]
}

func NewLocalStore(size int) (*LocalStore, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}
	return &LocalStore{lru: c}, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	if data, ok := s.lru.Get(key); ok {
		return data, nil
	}
	return nil, ErrMiss
}

func (s *LocalStore) Set(_ context.Context, key string, data []byte) error {
	s.lru.Add(key, data)
	return nil
}

func (s *LocalStore) Invalidate(context.Context) (int64, error) {
	n := int64(s.lru.Len())
	s.lru.Purge()
	return n, nil
}

func (s *LocalStore) Len(context.Context) (int64, error) {
	return int64(s.lru.Len()), nil
}

func (s *LocalStore) Name() string { return "local" }

// NopStore caches nothing.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (NopStore) Set(context.Context, string, []byte) error   { return nil }
func (NopStore) Invalidate(context.Context) (int64, error)   { return 0, nil }
func (NopStore) Len(context.Context) (int64, error)          { return 0, nil }
func (NopStore) Name() string                                { return "none" }
