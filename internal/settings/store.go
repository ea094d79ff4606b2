// Package settings reads plugin configuration values such as the report threshold.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	Plugin       = "tool_lockstats"
	ThresholdKey = "threshold"
)

var ErrNotFound = errors.New("config value not found")

type Store interface {
	Get(ctx context.Context, plugin, name string) (string, error)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisAddr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func hashKey(plugin string) string {
	return "config:" + plugin
}

func (s *RedisStore) Get(ctx context.Context, plugin, name string) (string, error) {
	value, err := s.client.HGet(ctx, hashKey(plugin), name).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%s/%s: %w", plugin, name, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, plugin, name, value string) error {
	return s.client.HSet(ctx, hashKey(plugin), name, value).Err()
}

// SetDefault writes value only when the key is not configured yet.
func (s *RedisStore) SetDefault(ctx context.Context, plugin, name, value string) (bool, error) {
	return s.client.HSetNX(ctx, hashKey(plugin), name, value).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// StaticStore serves values from memory.
type StaticStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStaticStore() *StaticStore {
	return &StaticStore{values: make(map[string]string)}
}

func (s *StaticStore) Set(plugin, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[plugin+"/"+name] = value
}

func (s *StaticStore) Get(_ context.Context, plugin, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[plugin+"/"+name]
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", plugin, name, ErrNotFound)
	}

	return value, nil
}

// Threshold returns the minimum per-lock duration, in seconds, shown by the reports.
func Threshold(ctx context.Context, store Store) (float64, error) {
	raw, err := store.Get(ctx, Plugin, ThresholdKey)
	if err != nil {
		return 0, err
	}

	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", raw, err)
	}

	return threshold, nil
}
