// Package redistest provides an in-memory command surface for tests that
// exercise redis-backed components without a server.
package redistest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type ExpireCall struct {
	Key string
	TTL time.Duration
}

// Store is a map-backed stand-in for the redis command surface.
type Store struct {
	mu          sync.Mutex
	Data        map[string]string
	Counters    map[string]int64
	ExpireCalls []ExpireCall
	Err         error
}

func NewStore() *Store {
	return &Store{
		Data:     make(map[string]string),
		Counters: make(map[string]int64),
	}
}

func (s *Store) Ping(context.Context) *redis.StatusCmd {
	if s.Err != nil {
		return redis.NewStatusResult("", s.Err)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (s *Store) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.Err != nil {
		return redis.NewStatusResult("", s.Err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (s *Store) Get(ctx context.Context, key string) *redis.StringCmd {
	if s.Err != nil {
		return redis.NewStringResult("", s.Err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *Store) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if s.Err != nil {
		return redis.NewBoolResult(false, s.Err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	s.Data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (s *Store) Incr(ctx context.Context, key string) *redis.IntCmd {
	if s.Err != nil {
		return redis.NewIntResult(0, s.Err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Counters[key]++
	return redis.NewIntResult(s.Counters[key], nil)
}

func (s *Store) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if s.Err != nil {
		return redis.NewBoolResult(false, s.Err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExpireCalls = append(s.ExpireCalls, ExpireCall{Key: key, TTL: expiration})
	return redis.NewBoolResult(true, nil)
}

func (s *Store) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if s.Err != nil {
		return redis.NewIntResult(0, s.Err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.Data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
