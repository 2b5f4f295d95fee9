//go:build !integration

package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// memRedis is an in-memory RedisClient with a movable clock for TTL tests.
type memRedis struct {
	mu    sync.Mutex
	now   time.Time
	vals  map[string]string
	lists map[string][]string
	exp   map[string]time.Time

	FailWith error
}

var _ RedisClient = (*memRedis)(nil)

func newMemRedis() *memRedis {
	return &memRedis{
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		vals:  map[string]string{},
		lists: map[string][]string{},
		exp:   map[string]time.Time{},
	}
}

func (m *memRedis) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// expire drops the key if its deadline passed. Caller holds mu.
func (m *memRedis) expire(key string) {
	if at, ok := m.exp[key]; ok && !m.now.Before(at) {
		delete(m.vals, key)
		delete(m.exp, key)
	}
}

func (m *memRedis) setTTL(key string, ttl time.Duration) {
	if ttl > 0 {
		m.exp[key] = m.now.Add(ttl)
	} else {
		delete(m.exp, key)
	}
}

func (m *memRedis) Ping(ctx context.Context) error { return m.FailWith }

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = toString(value)
	m.setTTL(key, expiration)
	return nil
}

func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.FailWith != nil {
		return false, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	if _, ok := m.vals[key]; ok {
		return false, nil
	}
	m.vals[key] = toString(value)
	m.setTTL(key, expiration)
	return true, nil
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	v, ok := m.vals[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	var n int64
	fmt.Sscan(m.vals[key], &n)
	n++
	m.vals[key] = fmt.Sprint(n)
	return n, nil
}

func (m *memRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setTTL(key, expiration)
	return nil
}

func (m *memRedis) PTTL(ctx context.Context, key string) (time.Duration, error) {
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	if _, ok := m.vals[key]; !ok {
		return -2, nil
	}
	at, ok := m.exp[key]
	if !ok {
		return -1, nil
	}
	return at.Sub(m.now), nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.vals, k)
		delete(m.exp, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *memRedis) LPush(ctx context.Context, key string, values ...interface{}) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append([]string{toString(v)}, m.lists[key]...)
	}
	return nil
}

// BRPop never blocks: an empty list answers redis.Nil as a timed-out BRPOP does.
func (m *memRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		l := m.lists[k]
		if len(l) == 0 {
			continue
		}
		v := l[len(l)-1]
		m.lists[k] = l[:len(l)-1]
		return []string{k, v}, nil
	}
	return nil, redis.Nil
}

// Eval understands the compare-and-delete script only.
func (m *memRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if len(keys) != 1 || len(args) != 1 {
		return nil, errors.New("memRedis: unsupported script")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(keys[0])
	if v, ok := m.vals[keys[0]]; ok && v == toString(args[0]) {
		delete(m.vals, keys[0])
		delete(m.exp, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (m *memRedis) Close() error { return nil }

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
