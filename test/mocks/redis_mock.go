package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient covers the subset of redis commands the token denylist and
// the readiness probe use.
type MockRedisClient struct {
	mu      sync.RWMutex
	expires map[string]time.Time

	ExistsError error
	PingError   error

	ExistsCalls int
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{expires: make(map[string]time.Time)}
}

// Revoke marks a token id as revoked for ttl; zero ttl never expires.
func (m *MockRedisClient) Revoke(key string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var at time.Time
	if ttl > 0 {
		at = time.Now().Add(ttl)
	}
	m.expires[key] = at
}

func (m *MockRedisClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls++

	cmd := redis.NewIntCmd(ctx)
	if m.ExistsError != nil {
		cmd.SetErr(m.ExistsError)
		return cmd
	}
	var n int64
	for _, k := range keys {
		at, ok := m.expires[k]
		if ok && (at.IsZero() || time.Now().Before(at)) {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.PingError != nil {
		cmd.SetErr(m.PingError)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}
