//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memClient counts in memory and records expirations.
type memClient struct {
	counts  map[string]int64
	expires map[string]time.Duration
	IncrErr error
}

func newMemClient() *memClient {
	return &memClient{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memClient) Ping(ctx context.Context) error { return nil }
func (m *memClient) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("not cached")
}
func (m *memClient) Set(ctx context.Context, key string, v interface{}, d time.Duration) error {
	return nil
}
func (m *memClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrErr != nil {
		return 0, m.IncrErr
	}
	m.counts[key]++
	return m.counts[key], nil
}
func (m *memClient) Expire(ctx context.Context, key string, d time.Duration) error {
	m.expires[key] = d
	return nil
}
func (m *memClient) SetNX(ctx context.Context, key string, v interface{}, d time.Duration) (bool, error) {
	return false, nil
}
func (m *memClient) Del(ctx context.Context, keys ...string) error { return nil }
func (m *memClient) Close() error                                  { return nil }

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	c := newMemClient()
	rl := NewRateLimiter(c)
	key := NotifyKey("203.0.113.7")

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: want allowed, got (%v, %v)", i, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("4th request: want refused, got (%v, %v)", ok, err)
	}
	if c.expires[key] != time.Minute {
		t.Errorf("window must be set on the first hit, got %v", c.expires[key])
	}
}

func TestRateLimiter_PropagatesErrors(t *testing.T) {
	c := newMemClient()
	c.IncrErr = errors.New("connection refused")
	if _, err := NewRateLimiter(c).Allow(context.Background(), "k", 1, time.Second); err == nil {
		t.Error("expected the redis error")
	}
}

func TestScopeOf(t *testing.T) {
	cases := map[string]string{
		"rate_limit:notify:1.2.3.4": "notify",
		"rate_limit:login":          "login",
		"other":                     "other",
	}
	for key, want := range cases {
		if got := scopeOf(key); got != want {
			t.Errorf("scopeOf(%q) = %q, want %q", key, got, want)
		}
	}
}
