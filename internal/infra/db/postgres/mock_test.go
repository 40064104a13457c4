//go:build !integration

package postgres

import (
	"context"
	"time"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	red "netaccess-billing/internal/infra/redis"
)

// --- Mocks for cache decorator tests ---

type mockInnerArticleRepo struct {
	SaveFunc     func(ctx context.Context, tx repository.Tx, a *model.Article) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Article, error)
	ListFunc     func(ctx context.Context, tx repository.Tx) ([]*model.Article, error)
}

func (m *mockInnerArticleRepo) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	return m.SaveFunc(ctx, tx, a)
}
func (m *mockInnerArticleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerArticleRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Article, error) {
	return m.ListFunc(ctx, tx)
}

var _ red.RedisClient = (*mockRedisClient)(nil)

type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
