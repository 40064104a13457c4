package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/metrics"
	red "netaccess-billing/internal/infra/redis"
)

var _ repository.ArticleRepository = (*articleRepoCacheDecorator)(nil)

const articleListKey = "articles:all"

// articleRepoCacheDecorator serves catalog reads from redis. Reads inside a
// transaction always go to the database.
type articleRepoCacheDecorator struct {
	inner  repository.ArticleRepository
	cache  red.RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewArticleRepoCacheDecorator(inner repository.ArticleRepository, cache red.RedisClient, logger *zerolog.Logger) repository.ArticleRepository {
	l := logger.With().Str("component", "article_cache").Logger()
	return &articleRepoCacheDecorator{inner: inner, cache: cache, ttl: 10 * time.Minute, logger: &l}
}

func articleKey(id string) string { return "article:" + id }

func (d *articleRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	if tx != repository.NoTX {
		return d.inner.FindByID(ctx, tx, id)
	}
	var a model.Article
	if d.get(ctx, "article", articleKey(id), &a) {
		return &a, nil
	}
	art, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.set(ctx, articleKey(id), art)
	return art, nil
}

func (d *articleRepoCacheDecorator) List(ctx context.Context, tx repository.Tx) ([]*model.Article, error) {
	if tx != repository.NoTX {
		return d.inner.List(ctx, tx)
	}
	var list []*model.Article
	if d.get(ctx, "article_list", articleListKey, &list) {
		return list, nil
	}
	list, err := d.inner.List(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		d.set(ctx, articleListKey, list)
	}
	return list, nil
}

// Save invalidates before writing so a failed write never leaves stale data.
func (d *articleRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	if err := d.cache.Del(ctx, articleKey(a.ID), articleListKey); err != nil {
		d.logger.Warn().Err(err).Str("article_id", a.ID).Msg("cache invalidation failed")
	}
	return d.inner.Save(ctx, tx, a)
}

func (d *articleRepoCacheDecorator) get(ctx context.Context, name, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.IncCacheRequest(name, "hit")
		return true
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	metrics.IncCacheRequest(name, "miss")
	return false
}

func (d *articleRepoCacheDecorator) set(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
