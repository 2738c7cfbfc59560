package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/domain/ports/repository"
	"billing-reminder-bot/internal/infra/metrics"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches point lookups by id. ListAll always reads
// through so scans see current mute state.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func userKey(id int64) string { return fmt.Sprintf("user:id:%d", id) }

func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if err := d.inner.Save(ctx, tx, u); err != nil {
		return err
	}
	d.invalidate(ctx, u.ID)
	return nil
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	key := userKey(id)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var u model.User
		if json.Unmarshal([]byte(val), &u) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &u, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		d.log.Warn().Err(err).Int64("tg_id", id).Msg("user cache read failed")
	}

	metrics.IncCacheRequest("user", "miss")
	u, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(u); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return u, nil
}

func (d *userRepoCacheDecorator) FindByHandle(ctx context.Context, tx repository.Tx, handle string) (*model.User, error) {
	return d.inner.FindByHandle(ctx, tx, handle)
}

func (d *userRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	metrics.IncCacheRequest("user_list", "bypass")
	return d.inner.ListAll(ctx, tx)
}

func (d *userRepoCacheDecorator) SetMutedUntil(ctx context.Context, tx repository.Tx, id int64, until *time.Time) error {
	if err := d.inner.SetMutedUntil(ctx, tx, id, until); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

func (d *userRepoCacheDecorator) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountUsers(ctx, tx)
}

func (d *userRepoCacheDecorator) invalidate(ctx context.Context, id int64) {
	if err := d.cache.Del(ctx, userKey(id)); err != nil {
		d.log.Warn().Err(err).Int64("tg_id", id).Msg("user cache invalidation failed")
	}
}
