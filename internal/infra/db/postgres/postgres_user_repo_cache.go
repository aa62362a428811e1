package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/infra/metrics"
	red "telegram-p2p-trading/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

type userRepoCacheDecorator struct {
	inner  repository.UserRepository
	cache  red.RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, logger *zerolog.Logger) repository.UserRepository {
	l := logger.With().Str("component", "user_cache").Logger()
	return &userRepoCacheDecorator{
		inner:  inner,
		cache:  cache,
		ttl:    1 * time.Hour,
		logger: &l,
	}
}

func userIDKey(id string) string  { return fmt.Sprintf("user:id:%s", id) }
func userTgKey(tgID int64) string { return fmt.Sprintf("user:tgid:%d", tgID) }

// Save invalidates both keys before writing through.
func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if err := d.cache.Del(ctx, userIDKey(u.ID), userTgKey(u.TelegramID)); err != nil {
		d.logger.Warn().Err(err).Str("user_id", u.ID).Msg("user cache invalidation failed")
	}
	return d.inner.Save(ctx, tx, u)
}

func (d *userRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if u := d.lookup(ctx, userTgKey(tgID)); u != nil {
		return u, nil
	}
	u, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, u)
	return u, nil
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if u := d.lookup(ctx, userIDKey(id)); u != nil {
		return u, nil
	}
	u, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, u)
	return u, nil
}

// FindByUsername is not cached; usernames change without the bot noticing.
func (d *userRepoCacheDecorator) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	metrics.IncCacheRequest("user_username", "bypass")
	return d.inner.FindByUsername(ctx, tx, username)
}

func (d *userRepoCacheDecorator) lookup(ctx context.Context, key string) *model.User {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user
		}
	} else if !red.IsNil(err) {
		d.logger.Warn().Err(err).Str("key", key).Msg("user cache read failed")
	}
	metrics.IncCacheRequest("user", "miss")
	return nil
}

func (d *userRepoCacheDecorator) warm(ctx context.Context, u *model.User) {
	if u == nil {
		return
	}
	bytes, err := json.Marshal(u)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, userIDKey(u.ID), bytes, d.ttl)
	_ = d.cache.Set(ctx, userTgKey(u.TelegramID), bytes, d.ttl)
}
