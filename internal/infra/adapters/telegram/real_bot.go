package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/application"
	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/infra/logging"
	"telegram-p2p-trading/internal/infra/metrics"
	red "telegram-p2p-trading/internal/infra/redis"
	"telegram-p2p-trading/internal/infra/worker"
	"telegram-p2p-trading/internal/wizard"
)

const userLockTTL = 30 * time.Second

// RateLimiter is satisfied by *red.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type BotOption func(*Bot)

// WithUserLock serializes a user's updates across bot instances.
func WithUserLock(l red.Locker) BotOption {
	return func(b *Bot) { b.locker = l }
}

// WithRateLimit caps inbound updates per user and minute.
func WithRateLimit(l RateLimiter, perMinute int) BotOption {
	return func(b *Bot) {
		b.limiter = l
		b.perMinute = perMinute
	}
}

// Bot polls updates and routes them to the facade. Updates of one user are
// handled in arrival order on the same pool shard.
type Bot struct {
	api       botAPI
	out       *Messenger
	facade    *application.BotFacade
	pool      *worker.KeyedPool
	locker    red.Locker
	limiter   RateLimiter
	perMinute int
	log       *zerolog.Logger
}

func NewBot(api botAPI, out *Messenger, facade *application.BotFacade, pool *worker.KeyedPool, logger *zerolog.Logger, opts ...BotOption) (*Bot, error) {
	if api == nil || out == nil {
		return nil, errors.New("telegram api is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	b := &Bot{api: api, out: out, facade: facade, pool: pool, log: &l}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run polls until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.pool.Start(ctx)
	defer b.pool.Stop()
	b.log.Info().Msg("Telegram bot polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("Telegram bot polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, up)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, up tgbotapi.Update) {
	kind, from := classify(up)
	metrics.IncTelegramUpdate(kind)
	if from == nil {
		return
	}
	err := b.pool.Submit(ctx, from.ID, func(ctx context.Context) error {
		return b.handleUpdate(ctx, up)
	})
	if err != nil {
		b.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
	}
}

// classify names the update for metrics and returns its sender. Updates the
// bot does not react to have no sender.
func classify(up tgbotapi.Update) (string, *tgbotapi.User) {
	switch {
	case up.CallbackQuery != nil:
		return "callback", up.CallbackQuery.From
	case up.Message != nil:
		if up.Message.Chat == nil || !up.Message.Chat.IsPrivate() {
			return "group", nil
		}
		if up.Message.IsCommand() {
			return "command", up.Message.From
		}
		return "message", up.Message.From
	default:
		return "other", nil
	}
}

func (b *Bot) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	_, from := classify(up)
	if from == nil {
		return nil
	}
	ctx = logging.WithUpdateID(logging.WithTgID(ctx, from.ID), up.UpdateID)
	log := logging.With(ctx, b.log)

	if b.locker != nil {
		token, err := b.locker.TryLock(ctx, red.UserLockKey(from.ID), userLockTTL)
		switch {
		case errors.Is(err, domain.ErrLocked):
			log.Warn().Msg("user is busy on another instance; update skipped")
			return nil
		case err != nil:
			log.Warn().Err(err).Msg("user lock unavailable")
		default:
			defer func() {
				if err := b.locker.Unlock(context.WithoutCancel(ctx), red.UserLockKey(from.ID), token); err != nil {
					log.Warn().Err(err).Msg("failed to release user lock")
				}
			}()
		}
	}

	if b.limiter != nil && b.perMinute > 0 {
		allowed, err := b.limiter.Allow(ctx, red.UserMessageKey(from.ID), b.perMinute, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return b.out.Send(ctx, from.ID, "rate_limited")
		}
	}

	caller := application.Caller{TgID: from.ID, Username: from.UserName}
	if up.CallbackQuery != nil {
		return b.handleQuery(ctx, caller, up.CallbackQuery)
	}
	msg := up.Message
	if msg.IsCommand() {
		return b.handleCommand(ctx, caller, msg)
	}
	reply, err := b.facade.HandleMessage(ctx, caller, wizard.Message{ID: msg.MessageID, Text: msg.Text})
	return b.reply(ctx, caller, reply, err)
}

// reply renders the facade's answer. Errors never reach the chat verbatim.
func (b *Bot) reply(ctx context.Context, c application.Caller, r *application.Reply, err error) error {
	if err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("update handling failed")
		return b.out.Send(ctx, c.TgID, wizard.NoticeGenericError)
	}
	if r == nil {
		return nil
	}
	return b.out.Send(ctx, c.TgID, r.Key, r.Args...)
}
