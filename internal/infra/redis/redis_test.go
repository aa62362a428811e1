package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/wizard"
)

type noteState struct {
	Note string `json:"note"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func newTestRegistry(t *testing.T) *wizard.Registry {
	t.Helper()
	reg := wizard.NewRegistry()
	require.NoError(t, reg.Register(wizard.Definition{
		ID: "NOTE_WIZARD",
		Steps: []wizard.Step{{
			Name: "Note",
			Handle: func(ctx context.Context, t wizard.Turn, state any) (wizard.Result, error) {
				return wizard.Terminate(nil), nil
			},
		}},
		NewState: func() any { return &noteState{} },
	}))
	return reg
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewSessionStore(client, newTestRegistry(t), 10*time.Minute)

	t.Run("should report absent sessions", func(t *testing.T) {
		_, err := store.Get(ctx, 1)
		assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
	})

	t.Run("should round-trip a session with its typed state", func(t *testing.T) {
		sess := &wizard.Session{ID: "01HX", UserID: 1, WizardID: "NOTE_WIZARD", StepIndex: 0, State: &noteState{Note: "hi"}}
		require.NoError(t, store.Put(ctx, sess))

		got, err := store.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "01HX", got.ID)
		assert.Equal(t, &noteState{Note: "hi"}, got.State)
		assert.True(t, mr.Exists("wizard_session:1"))
	})

	t.Run("should expire idle sessions", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &wizard.Session{ID: "s", UserID: 2, WizardID: "NOTE_WIZARD", State: &noteState{}}))
		mr.FastForward(11 * time.Minute)

		_, err := store.Get(ctx, 2)
		assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
	})

	t.Run("should remove sessions", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, 1))
		_, err := store.Get(ctx, 1)
		assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
	})

	t.Run("should surface connection failures", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")

		_, err := store.Get(ctx, 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, wizard.ErrSessionNotFound)
	})
}

func TestSessionStore_WithEngine(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	reg := newTestRegistry(t)
	store := NewSessionStore(client, reg, time.Minute)
	logger := zerolog.Nop()
	engine := wizard.NewEngine(reg, store, nopNotifier{}, &logger)

	_, err := engine.Enter(ctx, wizard.Trigger{Source: wizard.TriggerCommand, Ref: "/note"}, "NOTE_WIZARD", 5, nil)
	require.NoError(t, err)
	active, err := engine.Active(ctx, 5)
	require.NoError(t, err)
	assert.True(t, active)

	outcome, err := engine.Handle(ctx, 5, wizard.Message{ID: 1, Text: "done"})
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeTerminated, outcome)
	active, err = engine.Active(ctx, 5)
	require.NoError(t, err)
	assert.False(t, active)
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, int64, string, ...any) error { return nil }

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	locker := NewLocker(client)
	locker.backoff = time.Millisecond

	t.Run("should grant a free lock and release it by token", func(t *testing.T) {
		token, err := locker.TryLock(ctx, UserLockKey(9), time.Second)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		require.NoError(t, locker.Unlock(ctx, UserLockKey(9), token))
		assert.False(t, mr.Exists(UserLockKey(9)))
	})

	t.Run("should refuse a held lock", func(t *testing.T) {
		token, err := locker.TryLock(ctx, UserLockKey(10), time.Second)
		require.NoError(t, err)

		_, err = locker.TryLock(ctx, UserLockKey(10), time.Second)
		assert.ErrorIs(t, err, domain.ErrLocked)

		require.NoError(t, locker.Unlock(ctx, UserLockKey(10), token))
	})

	t.Run("should not release a lock owned by another token", func(t *testing.T) {
		_, err := locker.TryLock(ctx, UserLockKey(11), time.Second)
		require.NoError(t, err)

		require.NoError(t, locker.Unlock(ctx, UserLockKey(11), "someone-else"))
		assert.True(t, mr.Exists(UserLockKey(11)))
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	limiter := NewRateLimiter(client)
	key := UserMessageKey(77)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
