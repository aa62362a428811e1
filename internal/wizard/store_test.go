package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	require.NoError(t, reg.Register(pairDefinition(nil)))
	store := NewMemoryStore(reg)

	t.Run("should report absent sessions", func(t *testing.T) {
		_, err := store.Get(ctx, 42)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("should not alias stored state", func(t *testing.T) {
		st := &pairState{First: "a"}
		now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, store.Put(ctx, &Session{ID: "s1", UserID: 42, WizardID: pairWizard, State: st, CreatedAt: now, UpdatedAt: now}))
		st.First = "changed"

		got, err := store.Get(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, &pairState{First: "a"}, got.State)
		assert.True(t, now.Equal(got.CreatedAt))

		got.State.(*pairState).Second = "b"
		again, err := store.Get(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, again.State.(*pairState).Second)
	})

	t.Run("should remove sessions", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, 42))
		require.NoError(t, store.Remove(ctx, 42))
		assert.Zero(t, store.Len())
	})

	t.Run("should fail for sessions of unknown wizards", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &Session{ID: "s2", UserID: 7, WizardID: "GONE", State: &pairState{}}))
		_, err := store.Get(ctx, 7)
		assert.ErrorIs(t, err, ErrUnknownWizard)
	})
}
