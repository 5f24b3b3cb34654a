package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-notifier/internal/models"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore(subscriber(1, models.PreferenceAll), subscriber(2, models.PreferenceNone))
	reg := NewRegistry(store)

	t.Run("Subscribers returns current preferences", func(t *testing.T) {
		subs, err := reg.Subscribers(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, models.PreferenceNone, subs[1].Preference)
	})

	t.Run("UpdatePreference is visible on next read", func(t *testing.T) {
		require.NoError(t, reg.UpdatePreference(ctx, 2, models.PreferenceImportantOnly))

		sub, err := reg.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, models.PreferenceImportantOnly, sub.Preference)
	})

	t.Run("UpdatePreference on unknown id is NotFound", func(t *testing.T) {
		err := reg.UpdatePreference(ctx, 99, models.PreferenceAll)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("UpdatePreference rejects unknown preference", func(t *testing.T) {
		err := reg.UpdatePreference(ctx, 1, models.Preference("SOMETIMES"))
		assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		failing := NewMockStore()
		failing.ListErr = errors.New("connection reset")
		_, err := NewRegistry(failing).Subscribers(ctx)
		assert.ErrorContains(t, err, "connection reset")
	})
}
