package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettingsGetMissingReturnsFalse(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))

	value, ok, err := repo.Get("rescan_schedule")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestSettingsSetThenGet(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))

	require.NoError(t, repo.Set("rescan_schedule", "0 3 * * *"))

	value, ok, err := repo.Get("rescan_schedule")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0 3 * * *", value)
}

func TestSettingsSetOverwrites(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))

	require.NoError(t, repo.Set("key", "old"))
	require.NoError(t, repo.Set("key", "new"))

	value, ok, err := repo.Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", value)
}
