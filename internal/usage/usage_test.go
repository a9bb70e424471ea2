package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Unit_LimitEnforced(t *testing.T) {
	store := NewMemory()
	day := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

	ok, err := store.Reserve(context.Background(), "websearch", day, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(context.Background(), "websearch", day, 1)
	require.NoError(t, err)
	assert.False(t, ok, "second request exceeds the daily limit")
	assert.Equal(t, 1, store.Count("websearch", day), "denied requests are not counted")
}

func TestMemory_Unit_ZeroLimitIsUnlimited(t *testing.T) {
	store := NewMemory()
	day := time.Now()
	for i := 0; i < 10; i++ {
		ok, err := store.Reserve(context.Background(), "openmap", day, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestMemory_Unit_CountersAreDailyAndPerConnector(t *testing.T) {
	store := NewMemory()
	monday := time.Date(2024, 5, 13, 23, 59, 0, 0, time.UTC)
	tuesday := time.Date(2024, 5, 14, 0, 1, 0, 0, time.UTC)

	ok, _ := store.Reserve(context.Background(), "websearch", monday, 1)
	assert.True(t, ok)
	ok, _ = store.Reserve(context.Background(), "websearch", tuesday, 1)
	assert.True(t, ok, "a new UTC day resets the window")
	ok, _ = store.Reserve(context.Background(), "placeapi", monday, 1)
	assert.True(t, ok, "counters are per connector")
}
