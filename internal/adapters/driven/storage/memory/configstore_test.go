package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"llm.provider": "groq", "chat.top_k": int64(4)}
	store := NewConfigStore(seed)

	v, ok := store.Get("chat.top_k")
	require.True(t, ok)
	assert.Equal(t, int64(4), v)
	assert.Equal(t, []string{"chat.top_k", "llm.provider"}, store.Keys())

	require.NoError(t, store.Set("llm.provider", "openai"))
	assert.Equal(t, "groq", seed["llm.provider"])
}

func TestConfigStore_SetUnset(t *testing.T) {
	store := NewConfigStore(nil)
	assert.Empty(t, store.Keys())

	require.NoError(t, store.Set("source.extensions", []string{".txt"}))
	v, ok := store.Get("source.extensions")
	require.True(t, ok)
	assert.Equal(t, []string{".txt"}, v)

	require.NoError(t, store.Unset("source.extensions"))
	_, ok = store.Get("source.extensions")
	assert.False(t, ok)
	assert.Equal(t, ":memory:", store.Path())
}
