package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCache_Lifecycle(t *testing.T) {
	cache := newEventCache()

	assert.False(t, cache.contains("a"))
	assert.Equal(t, 0, cache.len())

	// Added creates the entry
	cache.observeAdded("a", 1)
	require.True(t, cache.contains("a"))

	gen, ok := cache.generation("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), gen)

	// Modified updates it
	cache.setGeneration("a", 5)
	gen, _ = cache.generation("a")
	assert.Equal(t, int64(5), gen)

	// Deleted removes both maps
	cache.setStatus("a", []byte(`{"phase":"Ready"}`))
	cache.remove("a")
	assert.False(t, cache.contains("a"))
	assert.Nil(t, cache.status("a"))
	assert.Equal(t, 0, cache.len())
}

func TestEventCache_StatusSnapshot(t *testing.T) {
	cache := newEventCache()

	assert.Nil(t, cache.status("a"))

	cache.observeAdded("a", 1)
	cache.setStatus("a", []byte(`{"phase":"Pending"}`))
	assert.Equal(t, []byte(`{"phase":"Pending"}`), cache.status("a"))

	cache.setStatus("a", []byte(`{"phase":"Ready"}`))
	assert.Equal(t, []byte(`{"phase":"Ready"}`), cache.status("a"))
}

func TestEventCache_UnknownName(t *testing.T) {
	cache := newEventCache()

	_, ok := cache.generation("missing")
	assert.False(t, ok)

	// Removing an unknown name is harmless
	cache.remove("missing")
}

func TestEventCache_Reset(t *testing.T) {
	cache := newEventCache()
	cache.observeAdded("a", 1)
	cache.observeAdded("b", 2)
	cache.setStatus("a", []byte(`{}`))

	cache.reset()

	assert.Equal(t, 0, cache.len())
	assert.False(t, cache.contains("a"))
	assert.Nil(t, cache.status("a"))
}
