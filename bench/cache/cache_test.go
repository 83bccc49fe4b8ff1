package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c := Open(filepath.Join(t.TempDir(), "cache.db"), false)
	require.True(t, c.Enabled())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	c := openTestCache(t)
	params := map[string]any{"a": 1}

	c.Store("translate", "some text", "azure:gpt", "hello", 1.5, params)

	output, duration, ok := c.Lookup("translate", "some text", "azure:gpt", params)
	require.True(t, ok)
	assert.Equal(t, "hello", output)
	assert.Equal(t, 1.5, duration)
}

func TestCache_ParamsDistinguishEntries(t *testing.T) {
	c := openTestCache(t)

	c.Store("translate", "text", "cfg", "hello", 1.5, map[string]any{"a": 1})

	_, _, ok := c.Lookup("translate", "text", "cfg", map[string]any{"a": 2})
	assert.False(t, ok, "different params must not share a cache row")

	_, _, ok = c.Lookup("translate", "other text", "cfg", map[string]any{"a": 1})
	assert.False(t, ok, "different input must not share a cache row")

	_, _, ok = c.Lookup("translate", "text", "other-cfg", map[string]any{"a": 1})
	assert.False(t, ok, "different config identity must not share a cache row")
}

func TestCache_LastWriteWins(t *testing.T) {
	// Storing twice under the same key leaves exactly one entry holding
	// the second value.
	c := openTestCache(t)

	c.Store("translate", "text", "cfg", "first", 1.0, nil)
	c.Store("translate", "text", "cfg", "second", 2.0, nil)

	output, duration, ok := c.Lookup("translate", "text", "cfg", nil)
	require.True(t, ok)
	assert.Equal(t, "second", output)
	assert.Equal(t, 2.0, duration)

	assert.Equal(t, 1, c.Stats("").Count)
}

func TestCache_Disabled(t *testing.T) {
	// An empty path disables the cache: lookups miss, stores are no-ops,
	// and nothing errors.
	c := Open("", false)
	assert.False(t, c.Enabled())

	c.Store("translate", "text", "cfg", "hello", 1.0, nil)
	_, _, ok := c.Lookup("translate", "text", "cfg", nil)
	assert.False(t, ok)

	assert.False(t, c.Stats("").Enabled)
	c.Clear("")
	c.Checkpoint()
	assert.NoError(t, c.Close())
}

func TestCache_RewriteMode(t *testing.T) {
	// Rewrite mode always misses on lookup but still writes, refreshing
	// stale entries.
	path := filepath.Join(t.TempDir(), "cache.db")

	rw := Open(path, true)
	require.True(t, rw.Enabled())
	rw.Store("translate", "text", "cfg", "fresh", 1.0, nil)

	_, _, ok := rw.Lookup("translate", "text", "cfg", nil)
	assert.False(t, ok, "rewrite mode must not serve cached values")
	require.NoError(t, rw.Close())

	// A normal handle sees what rewrite mode wrote.
	c := Open(path, false)
	defer c.Close()
	output, _, ok := c.Lookup("translate", "text", "cfg", nil)
	require.True(t, ok)
	assert.Equal(t, "fresh", output)
}

func TestCache_StatsAndClearByTask(t *testing.T) {
	c := openTestCache(t)
	c.Store("translate", "t1", "cfg-a", "x", 1, nil)
	c.Store("translate", "t2", "cfg-b", "y", 1, nil)
	c.Store("summarize", "t3", "cfg-a", "z", 1, nil)

	all := c.Stats("")
	assert.True(t, all.Enabled)
	assert.Equal(t, 3, all.Count)
	assert.ElementsMatch(t, []string{"cfg-a", "cfg-b"}, all.Configs)

	tr := c.Stats("translate")
	assert.Equal(t, 2, tr.Count)

	c.Clear("translate")
	assert.Equal(t, 0, c.Stats("translate").Count)
	assert.Equal(t, 1, c.Stats("summarize").Count)

	c.Clear("")
	assert.Equal(t, 0, c.Stats("").Count)
}

func TestCache_ConcurrentWriters(t *testing.T) {
	// GIVEN many goroutines writing and reading distinct keys
	c := openTestCache(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				key := fmt.Sprintf("input-%d-%d", g, i)
				c.Store("translate", key, "cfg", key+"-out", 0.5, nil)
				if out, _, ok := c.Lookup("translate", key, "cfg", nil); ok && out != key+"-out" {
					t.Errorf("read tore: got %q for %q", out, key)
				}
			}
		}(g)
	}
	wg.Wait()

	// THEN no write was lost
	assert.Equal(t, 200, c.Stats("").Count)
	for g := 0; g < 8; g++ {
		for i := 0; i < 25; i++ {
			key := fmt.Sprintf("input-%d-%d", g, i)
			out, _, ok := c.Lookup("translate", key, "cfg", nil)
			require.True(t, ok, "missing %s", key)
			assert.Equal(t, key+"-out", out)
		}
	}
}

func TestCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c := Open(path, false)
	require.True(t, c.Enabled())
	c.Store("translate", "text", "cfg", "persisted", 1.0, map[string]any{"target_lang": "de"})
	c.Checkpoint()
	require.NoError(t, c.Close())

	c2 := Open(path, false)
	defer c2.Close()
	output, duration, ok := c2.Lookup("translate", "text", "cfg", map[string]any{"target_lang": "de"})
	require.True(t, ok)
	assert.Equal(t, "persisted", output)
	assert.Equal(t, 1.0, duration)
}

func TestStableHash(t *testing.T) {
	h := StableHash("hello")
	assert.Len(t, h, 32)
	assert.Equal(t, h, StableHash("hello"))
	assert.NotEqual(t, h, StableHash("hello "))
	assert.Regexp(t, "^[0-9a-f]{32}$", h)
}

func TestCanonicalParams(t *testing.T) {
	// Key order is not semantically distinguishing
	a := CanonicalParams(map[string]any{"b": 2, "a": 1})
	b := CanonicalParams(map[string]any{"a": 1, "b": 2})
	assert.Equal(t, a, b)
	assert.Equal(t, `{"a":1,"b":2}`, a)

	assert.Equal(t, "{}", CanonicalParams(nil))
	assert.Equal(t, "{}", CanonicalParams(map[string]any{}))
}
