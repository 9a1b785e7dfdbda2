package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey(KindSource, "https://example.com/a")
	b := CacheKey(KindSource, "https://example.com/b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, CacheKey(KindSource, "https://example.com/a"))
	assert.Contains(t, a, "wikicite:v1:source:")
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("hello")
	require.NoError(t, c.Set("k", value, 0))
	value[0] = 'j'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got), "stored value is a copy")
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))

	time.Sleep(10 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey(KindSource, "https://example.com")

	require.NoError(t, c.Set(key, []byte("payload"), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, ".cache", filepath.Ext(entries[0].Name()))

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key), "deleting a missing key is fine")
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestDiskCache_ExpiredEntryRemoved(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, c.Set("old", []byte("v"), -time.Second))

	_, ok := c.Get("old")
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, os.WriteFile(c.path("bad"), []byte("{not json"), 0644))

	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()

	first := NewLayeredCache(time.Minute, dir, time.Hour)
	require.NoError(t, first.Set("k", []byte("v"), 0))

	// A fresh process only has the disk layer warm
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	mem, ok := second.memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(mem))

	require.NoError(t, second.Delete("k"))
	_, ok = second.Get("k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	type page struct {
		URL  string `json:"url"`
		Text string `json:"text"`
	}
	require.NoError(t, SetJSON(c, "p", page{URL: "u", Text: "t"}, 0))

	var got page
	require.True(t, GetJSON(c, "p", &got))
	assert.Equal(t, page{URL: "u", Text: "t"}, got)

	assert.False(t, GetJSON(c, "missing", &got))

	require.NoError(t, c.Set("raw", []byte("not json"), 0))
	assert.False(t, GetJSON(c, "raw", &got))
}
