package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyCache_PutGetRoundTrip(t *testing.T) {
	c := NewKeyCache(10, time.Minute)
	defer c.Close()

	c.Put("chat-1", []byte("a-chat-key"))
	got, ok := c.Get("chat-1")
	assert.True(t, ok)
	assert.Equal(t, []byte("a-chat-key"), got)
}

func TestKeyCache_MissOnUnknown(t *testing.T) {
	c := NewKeyCache(10, time.Minute)
	defer c.Close()

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestKeyCache_ExpiresAfterTTL(t *testing.T) {
	c := NewKeyCache(10, time.Millisecond)
	defer c.Close()

	c.Put("chat-1", []byte("key"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("chat-1")
	assert.False(t, ok)
}

func TestKeyCache_EvictsLeastRecentlyInsertedWhenFull(t *testing.T) {
	c := NewKeyCache(2, time.Minute)
	defer c.Close()

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Put("c", []byte("3"))

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestKeyCache_Clear(t *testing.T) {
	c := NewKeyCache(10, time.Minute)
	defer c.Close()

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestKeyCache_Remove(t *testing.T) {
	c := NewKeyCache(10, time.Minute)
	defer c.Close()

	c.Put("a", []byte("1"))
	c.Remove("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}
