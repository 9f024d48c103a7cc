package navcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(2)
	_, ok := c.Get(Key{Op: "FindPath"})
	assert.False(t, ok)
}

func TestPutThenGetHits(t *testing.T) {
	c := New(2)
	key := Key{Op: "FindPath", Args: [6]float32{0, 0, 0, 1, 1, 1}}
	c.Put(key, "result")

	v, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "result", v)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	k1 := Key{Op: "FindPath", Args: [6]float32{1}}
	k2 := Key{Op: "FindPath", Args: [6]float32{2}}
	k3 := Key{Op: "FindPath", Args: [6]float32{3}}

	c.Put(k1, "one")
	c.Put(k2, "two")
	// touch k1 so k2 becomes the least recently used entry
	c.Get(k1)
	c.Put(k3, "three")

	_, ok := c.Get(k2)
	assert.False(t, ok, "k2 should have been evicted")

	v1, ok := c.Get(k1)
	assert.True(t, ok)
	assert.Equal(t, "one", v1)

	v3, ok := c.Get(k3)
	assert.True(t, ok)
	assert.Equal(t, "three", v3)
}

func TestPutOverwritesExistingKey(t *testing.T) {
	c := New(2)
	key := Key{Op: "NearestPoint", Args: [6]float32{5}}
	c.Put(key, "first")
	c.Put(key, "second")

	v, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(2)
	key := Key{Op: "FindPath"}
	c.Put(key, "x")
	c.Clear()

	_, ok := c.Get(key)
	assert.False(t, ok)
}
