package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsStableAndDimensionScoped(t *testing.T) {
	a := Key("mt_author", "same payload")
	b := Key("mt_author", "same payload")
	c := Key("lt_topic", "same payload")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDisabledCacheIsAlwaysMiss(t *testing.T) {
	c := New("", time.Minute)

	_, ok := c.Get(context.Background(), "any-key")
	assert.False(t, ok)

	c.Set(context.Background(), "any-key", "value")
	_, ok = c.Get(context.Background(), "any-key")
	assert.False(t, ok)
}

func TestDisabledCacheCloseIsNoOp(t *testing.T) {
	c := New("", time.Minute)
	assert.NoError(t, c.Close())
}

func TestBloomFilterContainsAfterAdd(t *testing.T) {
	bf := NewBloomFilter(DefaultBloomConfig())

	assert.False(t, bf.Contains("never-added"))

	bf.Add("present")
	assert.True(t, bf.Contains("present"))
	assert.Equal(t, 1, bf.Count())
}

func TestBloomFilterResetClearsMembership(t *testing.T) {
	bf := NewBloomFilter(DefaultBloomConfig())
	bf.Add("present")
	bf.Reset()

	assert.False(t, bf.Contains("present"))
	assert.Equal(t, 0, bf.Count())
}

func TestBloomFilterDefaultsOnInvalidConfig(t *testing.T) {
	bf := NewBloomFilter(BloomConfig{})
	bf.Add("x")
	assert.True(t, bf.Contains("x"))
}
