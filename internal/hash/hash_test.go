package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFNV1a64KnownVector(t *testing.T) {
	// FNV-1a 64-bit of the empty string is the offset basis.
	assert.Equal(t, uint64(offset64), FNV1a64([]byte{}))
}

func TestFNV1a64StringMatchesBytes(t *testing.T) {
	key := "hello world"
	assert.Equal(t, FNV1a64([]byte(key)), FNV1a64String(key))
}

func TestShardIndexIsBitmask(t *testing.T) {
	for shardCount := 1; shardCount <= 128; shardCount *= 2 {
		h := FNV1a64String("some-key")
		idx := ShardIndex(h, shardCount)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, shardCount)
		assert.Equal(t, int(h%uint64(shardCount)), idx, "bitmask routing must match modulo for power-of-two counts")
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(64))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(3))
}
