package emberkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSetGetDeleteFlush(t *testing.T) {
	c, err := Open(Config{ShardCount: 4, PoolBytes: 4 * 4 << 20})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set([]byte("k"), []byte("v"), 0, 0))

	value, _, found := c.Get([]byte("k"))
	require.True(t, found)
	assert.Equal(t, []byte("v"), value)

	assert.True(t, c.Delete([]byte("k")))
	_, _, found = c.Get([]byte("k"))
	assert.False(t, found)

	require.NoError(t, c.Set([]byte("j"), []byte("w"), 0, 0))
	c.Flush()
	assert.EqualValues(t, 0, c.Stats().CurrItems)
}

func TestGetIntoTooSmallReportsRequiredLength(t *testing.T) {
	c, err := Open(Config{ShardCount: 2, PoolBytes: 2 * 4 << 20})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set([]byte("k"), []byte("hello"), 0, 0))

	dst := make([]byte, 2)
	n, required, status := c.GetInto([]byte("k"), dst)
	assert.Equal(t, 0, n)
	assert.Equal(t, 5, required)
	assert.Equal(t, GetIntoTooSmall, status)
}
