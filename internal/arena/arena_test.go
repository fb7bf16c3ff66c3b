package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligns(t *testing.T) {
	a, err := New(1024)
	require.NoError(t, err)
	defer a.Close()

	b, off, err := a.Alloc(3)
	require.NoError(t, err)
	assert.Len(t, b, 3)
	assert.Equal(t, 0, off)

	_, off2, err := a.Alloc(1)
	require.NoError(t, err)
	assert.Equal(t, 8, off2, "second allocation should start after the 8-byte-aligned first block")
}

func TestAllocOutOfMemory(t *testing.T) {
	a, err := New(16)
	require.NoError(t, err)
	defer a.Close()

	_, _, err = a.Alloc(8)
	require.NoError(t, err)

	_, _, err = a.Alloc(16)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestFlushResetsOffset(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	defer a.Close()

	_, _, err = a.Alloc(32)
	require.NoError(t, err)
	assert.Equal(t, 32, a.Used())

	a.Flush()
	assert.Equal(t, 0, a.Used())

	b, off, err := a.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, 0, off)
	assert.Len(t, b, 8)
}

func TestAtRoundTrips(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	defer a.Close()

	b, off, err := a.Alloc(5)
	require.NoError(t, err)
	copy(b, "hello")

	assert.Equal(t, "hello", string(a.At(off, 5)))
}
