package runner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailBuffer_KeepsEverythingUnderCap(t *testing.T) {
	b := newTailBuffer(64)

	n, err := b.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = b.Write([]byte("world"))
	require.NoError(t, err)

	assert.Equal(t, []byte("hello world"), b.Bytes())
	assert.Equal(t, int64(11), b.TotalBytes())
	assert.False(t, b.Truncated())
}

func TestTailBuffer_DropsOldestWhenOverCap(t *testing.T) {
	b := newTailBuffer(10)

	for i := 0; i < 5; i++ {
		_, err := b.Write([]byte(fmt.Sprintf("line%d\n", i)))
		require.NoError(t, err)
	}

	// cap is 10, so only the last ten bytes survive
	assert.Equal(t, []byte("ne3\nline4\n"), b.Bytes())
	assert.Equal(t, int64(30), b.TotalBytes())
	assert.True(t, b.Truncated())
}

func TestTailBuffer_SingleWriteLargerThanCap(t *testing.T) {
	b := newTailBuffer(4)

	_, err := b.Write([]byte("abcdefgh"))
	require.NoError(t, err)

	assert.Equal(t, []byte("efgh"), b.Bytes())
	assert.True(t, b.Truncated())
}

func TestTailBuffer_ExactlyAtCap(t *testing.T) {
	b := newTailBuffer(4)

	_, err := b.Write([]byte("abcd"))
	require.NoError(t, err)

	assert.Equal(t, []byte("abcd"), b.Bytes())
	assert.False(t, b.Truncated())
}

func TestTailBuffer_DefaultCapWhenZero(t *testing.T) {
	b := newTailBuffer(0)
	assert.Equal(t, DefaultTailBytes, b.maxBytes)
}

func TestTailBuffer_BytesReturnsCopy(t *testing.T) {
	b := newTailBuffer(16)
	_, err := b.Write([]byte("data"))
	require.NoError(t, err)

	got := b.Bytes()
	got[0] = 'X'
	assert.Equal(t, []byte("data"), b.Bytes())
}
