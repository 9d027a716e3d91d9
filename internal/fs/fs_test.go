package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonzaloamadio/nachos/internal/fs"
)

func TestCreateOpenReadWrite(t *testing.T) {
	f := fs.New()
	require.NoError(t, f.Create("greeting", 0))

	h, ok := f.Open("greeting")
	require.True(t, ok)

	n, err := h.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	h2, ok := f.Open("greeting")
	require.True(t, ok)
	buf := make([]byte, 5)
	n, err = h2.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestCreateDuplicateFails(t *testing.T) {
	f := fs.New()
	require.NoError(t, f.Create("x", 0))
	assert.Error(t, f.Create("x", 0))
}

func TestOpenMissingFails(t *testing.T) {
	f := fs.New()
	_, ok := f.Open("nope")
	assert.False(t, ok)
}

func TestWriteAcrossMultipleBlocks(t *testing.T) {
	f := fs.New()
	require.NoError(t, f.Create("big", 0))
	h, _ := f.Open("big")

	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	n, err := h.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	h2, _ := f.Open("big")
	out := make([]byte, len(payload))
	n, err = h2.Read(out)
	require.NoError(t, err)
	assert.Equal(t, payload, out[:n])
}
