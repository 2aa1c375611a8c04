package oufs_test

import (
	"testing"

	"github.com/ou-cs3113/oufs"
	"github.com/ou-cs3113/oufs/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead_RoundTrip(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Touch("/a.txt"))

	w, err := fs.Open("/a.txt", oufs.ModeWrite)
	require.NoError(t, err)
	n, err := w.Write([]byte("hello, world"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	require.NoError(t, w.Close())

	r, err := fs.Open("/a.txt", oufs.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 32)
	read, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(buf[:read]))
}

func TestWrite_AcrossBlockBoundary(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Touch("/big.bin"))

	data := make([]byte, layout.BlockSize+10)
	for i := range data {
		data[i] = byte(i % 251)
	}

	w, err := fs.Open("/big.bin", oufs.ModeWrite)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	r, err := fs.Open("/big.bin", oufs.ModeRead)
	require.NoError(t, err)
	out := make([]byte, len(data))
	read, err := r.Read(out)
	require.NoError(t, err)
	assert.Equal(t, len(data), read)
	assert.Equal(t, data, out)
}

func TestWrite_StopsAtCapacity(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Touch("/full.bin"))

	capacity := layout.BlocksPerInode * layout.BlockSize
	data := make([]byte, capacity+100)

	w, err := fs.Open("/full.bin", oufs.ModeWrite)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, capacity, n, "write must stop at file capacity without erroring")
}

func TestOpen_WriteTruncatesExisting(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Touch("/a.txt"))

	w, err := fs.Open("/a.txt", oufs.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("first contents, long enough to span blocks maybe"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := fs.Open("/a.txt", oufs.ModeWrite)
	require.NoError(t, err)
	n, err := w2.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, w2.Close())

	r, err := fs.Open("/a.txt", oufs.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 32)
	read, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf[:read]))
}

func TestOpen_AppendStartsAtEnd(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Touch("/a.txt"))

	w, err := fs.Open("/a.txt", oufs.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	a, err := fs.Open("/a.txt", oufs.ModeAppend)
	require.NoError(t, err)
	_, err = a.Write([]byte("def"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	r, err := fs.Open("/a.txt", oufs.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 10)
	read, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(buf[:read]))
}

func TestOpen_WriteCreatesMissingFile(t *testing.T) {
	fs := newFormattedDisk(t)
	w, err := fs.Open("/new.txt", oufs.ModeWrite)
	require.NoError(t, err)
	assert.True(t, w.IsValid())
}

func TestOpen_ReadMissingFileFails(t *testing.T) {
	fs := newFormattedDisk(t)
	h, err := fs.Open("/missing.txt", oufs.ModeRead)
	assert.Error(t, err)
	assert.False(t, h.IsValid())
}

func TestOpen_ReadOnDirectoryFails(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Mkdir("/a"))
	h, err := fs.Open("/a", oufs.ModeRead)
	assert.Error(t, err)
	assert.False(t, h.IsValid())
}

func TestAppend_MidBlockOffsetDoesNotPanic(t *testing.T) {
	fs := newFormattedDisk(t)
	require.NoError(t, fs.Touch("/mid.bin"))

	// Leave the file at a non-block-aligned size before appending, so the
	// append's starting offset falls in the middle of an already-allocated
	// block rather than at byte 0 of a fresh one.
	w, err := fs.Open("/mid.bin", oufs.ModeWrite)
	require.NoError(t, err)
	prefix := make([]byte, layout.BlockSize+50)
	_, err = w.Write(prefix)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	a, err := fs.Open("/mid.bin", oufs.ModeAppend)
	require.NoError(t, err)
	n, err := a.Write([]byte("tail"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, a.Close())

	r, err := fs.Open("/mid.bin", oufs.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, len(prefix)+4)
	read, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "tail", string(buf[read-4:read]))
}

func TestParseMode(t *testing.T) {
	m, err := oufs.ParseMode("r")
	require.NoError(t, err)
	assert.Equal(t, oufs.ModeRead, m)

	_, err = oufs.ParseMode("x")
	assert.Error(t, err)
}
