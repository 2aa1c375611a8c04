package diag_test

import (
	"testing"

	"github.com/ou-cs3113/oufs"
	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/diag"
	"github.com/ou-cs3113/oufs/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newFormattedDisk(t *testing.T) (*blockdev.Device, *oufs.FileSystem) {
	t.Helper()
	buf := make([]byte, layout.TotalBlocks*layout.BlockSize)
	dev := blockdev.New(bytesextra.NewReadWriteSeeker(buf))
	require.NoError(t, oufs.Format(dev))
	return dev, oufs.Open(dev, "/")
}

func TestCheck_FreshFormatIsClean(t *testing.T) {
	dev, _ := newFormattedDisk(t)
	violations, err := diag.Check(dev)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheck_AfterOperationsIsClean(t *testing.T) {
	dev, fs := newFormattedDisk(t)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Touch("/a/b.txt"))

	w, err := fs.Open("/a/b.txt", oufs.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write(make([]byte, layout.BlockSize+5))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, fs.Remove("/a/b.txt"))
	require.NoError(t, fs.Rmdir("/a"))

	violations, err := diag.Check(dev)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheck_DetectsBitmapMismatch(t *testing.T) {
	dev, _ := newFormattedDisk(t)

	mb, err := dev.ReadMasterBlock()
	require.NoError(t, err)
	mb.BlockAllocated[3] |= 0x01 // mark block 24 allocated with no referent
	require.NoError(t, dev.WriteMasterBlock(mb))

	violations, err := diag.Check(dev)
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}
