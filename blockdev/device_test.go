package blockdev_test

import (
	"testing"

	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newFixture(t *testing.T) *blockdev.Device {
	t.Helper()
	buf := make([]byte, layout.TotalBlocks*layout.BlockSize)
	return blockdev.New(bytesextra.NewReadWriteSeeker(buf))
}

func TestReadWriteBlock_RoundTrip(t *testing.T) {
	dev := newFixture(t)
	data := make([]byte, layout.BlockSize)
	for i := range data {
		data[i] = byte(i)
	}

	require.NoError(t, dev.WriteBlock(5, data))
	got, err := dev.ReadBlock(5)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadBlock_OutOfRange(t *testing.T) {
	dev := newFixture(t)
	_, err := dev.ReadBlock(layout.BlockRef(layout.TotalBlocks))
	assert.Error(t, err)
}

func TestWriteBlock_WrongSize(t *testing.T) {
	dev := newFixture(t)
	err := dev.WriteBlock(0, make([]byte, 10))
	assert.Error(t, err)
}

func TestMasterBlock_RoundTrip(t *testing.T) {
	dev := newFixture(t)
	mb := &layout.MasterBlock{}
	mb.BlockAllocated[0] = 0xFF

	require.NoError(t, dev.WriteMasterBlock(mb))
	got, err := dev.ReadMasterBlock()
	require.NoError(t, err)
	assert.Equal(t, mb, got)
}

func TestInode_RoundTrip(t *testing.T) {
	dev := newFixture(t)
	var inodes [layout.InodesPerBlock]layout.Inode
	for i := range inodes {
		inodes[i] = layout.NewEmptyInode()
	}
	buf, err := layout.EncodeInodeBlock(inodes)
	require.NoError(t, err)
	require.NoError(t, dev.WriteBlock(layout.FirstInodeBlockIndex, buf))

	inode := layout.Inode{Type: layout.TypeFile, NReferences: 1, Size: 42}
	for i := range inode.Data {
		inode.Data[i] = layout.UnallocatedBlock
	}
	require.NoError(t, dev.WriteInode(3, inode))

	got, err := dev.ReadInode(3)
	require.NoError(t, err)
	assert.Equal(t, inode, got)

	other, err := dev.ReadInode(0)
	require.NoError(t, err)
	assert.Equal(t, layout.TypeNone, other.Type)
}

func TestDirectoryBlock_RoundTrip(t *testing.T) {
	dev := newFixture(t)
	entries := layout.NewCleanDirectoryBlock(layout.RootInodeRef, layout.RootInodeRef)
	require.NoError(t, dev.WriteDirectoryBlock(layout.FirstDataBlockIndex, entries))

	got, err := dev.ReadDirectoryBlock(layout.FirstDataBlockIndex)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}
