package layout_test

import (
	"testing"

	"github.com/ou-cs3113/oufs/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_BlocksPackExactly(t *testing.T) {
	assert.Equal(t, layout.BlockSize, layout.InodesPerBlock*32)
	assert.Equal(t, layout.BlockSize, layout.DirectoryEntriesPerBlock*16)
	assert.Equal(t, 64, layout.TotalInodes)
}

func TestMasterBlock_RoundTrip(t *testing.T) {
	mb := &layout.MasterBlock{}
	mb.BlockAllocated[0] = 0x03
	mb.InodeAllocated[7] = 0x80

	buf := layout.EncodeMasterBlock(mb)
	require.Len(t, buf, layout.BlockSize)

	decoded, err := layout.DecodeMasterBlock(buf)
	require.NoError(t, err)
	assert.Equal(t, mb, decoded)
}

func TestDecodeMasterBlock_WrongSize(t *testing.T) {
	_, err := layout.DecodeMasterBlock(make([]byte, 10))
	assert.Error(t, err)
}

func TestInode_RoundTrip(t *testing.T) {
	var inodes [layout.InodesPerBlock]layout.Inode
	for i := range inodes {
		inodes[i] = layout.NewEmptyInode()
	}
	inodes[3] = layout.Inode{
		Type:        layout.TypeFile,
		NReferences: 1,
		Size:        1234,
		Data:        [layout.BlocksPerInode]layout.BlockRef{9, 10, layout.UnallocatedBlock},
	}

	buf, err := layout.EncodeInodeBlock(inodes)
	require.NoError(t, err)
	require.Len(t, buf, layout.BlockSize)

	decoded, err := layout.DecodeInodeBlock(buf)
	require.NoError(t, err)
	assert.Equal(t, inodes, decoded)
}

func TestDirectoryEntry_EmptyRoundTrips(t *testing.T) {
	entries := layout.NewCleanDirectoryBlock(layout.RootInodeRef, layout.RootInodeRef)
	buf, err := layout.EncodeDirectoryBlock(entries)
	require.NoError(t, err)

	decoded, err := layout.DecodeDirectoryBlock(buf)
	require.NoError(t, err)
	assert.Equal(t, ".", decoded[0].Name)
	assert.Equal(t, "..", decoded[1].Name)
	for i := 2; i < layout.DirectoryEntriesPerBlock; i++ {
		assert.True(t, decoded[i].IsEmpty())
	}
}

func TestDirectoryEntry_NameRoundTrip(t *testing.T) {
	var entries [layout.DirectoryEntriesPerBlock]layout.DirectoryEntry
	for i := range entries {
		entries[i] = layout.EmptyDirectoryEntry()
	}
	entries[5] = layout.DirectoryEntry{Name: "readme.txt", InodeRef: 12}

	buf, err := layout.EncodeDirectoryBlock(entries)
	require.NoError(t, err)

	decoded, err := layout.DecodeDirectoryBlock(buf)
	require.NoError(t, err)
	assert.Equal(t, "readme.txt", decoded[5].Name)
	assert.Equal(t, layout.InodeRef(12), decoded[5].InodeRef)
}

func TestInodeBlockAndSlot(t *testing.T) {
	block, slot := layout.InodeBlockAndSlot(0)
	assert.Equal(t, layout.FirstInodeBlockIndex, block)
	assert.Equal(t, 0, slot)

	block, slot = layout.InodeBlockAndSlot(9)
	assert.Equal(t, layout.FirstInodeBlockIndex+1, block)
	assert.Equal(t, 1, slot)
}

func TestSentinels(t *testing.T) {
	assert.False(t, layout.UnallocatedBlock.IsAllocated())
	assert.False(t, layout.UnallocatedInode.IsAllocated())
	assert.True(t, layout.BlockRef(0).IsAllocated())
}
