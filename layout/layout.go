// Package layout defines the compile-time geometry of a OUFS disk image and
// the on-disk record layouts for the master block, inode blocks, and
// directory blocks. Nothing in this package touches I/O; it only converts
// between Go values and the fixed-size byte layouts that occupy a block. The
// encoding is explicit little-endian (via encoding/binary) rather than raw
// struct memory layout, matching the rest of the disk-image tooling this
// module is built from: the image never leaves the host it was created on,
// but an explicit, self-consistent encoding is what actually matters, and it
// reads better than relying on unsafe.Pointer tricks.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// Fixed geometry. These are burned into the on-disk format: changing any of
// them invalidates every existing image.
const (
	BlockSize                 = 256
	TotalBlocks               = 128
	InodeBlocks               = 8
	InodesPerBlock            = 8
	TotalInodes               = InodeBlocks * InodesPerBlock // 64
	BlocksPerInode            = 8
	DirectoryEntriesPerBlock  = 16
	FileNameSize              = 16
	MaxPathLength             = 256
	MasterBlockIndex          = 0
	FirstInodeBlockIndex      = 1
	FirstDataBlockIndex       = InodeBlocks + 1 // 9
	RootInodeRef    InodeRef = 0
)

// byteOrder is the single point of truth for on-disk integer encoding.
var byteOrder = binary.LittleEndian

// BlockRef identifies a block on the disk. UnallocatedBlock is the sentinel
// for "no block", matching the all-ones pattern used by the original
// implementation; it is chosen to be unreachable by any valid block index
// (TotalBlocks == 128 fits in the low 7 bits of a byte).
type BlockRef uint8

const UnallocatedBlock BlockRef = 0xFF

func (b BlockRef) IsAllocated() bool { return b != UnallocatedBlock }

// InodeRef identifies an inode. UnallocatedInode mirrors BlockRef's sentinel.
type InodeRef uint8

const UnallocatedInode InodeRef = 0xFF

func (i InodeRef) IsAllocated() bool { return i != UnallocatedInode }

// InodeType distinguishes what an inode describes.
type InodeType uint8

const (
	TypeNone InodeType = iota
	TypeDirectory
	TypeFile
)

////////////////////////////////////////////////////////////////////////////////
// Master block: two bitmaps, one bit per block and one bit per inode.

const blockBitmapBytes = TotalBlocks / 8  // 16
const inodeBitmapBytes = TotalInodes / 8  // 8

// MasterBlock is the in-memory form of block 0.
type MasterBlock struct {
	BlockAllocated [blockBitmapBytes]byte
	InodeAllocated [inodeBitmapBytes]byte
}

// EncodeMasterBlock serializes mb into a freshly zeroed BlockSize-byte buffer.
func EncodeMasterBlock(mb *MasterBlock) []byte {
	buf := make([]byte, BlockSize)
	copy(buf[0:blockBitmapBytes], mb.BlockAllocated[:])
	copy(buf[blockBitmapBytes:blockBitmapBytes+inodeBitmapBytes], mb.InodeAllocated[:])
	return buf
}

// DecodeMasterBlock reads a MasterBlock out of a BlockSize-byte buffer.
func DecodeMasterBlock(buf []byte) (*MasterBlock, error) {
	if len(buf) != BlockSize {
		return nil, fmt.Errorf("master block must be %d bytes, got %d", BlockSize, len(buf))
	}
	mb := &MasterBlock{}
	copy(mb.BlockAllocated[:], buf[0:blockBitmapBytes])
	copy(mb.InodeAllocated[:], buf[blockBitmapBytes:blockBitmapBytes+inodeBitmapBytes])
	return mb, nil
}

////////////////////////////////////////////////////////////////////////////////
// Inode: one per file or directory. INodesPerBlock inodes pack exactly into
// one BlockSize-byte block (8 * 32 == 256).

const rawInodeSize = BlockSize / InodesPerBlock // 32

// rawInode is the fixed-width wire format of a single inode. The trailing pad
// exists purely to make InodesPerBlock inodes divide BlockSize evenly; it
// carries no information and is always zeroed.
type rawInode struct {
	Type        uint8
	NReferences uint8
	Size        uint32
	Data        [BlocksPerInode]uint8
	_           [rawInodeSize - 1 - 1 - 4 - BlocksPerInode]byte
}

// Inode is the in-memory form of a single inode record.
type Inode struct {
	Type        InodeType
	NReferences uint8
	Size        uint32
	Data        [BlocksPerInode]BlockRef
}

// NewEmptyInode returns an unallocated-looking inode: type NONE, all data
// pointers UNALLOCATED_BLOCK.
func NewEmptyInode() Inode {
	inode := Inode{Type: TypeNone}
	for i := range inode.Data {
		inode.Data[i] = UnallocatedBlock
	}
	return inode
}

func (inode *Inode) toRaw() rawInode {
	raw := rawInode{
		Type:        uint8(inode.Type),
		NReferences: inode.NReferences,
		Size:        inode.Size,
	}
	for i, ref := range inode.Data {
		raw.Data[i] = uint8(ref)
	}
	return raw
}

func inodeFromRaw(raw rawInode) Inode {
	inode := Inode{
		Type:        InodeType(raw.Type),
		NReferences: raw.NReferences,
		Size:        raw.Size,
	}
	for i, b := range raw.Data {
		inode.Data[i] = BlockRef(b)
	}
	return inode
}

// EncodeInodeBlock serializes InodesPerBlock inodes into a BlockSize-byte
// buffer, in slot order.
func EncodeInodeBlock(inodes [InodesPerBlock]Inode) ([]byte, error) {
	out := make([]byte, BlockSize)
	writer := bytewriter.New(out)
	for i := range inodes {
		raw := inodes[i].toRaw()
		if err := binary.Write(writer, byteOrder, &raw); err != nil {
			return nil, fmt.Errorf("encoding inode slot %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodeInodeBlock deserializes a BlockSize-byte buffer into InodesPerBlock
// inodes, in slot order.
func DecodeInodeBlock(buf []byte) ([InodesPerBlock]Inode, error) {
	var inodes [InodesPerBlock]Inode
	if len(buf) != BlockSize {
		return inodes, fmt.Errorf("inode block must be %d bytes, got %d", BlockSize, len(buf))
	}
	reader := bytes.NewReader(buf)
	for i := 0; i < InodesPerBlock; i++ {
		var raw rawInode
		if err := binary.Read(reader, byteOrder, &raw); err != nil {
			return inodes, fmt.Errorf("decoding inode slot %d: %w", i, err)
		}
		inodes[i] = inodeFromRaw(raw)
	}
	return inodes, nil
}

// InodeBlockAndSlot returns the block index holding InodeRef ref and its
// element offset within that block, per spec.md §4.2.
func InodeBlockAndSlot(ref InodeRef) (blockIndex int, slot int) {
	return int(ref)/InodesPerBlock + FirstInodeBlockIndex, int(ref) % InodesPerBlock
}

////////////////////////////////////////////////////////////////////////////////
// Directory entries. DirectoryEntriesPerBlock entries pack exactly into one
// BlockSize-byte block (16 * 16 == 256): the name array is sized to
// FileNameSize-1 bytes (the maximum a name may actually occupy, per
// invariant 5) with the inode reference taking the 16th byte, rather than
// reserving a full FileNameSize-byte array and overflowing the block.

const rawDirectoryEntrySize = BlockSize / DirectoryEntriesPerBlock // 16

type rawDirectoryEntry struct {
	Name         [FileNameSize - 1]byte
	InodeRefByte uint8
}

// DirectoryEntry is the in-memory form of one directory slot. An entry is
// empty iff InodeRef == UnallocatedInode; Name is meaningless in that case.
type DirectoryEntry struct {
	Name     string
	InodeRef InodeRef
}

func EmptyDirectoryEntry() DirectoryEntry {
	return DirectoryEntry{InodeRef: UnallocatedInode}
}

func (e DirectoryEntry) IsEmpty() bool {
	return e.InodeRef == UnallocatedInode
}

func (e DirectoryEntry) toRaw() rawDirectoryEntry {
	var raw rawDirectoryEntry
	copy(raw.Name[:], e.Name)
	raw.InodeRefByte = uint8(e.InodeRef)
	return raw
}

func directoryEntryFromRaw(raw rawDirectoryEntry) DirectoryEntry {
	entry := DirectoryEntry{InodeRef: InodeRef(raw.InodeRefByte)}
	if entry.InodeRef != UnallocatedInode {
		entry.Name = string(bytes.TrimRight(raw.Name[:], "\x00"))
	}
	return entry
}

// EncodeDirectoryBlock serializes DirectoryEntriesPerBlock entries into a
// BlockSize-byte buffer, in slot order.
func EncodeDirectoryBlock(entries [DirectoryEntriesPerBlock]DirectoryEntry) ([]byte, error) {
	out := make([]byte, BlockSize)
	writer := bytewriter.New(out)
	for i := range entries {
		raw := entries[i].toRaw()
		if err := binary.Write(writer, byteOrder, &raw); err != nil {
			return nil, fmt.Errorf("encoding directory slot %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodeDirectoryBlock deserializes a BlockSize-byte buffer into
// DirectoryEntriesPerBlock entries, in slot order.
func DecodeDirectoryBlock(buf []byte) ([DirectoryEntriesPerBlock]DirectoryEntry, error) {
	var entries [DirectoryEntriesPerBlock]DirectoryEntry
	if len(buf) != BlockSize {
		return entries, fmt.Errorf("directory block must be %d bytes, got %d", BlockSize, len(buf))
	}
	reader := bytes.NewReader(buf)
	for i := 0; i < DirectoryEntriesPerBlock; i++ {
		var raw rawDirectoryEntry
		if err := binary.Read(reader, byteOrder, &raw); err != nil {
			return entries, fmt.Errorf("decoding directory slot %d: %w", i, err)
		}
		entries[i] = directoryEntryFromRaw(raw)
	}
	return entries, nil
}

// NewCleanDirectoryBlock builds a directory block containing just "." -> self
// and ".." -> parent, matching oufs_clean_directory_block.
func NewCleanDirectoryBlock(self, parent InodeRef) [DirectoryEntriesPerBlock]DirectoryEntry {
	var entries [DirectoryEntriesPerBlock]DirectoryEntry
	for i := range entries {
		entries[i] = EmptyDirectoryEntry()
	}
	entries[0] = DirectoryEntry{Name: ".", InodeRef: self}
	entries[1] = DirectoryEntry{Name: "..", InodeRef: parent}
	return entries
}
