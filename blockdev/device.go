// Package blockdev wraps a host file (or any io.ReadWriteSeeker) so the rest
// of the module only ever reads and writes whole, fixed-size blocks by
// index. It plays the same role BlockDevice plays in the disk-image driver
// this module grew out of, trimmed to the single fixed geometry OUFS uses.
package blockdev

import (
	"fmt"
	"io"
	"os"

	ouferrors "github.com/ou-cs3113/oufs/errors"
	"github.com/ou-cs3113/oufs/layout"
)

// Device is a fixed-geometry, block-addressed view over a seekable stream.
type Device struct {
	stream io.ReadWriteSeeker
	closer io.Closer
}

// New wraps an already-open stream. Used by tests with an in-memory fixture.
func New(stream io.ReadWriteSeeker) *Device {
	return &Device{stream: stream}
}

// Open opens the virtual disk image at path for read/write, without
// truncating or creating it. Use Create to initialize a fresh image.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, ouferrors.ErrIO.WrapError(err)
	}
	return &Device{stream: f, closer: f}, nil
}

// Create truncates (or creates) the image at path to exactly
// layout.TotalBlocks * layout.BlockSize bytes of zeroes and returns a Device
// over it, ready for a formatter to lay out the master block.
func Create(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ouferrors.ErrIO.WrapError(err)
	}
	if err := f.Truncate(int64(layout.TotalBlocks) * layout.BlockSize); err != nil {
		f.Close()
		return nil, ouferrors.ErrIO.WrapError(err)
	}
	return &Device{stream: f, closer: f}, nil
}

// Close releases the underlying stream, if it owns one.
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	if err := d.closer.Close(); err != nil {
		return ouferrors.ErrIO.WrapError(err)
	}
	return nil
}

func checkBounds(ref layout.BlockRef) error {
	if int(ref) >= layout.TotalBlocks {
		return ouferrors.ErrIO.WithMessage(
			fmt.Sprintf("block %d out of range [0, %d)", ref, layout.TotalBlocks))
	}
	return nil
}

func (d *Device) offsetOf(ref layout.BlockRef) int64 {
	return int64(ref) * layout.BlockSize
}

// ReadBlock reads exactly one BlockSize-byte block.
func (d *Device) ReadBlock(ref layout.BlockRef) ([]byte, error) {
	if err := checkBounds(ref); err != nil {
		return nil, err
	}
	if _, err := d.stream.Seek(d.offsetOf(ref), io.SeekStart); err != nil {
		return nil, ouferrors.ErrIO.WrapError(err)
	}
	buf := make([]byte, layout.BlockSize)
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return nil, ouferrors.ErrIO.WrapError(err)
	}
	return buf, nil
}

// WriteBlock writes exactly one BlockSize-byte block. data must be exactly
// layout.BlockSize bytes long.
func (d *Device) WriteBlock(ref layout.BlockRef, data []byte) error {
	if err := checkBounds(ref); err != nil {
		return err
	}
	if len(data) != layout.BlockSize {
		return ouferrors.ErrIO.WithMessage(
			fmt.Sprintf("write to block %d must be %d bytes, got %d", ref, layout.BlockSize, len(data)))
	}
	if _, err := d.stream.Seek(d.offsetOf(ref), io.SeekStart); err != nil {
		return ouferrors.ErrIO.WrapError(err)
	}
	if _, err := d.stream.Write(data); err != nil {
		return ouferrors.ErrIO.WrapError(err)
	}
	return nil
}

// ReadMasterBlock is a convenience wrapper reading and decoding block 0.
func (d *Device) ReadMasterBlock() (*layout.MasterBlock, error) {
	buf, err := d.ReadBlock(layout.MasterBlockIndex)
	if err != nil {
		return nil, err
	}
	return layout.DecodeMasterBlock(buf)
}

// WriteMasterBlock is a convenience wrapper encoding and writing block 0.
func (d *Device) WriteMasterBlock(mb *layout.MasterBlock) error {
	return d.WriteBlock(layout.MasterBlockIndex, layout.EncodeMasterBlock(mb))
}

// ReadInode reads and decodes the single inode identified by ref.
func (d *Device) ReadInode(ref layout.InodeRef) (layout.Inode, error) {
	blockIndex, slot := layout.InodeBlockAndSlot(ref)
	buf, err := d.ReadBlock(layout.BlockRef(blockIndex))
	if err != nil {
		return layout.Inode{}, err
	}
	inodes, err := layout.DecodeInodeBlock(buf)
	if err != nil {
		return layout.Inode{}, ouferrors.ErrIO.WrapError(err)
	}
	return inodes[slot], nil
}

// WriteInode reads the inode's containing block, replaces its slot, and
// writes the block back. Inodes cannot be written individually: the block
// they live in must be read-modify-written, like every other block.
func (d *Device) WriteInode(ref layout.InodeRef, inode layout.Inode) error {
	blockIndex, slot := layout.InodeBlockAndSlot(ref)
	buf, err := d.ReadBlock(layout.BlockRef(blockIndex))
	if err != nil {
		return err
	}
	inodes, err := layout.DecodeInodeBlock(buf)
	if err != nil {
		return ouferrors.ErrIO.WrapError(err)
	}
	inodes[slot] = inode
	newBuf, err := layout.EncodeInodeBlock(inodes)
	if err != nil {
		return ouferrors.ErrIO.WrapError(err)
	}
	return d.WriteBlock(layout.BlockRef(blockIndex), newBuf)
}

// ReadDirectoryBlock reads and decodes a directory block.
func (d *Device) ReadDirectoryBlock(ref layout.BlockRef) ([layout.DirectoryEntriesPerBlock]layout.DirectoryEntry, error) {
	var entries [layout.DirectoryEntriesPerBlock]layout.DirectoryEntry
	buf, err := d.ReadBlock(ref)
	if err != nil {
		return entries, err
	}
	entries, err = layout.DecodeDirectoryBlock(buf)
	if err != nil {
		return entries, ouferrors.ErrIO.WrapError(err)
	}
	return entries, nil
}

// WriteDirectoryBlock encodes and writes a directory block.
func (d *Device) WriteDirectoryBlock(ref layout.BlockRef, entries [layout.DirectoryEntriesPerBlock]layout.DirectoryEntry) error {
	buf, err := layout.EncodeDirectoryBlock(entries)
	if err != nil {
		return ouferrors.ErrIO.WrapError(err)
	}
	return d.WriteBlock(ref, buf)
}
