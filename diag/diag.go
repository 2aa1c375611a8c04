// Package diag implements a fsck-style consistency checker for a OUFS
// image: it walks every inode and verifies the invariants a healthy
// filesystem must satisfy between operations, independent of the
// operations themselves. This is not a verb the original implementation
// exposes, but it is licensed by the invariants it documents (section 8 of
// the specification this module implements) and by the rest of this
// module's test tooling, which already needs a way to assert on-disk
// consistency after a sequence of operations.
package diag

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/ou-cs3113/oufs/alloc"
	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/layout"
)

// Violation describes one invariant failure found while checking an image.
// The csv tags let a slice of Violations be handed straight to gocsv (see
// WriteCSV) for the --csv output mode of the fsck verb.
type Violation struct {
	Invariant string `csv:"invariant"`
	Target    string `csv:"target"`
	Detail    string `csv:"detail"`
}

// Check walks every inode on dev and returns every invariant violation it
// finds. A nil/empty result means the image is internally consistent.
func Check(dev *blockdev.Device) ([]Violation, error) {
	var violations []Violation

	referencedBlocks := map[layout.BlockRef]bool{}

	for ref := layout.InodeRef(0); int(ref) < layout.TotalInodes; ref++ {
		inode, err := dev.ReadInode(ref)
		if err != nil {
			return nil, err
		}

		allocated, err := alloc.IsInodeAllocated(dev, ref)
		if err != nil {
			return nil, err
		}

		if allocated && inode.Type == layout.TypeNone {
			violations = append(violations, Violation{
				Invariant: "1",
				Target:    fmt.Sprintf("inode %d", ref),
				Detail:    "bitmap marks inode allocated but its type is NONE",
			})
		}
		if !allocated && inode.Type != layout.TypeNone {
			violations = append(violations, Violation{
				Invariant: "1",
				Target:    fmt.Sprintf("inode %d", ref),
				Detail:    "inode has a type but its bitmap bit is clear",
			})
		}

		if ref == layout.RootInodeRef {
			checkRoot(dev, inode, &violations)
		}

		switch inode.Type {
		case layout.TypeDirectory:
			checkDirectory(dev, ref, inode, &violations, referencedBlocks)
		case layout.TypeFile:
			checkFile(ref, inode, &violations, referencedBlocks)
		}
	}

	if err := checkBlockBitmap(dev, referencedBlocks, &violations); err != nil {
		return nil, err
	}

	return violations, nil
}

func checkRoot(dev *blockdev.Device, inode layout.Inode, violations *[]Violation) {
	if inode.Type != layout.TypeDirectory {
		*violations = append(*violations, Violation{
			Invariant: "2", Target: "inode 0", Detail: "root inode is not a directory",
		})
		return
	}
	if inode.Data[0] != layout.BlockRef(layout.FirstDataBlockIndex) {
		*violations = append(*violations, Violation{
			Invariant: "2", Target: "inode 0",
			Detail: fmt.Sprintf("root data[0] = %d, want %d", inode.Data[0], layout.FirstDataBlockIndex),
		})
	}

	entries, err := dev.ReadDirectoryBlock(inode.Data[0])
	if err != nil {
		*violations = append(*violations, Violation{Invariant: "2", Target: "inode 0", Detail: err.Error()})
		return
	}
	if entries[0].Name != "." || entries[0].InodeRef != layout.RootInodeRef {
		*violations = append(*violations, Violation{Invariant: "2", Target: "inode 0", Detail: `"." must point to inode 0`})
	}
	if entries[1].Name != ".." || entries[1].InodeRef != layout.RootInodeRef {
		*violations = append(*violations, Violation{Invariant: "2", Target: "inode 0", Detail: `".." must point to inode 0`})
	}
}

func checkDirectory(dev *blockdev.Device, ref layout.InodeRef, inode layout.Inode, violations *[]Violation, referencedBlocks map[layout.BlockRef]bool) {
	if !inode.Data[0].IsAllocated() {
		*violations = append(*violations, Violation{
			Invariant: "3", Target: fmt.Sprintf("inode %d", ref), Detail: "directory has no data block",
		})
		return
	}
	referencedBlocks[inode.Data[0]] = true

	entries, err := dev.ReadDirectoryBlock(inode.Data[0])
	if err != nil {
		*violations = append(*violations, Violation{Invariant: "3", Target: fmt.Sprintf("inode %d", ref), Detail: err.Error()})
		return
	}

	if entries[0].Name != "." {
		*violations = append(*violations, Violation{
			Invariant: "3", Target: fmt.Sprintf("inode %d", ref), Detail: `first entry must be "."`,
		})
	}
	if entries[1].Name != ".." {
		*violations = append(*violations, Violation{
			Invariant: "3", Target: fmt.Sprintf("inode %d", ref), Detail: `second entry must be ".."`,
		})
	}

	seenNames := map[string]bool{}
	active := uint32(0)
	for _, entry := range entries {
		if entry.IsEmpty() {
			continue
		}
		active++
		if len(entry.Name) == 0 || len(entry.Name) > layout.FileNameSize-1 {
			*violations = append(*violations, Violation{
				Invariant: "5", Target: fmt.Sprintf("inode %d", ref),
				Detail: fmt.Sprintf("entry name %q has invalid length", entry.Name),
			})
		}
		if seenNames[entry.Name] {
			*violations = append(*violations, Violation{
				Invariant: "5", Target: fmt.Sprintf("inode %d", ref),
				Detail: fmt.Sprintf("duplicate entry name %q", entry.Name),
			})
		}
		seenNames[entry.Name] = true
	}

	if active != inode.Size {
		*violations = append(*violations, Violation{
			Invariant: "3", Target: fmt.Sprintf("inode %d", ref),
			Detail: fmt.Sprintf("size field is %d but %d entries are active", inode.Size, active),
		})
	}
}

func checkFile(ref layout.InodeRef, inode layout.Inode, violations *[]Violation, referencedBlocks map[layout.BlockRef]bool) {
	wantBlocks := 0
	if inode.Size > 0 {
		wantBlocks = int((inode.Size + layout.BlockSize - 1) / layout.BlockSize)
	}

	seenUnallocated := false
	gotBlocks := 0
	for i, blockRef := range inode.Data {
		if blockRef.IsAllocated() {
			if seenUnallocated {
				*violations = append(*violations, Violation{
					Invariant: "4", Target: fmt.Sprintf("inode %d", ref),
					Detail: fmt.Sprintf("data[%d] allocated after an unallocated slot", i),
				})
			}
			gotBlocks++
			referencedBlocks[blockRef] = true
		} else {
			seenUnallocated = true
		}
	}

	if gotBlocks != wantBlocks {
		*violations = append(*violations, Violation{
			Invariant: "4", Target: fmt.Sprintf("inode %d", ref),
			Detail: fmt.Sprintf("size %d implies %d blocks, found %d", inode.Size, wantBlocks, gotBlocks),
		})
	}
}

func checkBlockBitmap(dev *blockdev.Device, referencedBlocks map[layout.BlockRef]bool, violations *[]Violation) error {
	for i := layout.FirstDataBlockIndex; i < layout.TotalBlocks; i++ {
		ref := layout.BlockRef(i)
		allocated, err := alloc.IsBlockAllocated(dev, ref)
		if err != nil {
			return err
		}
		if allocated && !referencedBlocks[ref] {
			*violations = append(*violations, Violation{
				Invariant: "1", Target: fmt.Sprintf("block %d", ref),
				Detail: "marked allocated but not referenced by any live inode",
			})
		}
		if !allocated && referencedBlocks[ref] {
			*violations = append(*violations, Violation{
				Invariant: "1", Target: fmt.Sprintf("block %d", ref),
				Detail: "referenced by a live inode but not marked allocated",
			})
		}
	}
	return nil
}

// WriteCSV renders violations as CSV onto w, for the fsck verb's --csv flag.
func WriteCSV(violations []Violation, w *os.File) error {
	return gocsv.MarshalFile(&violations, w)
}
