package oufs

import (
	"strings"

	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/layout"
)

// Resolution is the outcome of walking a path. Exactly one of Found,
// NotFound, or NotADirectory holds, distinguished by Kind. This replaces the
// out-parameter-and-flag convention of the routine it is grounded on with a
// tagged value: ambiguity between "not found" and "keep walking" cannot be
// expressed.
type ResolutionKind int

const (
	Found ResolutionKind = iota
	NotFound
	NotADirectory
)

type Resolution struct {
	Kind ResolutionKind

	// Parent is the inode of the directory that contains (or would contain)
	// the leaf. Valid for Found and NotFound.
	Parent layout.InodeRef
	// Child is the leaf's own inode. Valid only when Kind == Found.
	Child layout.InodeRef
	// LeafName is the final path component. Valid for Found and NotFound.
	LeafName string
}

// normalizePath mirrors oufs_relative_path: an empty path means "use cwd
// unchanged"; a leading slash means the path is already absolute; anything
// else is joined onto cwd.
func normalizePath(cwd, path string) string {
	if path == "" {
		return cwd
	}
	if strings.HasPrefix(path, "/") {
		return path
	}
	return cwd + "/" + path
}

// splitTokens splits a normalized path on '/' and discards empty tokens, so
// "//a//b/" yields ["a", "b"].
func splitTokens(path string) []string {
	raw := strings.Split(path, "/")
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// resolve walks a path from the root directory, following the algorithm in
// section 4.4: start at the fixed root directory block, and for each path
// component scan the current directory's 16 entries for an exact name
// match. The original source conflated "not found" with "continue
// descending" through an uninitialized flag and overwrote an output
// parameter's pointer by value instead of through it; this implementation
// always returns one of three explicit outcomes instead.
func resolve(dev *blockdev.Device, cwd, path string) (Resolution, error) {
	tokens := splitTokens(normalizePath(cwd, path))

	parent := layout.RootInodeRef
	current := layout.RootInodeRef
	currentBlock := layout.BlockRef(layout.FirstDataBlockIndex)

	if len(tokens) == 0 {
		return Resolution{Kind: Found, Parent: parent, Child: current, LeafName: "/"}, nil
	}

	for i, token := range tokens {
		entries, err := dev.ReadDirectoryBlock(currentBlock)
		if err != nil {
			return Resolution{}, err
		}

		found := false
		for _, entry := range entries {
			if entry.IsEmpty() {
				continue
			}
			if entry.Name != token {
				continue
			}
			found = true
			parent = current
			current = entry.InodeRef

			inode, err := dev.ReadInode(current)
			if err != nil {
				return Resolution{}, err
			}

			isLastToken := i == len(tokens)-1
			if !isLastToken {
				if inode.Type != layout.TypeDirectory {
					return Resolution{Kind: NotADirectory}, nil
				}
				currentBlock = inode.Data[0]
			}
			break
		}

		if !found {
			return Resolution{Kind: NotFound, Parent: current, LeafName: token}, nil
		}
	}

	return Resolution{Kind: Found, Parent: parent, Child: current, LeafName: tokens[len(tokens)-1]}, nil
}

// splitParentAndBase splits a path into its parent directory path and its
// final component, the way dirname/basename do for mkdir, rmdir, touch, and
// link.
func splitParentAndBase(path string) (parentDir, base string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	if idx == 0 {
		return "/", path[1:]
	}
	return path[:idx], path[idx+1:]
}
