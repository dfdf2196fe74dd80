// Package tree lists the regular files of a directory tree as slash-separated
// paths relative to its root.
package tree

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"TreeCompare/internal/failure"
)

// Tree is a directory root together with the filesystem rooted at it.
// All FS calls take paths relative to Root.
type Tree struct {
	Root string
	FS   billy.Filesystem
}

// Listing is the result of a walk. Skipped holds subtrees that could not be read.
type Listing struct {
	Files   []string
	Skipped []*failure.WalkError
}

// Open returns a Tree for the directory at root. A missing root, or a root
// that is not a directory, is an error.
func Open(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open tree: %s is not a directory", abs)
	}
	return New(abs, osfs.New(abs)), nil
}

// New wraps an existing filesystem. root is only used to build absolute paths.
func New(root string, fsys billy.Filesystem) *Tree {
	return &Tree{Root: root, FS: fsys}
}

// Abs returns the host path of rel under the tree root.
func (t *Tree) Abs(rel string) string {
	return filepath.Join(t.Root, filepath.FromSlash(rel))
}

// Walk lists all regular files below the root in sorted order. Symlinks are
// not followed. A subtree that cannot be read is skipped and recorded in
// Listing.Skipped; an unreadable root aborts the walk.
func (t *Tree) Walk() (*Listing, error) {
	out := &Listing{}

	err := util.Walk(t.FS, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == "." {
				return err
			}
			out.Skipped = append(out.Skipped, &failure.WalkError{Path: t.Abs(p), Err: err})
			return nil
		}
		if info.Mode().IsRegular() {
			out.Files = append(out.Files, filepath.ToSlash(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", t.Root, err)
	}

	sort.Strings(out.Files)
	return out, nil
}

// FilterExt keeps the paths whose name ends in one of exts. An empty exts keeps everything.
// Matching is case-sensitive.
func FilterExt(files []string, exts []string) []string {
	if len(exts) == 0 {
		return files
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		name := path.Base(f)
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Intersect returns the sorted paths present in both a and b.
func Intersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, f := range b {
		inB[f] = struct{}{}
	}
	out := make([]string, 0)
	for _, f := range a {
		if _, ok := inB[f]; ok {
			out = append(out, f)
			delete(inB, f)
		}
	}
	sort.Strings(out)
	return out
}
