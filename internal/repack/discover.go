package repack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/meigma/texpak/internal/chunk"
)

// DefaultThreshold is the on-disk size from which sub chunks are selected
// by default.
const DefaultThreshold int64 = 50 << 20

// Inventory is the set of chunk names found in a directory.
type Inventory struct {
	Dir   string
	Names []chunk.Name

	// Invalid holds parse errors for files that look like chunks but do
	// not parse.
	Invalid []error
}

// Selection pairs a sub chunk with its size on disk.
type Selection struct {
	Name chunk.Name
	Path string
	Size int64
}

// Discover lists the chunk files in dir, sorted.
func Discover(dir string) (*Inventory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("repack: scan %s: %w", dir, err)
	}
	inv := &Inventory{Dir: dir}
	for _, de := range entries {
		if !de.Type().IsRegular() || !chunk.LooksLikeChunk(de.Name()) {
			continue
		}
		name, err := chunk.Parse(de.Name())
		if err != nil {
			inv.Invalid = append(inv.Invalid, err)
			continue
		}
		inv.Names = append(inv.Names, name)
	}
	chunk.Sort(inv.Names)
	return inv, nil
}

// Path returns the file path of name inside the inventory directory.
func (inv *Inventory) Path(name chunk.Name) string {
	return filepath.Join(inv.Dir, name.String())
}

// Contains reports whether name was discovered.
func (inv *Inventory) Contains(name chunk.Name) bool {
	for _, n := range inv.Names {
		if n.Equal(name) {
			return true
		}
	}
	return false
}

// Selections returns the sub chunks without patches, which are the inputs
// of automatic mode.
func (inv *Inventory) Selections() ([]Selection, error) {
	var out []Selection
	for _, n := range inv.Names {
		if !n.IsSub() || n.IsPatch() {
			continue
		}
		path := inv.Path(n)
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("repack: %w", err)
		}
		out = append(out, Selection{Name: n, Path: path, Size: fi.Size()})
	}
	return out, nil
}

// DefaultSelected returns the names of selections at least threshold bytes.
func DefaultSelected(sel []Selection, threshold int64) []chunk.Name {
	var out []chunk.Name
	for _, s := range sel {
		if s.Size >= threshold {
			out = append(out, s.Name)
		}
	}
	return out
}
