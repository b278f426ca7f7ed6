// Package catalog builds the ordered list of files offered to the peer.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/usbtotal/internal/logging"
	"github.com/gobwas/glob"
)

// DefaultExtensions are the package formats the peer installs.
var DefaultExtensions = []string{".nsp", ".xci", ".nsz", ".xcz"}

var (
	ErrEmpty       = errors.New("catalog: no eligible files")
	ErrInvalidRoot = errors.New("catalog: root is neither an eligible file nor a directory")
)

// Entry is one announced file. It is immutable once the catalog is built.
type Entry struct {
	Path string
	Size uint64
	Name string
}

// Catalog is an ordered, immutable sequence of entries.
type Catalog struct {
	entries []Entry
}

// New validates entries and copies them into a catalog.
func New(entries []Entry) (Catalog, error) {
	if uint64(len(entries)) > math.MaxUint32 {
		return Catalog{}, fmt.Errorf("catalog: %d entries exceed the u32 file count", len(entries))
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return Catalog{}, fmt.Errorf("catalog: entry[%d] missing path", i)
		}
		if e.Name == "" {
			e.Name = filepath.Base(e.Path)
		}
		out[i] = e
	}
	return Catalog{entries: out}, nil
}

func (c Catalog) Len() int {
	return len(c.entries)
}

func (c Catalog) At(i int) Entry {
	return c.entries[i]
}

// Entries returns a copy of the entries in announcement order.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c Catalog) TotalSize() uint64 {
	var total uint64
	for _, e := range c.entries {
		total += e.Size
	}
	return total
}

// Matcher accepts basenames that end in one of the allowed extensions.
type Matcher struct {
	globs []glob.Glob
}

func NewMatcher(extensions []string) (Matcher, error) {
	if len(extensions) == 0 {
		return Matcher{}, fmt.Errorf("catalog: no extensions configured")
	}
	m := Matcher{globs: make([]glob.Glob, 0, len(extensions))}
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return Matcher{}, fmt.Errorf("catalog: invalid extension %q", ext)
		}
		g, err := glob.Compile("*" + ext)
		if err != nil {
			return Matcher{}, fmt.Errorf("catalog: compile extension %q: %w", ext, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m Matcher) Match(path string) bool {
	base := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Discover resolves roots into a catalog. A file root must carry an allowed
// extension; a directory root is walked recursively in lexical order.
// Dot-files and dot-directories below a root are skipped (AppleDouble
// "._*" files, .Trashes).
func Discover(roots []string, extensions []string) (Catalog, error) {
	m, err := NewMatcher(extensions)
	if err != nil {
		return Catalog{}, err
	}
	logger := logging.Component("catalog")
	seen := make(map[string]struct{})
	var entries []Entry
	add := func(path string, size int64) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		entries = append(entries, Entry{Path: path, Size: uint64(size), Name: filepath.Base(path)})
	}

	for _, root := range roots {
		root = strings.TrimSpace(root)
		info, err := os.Stat(root)
		if err != nil {
			return Catalog{}, fmt.Errorf("catalog: stat %s: %w", root, err)
		}
		switch {
		case info.Mode().IsRegular() && m.Match(root):
			add(root, info.Size())
		case info.IsDir():
			_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					logger.Warn().Err(walkErr).Str("path", path).Msg("skipping unreadable path")
					return nil
				}
				if path != root && hidden(d.Name()) {
					if d.IsDir() {
						return fs.SkipDir
					}
					return nil
				}
				if d.IsDir() || !m.Match(path) {
					return nil
				}
				fi, err := os.Stat(path)
				if err != nil || !fi.Mode().IsRegular() {
					return nil
				}
				add(path, fi.Size())
				return nil
			})
		default:
			return Catalog{}, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
		}
	}
	if len(entries) == 0 {
		return Catalog{}, ErrEmpty
	}
	return New(entries)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
