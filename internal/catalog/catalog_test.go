package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/usbtotal/internal/testutil/testlog"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMatcherExtensions(t *testing.T) {
	m, err := NewMatcher(DefaultExtensions)
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}
	cases := map[string]bool{
		"game.nsp":          true,
		"dir/game.xci":      true,
		"game [v1].nsz":     true,
		"game.xcz":          true,
		"game.nsp.part":     false,
		"game.NSP":          false,
		"notes.txt":         false,
		"nsp":               false,
		"/abs/path/dlc.nsp": true,
	}
	for path, want := range cases {
		if got := m.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestNewMatcherRejectsBadExtension(t *testing.T) {
	if _, err := NewMatcher(nil); err == nil {
		t.Fatalf("expected error for empty list")
	}
	if _, err := NewMatcher([]string{"nsp"}); err == nil {
		t.Fatalf("expected error for missing dot")
	}
}

func TestDiscoverDirectoryRecursive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.nsp"), 10)
	touch(t, filepath.Join(root, "sub", "deep", "b.xci"), 20)
	touch(t, filepath.Join(root, "sub", "readme.txt"), 5)

	c, err := Discover([]string{root}, DefaultExtensions)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	byName := map[string]Entry{}
	for _, e := range c.Entries() {
		byName[e.Name] = e
	}
	if byName["a.nsp"].Size != 10 || byName["b.xci"].Size != 20 {
		t.Fatalf("unexpected entries: %+v", byName)
	}
	if c.TotalSize() != 30 {
		t.Fatalf("total=%d", c.TotalSize())
	}
}

func TestDiscoverSingleFileAndDedup(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "only.nsz")
	touch(t, p, 7)

	c, err := Discover([]string{p, root}, DefaultExtensions)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if c.Len() != 1 || c.At(0).Path != p || c.At(0).Name != "only.nsz" {
		t.Fatalf("unexpected catalog: %+v", c.Entries())
	}
}

func TestDiscoverSkipsHiddenEntries(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "game.nsp"), 4)
	touch(t, filepath.Join(root, "._game.nsp"), 4)
	touch(t, filepath.Join(root, "._x.nsp"), 4)
	touch(t, filepath.Join(root, ".hidden", "y.xci"), 4)
	touch(t, filepath.Join(root, ".Trashes", "old.xci"), 4)
	touch(t, filepath.Join(root, "sub", ".z.nsz"), 4)

	c, err := Discover([]string{root}, DefaultExtensions)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if c.Len() != 1 || c.At(0).Name != "game.nsp" {
		t.Fatalf("expected only game.nsp, got %+v", c.Entries())
	}

	hiddenRoot := filepath.Join(root, ".hidden")
	c, err = Discover([]string{hiddenRoot}, DefaultExtensions)
	if err != nil {
		t.Fatalf("discover hidden root: %v", err)
	}
	if c.Len() != 1 || c.At(0).Name != "y.xci" {
		t.Fatalf("an explicit hidden root must still be walked, got %+v", c.Entries())
	}
}

func TestDiscoverContinuesPastUnreadableSubtree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any directory")
	}
	testlog.Start(t)
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.nsp"), 4)
	locked := filepath.Join(root, "locked")
	touch(t, filepath.Join(locked, "b.nsp"), 4)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	c, err := Discover([]string{root}, DefaultExtensions)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if c.Len() != 1 || c.At(0).Name != "a.nsp" {
		t.Fatalf("expected a.nsp only, got %+v", c.Entries())
	}
}

func TestDiscoverErrors(t *testing.T) {
	root := t.TempDir()
	txt := filepath.Join(root, "x.txt")
	touch(t, txt, 1)

	if _, err := Discover([]string{txt}, DefaultExtensions); !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("expected ErrInvalidRoot, got %v", err)
	}
	if _, err := Discover([]string{root}, DefaultExtensions); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Discover([]string{filepath.Join(root, "missing")}, DefaultExtensions); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestNewFillsName(t *testing.T) {
	c, err := New([]Entry{{Path: "/x/y/z.nsp", Size: 1}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.At(0).Name != "z.nsp" {
		t.Fatalf("name=%q", c.At(0).Name)
	}
	if _, err := New([]Entry{{Path: " "}}); err == nil {
		t.Fatalf("expected error for blank path")
	}
}
