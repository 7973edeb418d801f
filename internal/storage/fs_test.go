package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/starford/quire/internal/checksum"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestNewFSNormalizesExt(t *testing.T) {
	fs, err := NewFS(t.TempDir(), "json")
	if err != nil {
		t.Fatal(err)
	}
	if fs.Ext() != ".json" {
		t.Errorf("ext = %q", fs.Ext())
	}
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	body := []byte("<h1>Hello</h1>")
	if err := s.Write("note", body); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "note.html")); err != nil {
		t.Errorf("file not stored with extension: %v", err)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("x", []byte("1"))
	_ = s.Write("x", []byte("2"))
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestRejectsBadPaths(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"", "/abs", "a//b", "../escape", "a/../../b", "trail/"} {
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q): expected error", p)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) = true", p)
		}
	}
}

func TestReadMissing(t *testing.T) {
	s := tempVault(t)
	if _, err := s.Read("nope"); !errors.Is(err, ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestDeletePrunesEmptyFolders(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a/b/c", []byte("bye"))
	_ = s.Write("a/keep", []byte("stay"))
	if err := s.Delete("a/b/c"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "a", "b")); !os.IsNotExist(err) {
		t.Error("empty folder a/b should be removed")
	}
	if !s.Exists("a/keep") {
		t.Error("sibling note removed")
	}
	if err := s.Delete("a/b/c"); !errors.Is(err, ErrNotExist) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old/name", []byte("data"))
	if err := s.Move("old/name", "new/dir/name"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if s.Exists("old/name") {
		t.Error("old path still exists")
	}
	got, err := s.Read("new/dir/name")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "old")); !os.IsNotExist(err) {
		t.Error("emptied source folder should be removed")
	}
	if err := s.Move("ghost", "x"); !errors.Is(err, ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a", []byte("1"))
	_ = s.Write("sub/b", []byte("22"))
	_ = os.WriteFile(filepath.Join(s.Root(), "readme.txt"), []byte("skip"), 0o644)
	_ = os.MkdirAll(filepath.Join(s.Root(), ".hidden"), 0o755)
	_ = os.WriteFile(filepath.Join(s.Root(), ".hidden", "c.html"), []byte("skip"), 0o644)

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Path < metas[j].Path })
	if len(metas) != 2 {
		t.Fatalf("got %d notes, want 2: %+v", len(metas), metas)
	}
	if metas[0].Path != "a" || metas[1].Path != "sub/b" {
		t.Errorf("paths = %q, %q", metas[0].Path, metas[1].Path)
	}
	if metas[1].Size != 2 || metas[1].Checksum != checksum.Sum([]byte("22")) {
		t.Errorf("meta = %+v", metas[1])
	}
}

func TestNotePath(t *testing.T) {
	s := tempVault(t)
	tests := []struct {
		rel  string
		want string
		ok   bool
	}{
		{"a.html", "a", true},
		{"x/y.html", "x/y", true},
		{"x/.quire-tmp-123", "", false},
		{"notes.md", "", false},
		{".html", "", false},
	}
	for _, tt := range tests {
		got, ok := s.NotePath(tt.rel)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NotePath(%q) = %q, %v; want %q, %v", tt.rel, got, ok, tt.want, tt.ok)
		}
	}
}
