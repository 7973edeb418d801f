// Package testutil provides shared test helpers: temp vaults, index
// databases, a wired note service and an in-memory remote.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

// TestDB creates a temporary SQLite index that is removed after the test.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault with the default note extension.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir, "")
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// NoteService wires a note service over a fresh vault and index.
func NoteService(t *testing.T, opts ...noteservice.Option) (*noteservice.Service, string) {
	t.Helper()
	vaultDir, store := TestVault(t)
	return noteservice.NewService(store, TestDB(t), opts...), vaultDir
}
