package index

import (
	"os"
	"testing"
	"time"

	"github.com/starford/quire/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func meta(path string, size int64, cs string) models.NoteMeta {
	return models.NoteMeta{Path: path, Size: size, Checksum: cs, UpdatedAt: time.Now()}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	if err := db.Upsert(meta("work/plan", 12, "abc123")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := db.Get("work/plan")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Checksum != "abc123" || got.Size != 12 {
		t.Errorf("got = %+v", got)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(meta("up", 1, "1"))
	_ = db.Upsert(meta("up", 5, "2"))

	got, _ := db.Get("up")
	if got.Checksum != "2" || got.Size != 5 {
		t.Errorf("got = %+v", got)
	}
	u, _ := db.Usage()
	if u.NoteCount != 1 {
		t.Errorf("count = %d, want 1", u.NoteCount)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	got, err := db.Get("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(meta("del", 3, "x"))
	if err := db.Delete("del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := db.Get("del"); got != nil {
		t.Errorf("deleted note still indexed: %+v", got)
	}
	if err := db.Delete("del"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestRename(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(meta("a/old", 3, "x"))
	_ = db.Upsert(meta("b/new", 9, "stale"))

	if err := db.Rename("a/old", "b/new"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got, _ := db.Get("a/old"); got != nil {
		t.Error("old row still present")
	}
	got, _ := db.Get("b/new")
	if got == nil || got.Checksum != "x" {
		t.Errorf("new row = %+v", got)
	}
}

func TestListAndUsage(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(meta("b", 20, "2"))
	_ = db.Upsert(meta("a", 10, "1"))

	list, err := db.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Path != "a" || list[1].Path != "b" {
		t.Errorf("list = %+v", list)
	}
	u, err := db.Usage()
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.TotalBytes != 30 || u.NoteCount != 2 {
		t.Errorf("usage = %+v", u)
	}
}

func TestUsage_Empty(t *testing.T) {
	db := testDB(t)
	u, err := db.Usage()
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.TotalBytes != 0 || u.NoteCount != 0 {
		t.Errorf("usage = %+v", u)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(meta("a", 1, "c1"))
	_ = db.Upsert(meta("x/y", 1, "c2"))
	m, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 || m["a"] != "c1" || m["x/y"] != "c2" {
		t.Errorf("checksums = %v", m)
	}
}
