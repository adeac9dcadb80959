package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/arnvald/zettel/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "zettel-test-*.db")
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

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM zettels`).Scan(&count); err != nil {
		t.Fatalf("zettels table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := ZettelRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Attrs:     map[string]string{"state": "open"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertZettel(row, "This is a hello world zettel.", []string{"other.md"}); err != nil {
		t.Fatalf("UpsertZettel: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetZettel(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertZettel(ZettelRow{
		Path:      "g.md",
		Title:     "Get Me",
		Checksum:  "1",
		Attrs:     map[string]string{"assignee": "alice"},
		UpdatedAt: time.Now(),
	}, "body", nil)

	z, err := db.GetZettel("g.md")
	if err != nil {
		t.Fatalf("GetZettel: %v", err)
	}
	if z.Title != "Get Me" || z.Attrs["assignee"] != "alice" {
		t.Errorf("row = %+v", z)
	}
}

func TestGetZettel_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetZettel("nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListZettels_PaginationAndFilter(t *testing.T) {
	db := testDB(t)
	base := time.Now()
	_ = db.UpsertZettel(ZettelRow{Path: "a.md", Title: "A", Checksum: "1", Attrs: map[string]string{"state": "open"}, UpdatedAt: base.Add(-2 * time.Hour)}, "", nil)
	_ = db.UpsertZettel(ZettelRow{Path: "b.md", Title: "B", Checksum: "2", Attrs: map[string]string{"state": "done"}, UpdatedAt: base.Add(-1 * time.Hour)}, "", nil)
	_ = db.UpsertZettel(ZettelRow{Path: "c.md", Title: "C", Checksum: "3", Attrs: map[string]string{"state": "open"}, UpdatedAt: base}, "", nil)

	rows, total, err := db.ListZettels(2, 0, "", "")
	if err != nil {
		t.Fatalf("ListZettels: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].Path != "c.md" {
		t.Errorf("rows = %+v, want newest first", rows)
	}

	rows, total, err = db.ListZettels(10, 0, "state=open", "path")
	if err != nil {
		t.Fatalf("ListZettels filtered: %v", err)
	}
	if total != 2 || len(rows) != 2 || rows[0].Path != "a.md" || rows[1].Path != "c.md" {
		t.Errorf("filtered rows = %+v (total %d)", rows, total)
	}
}

func TestListZettels_BadInput(t *testing.T) {
	db := testDB(t)
	if _, _, err := db.ListZettels(10, 0, "no-separator", ""); err == nil {
		t.Error("expected error for malformed attr filter")
	}
	if _, _, err := db.ListZettels(10, 0, "", "bogus"); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertZettel(ZettelRow{Path: "a.md", Checksum: "1", UpdatedAt: time.Now()}, "body", []string{"b.md"})
	_ = db.UpsertZettel(ZettelRow{Path: "c.md", Checksum: "2", UpdatedAt: time.Now()}, "body", []string{"b.md"})

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 backlinks, got %d", len(bl))
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertZettel(ZettelRow{Path: "a.md", Title: "A", Checksum: "1", UpdatedAt: time.Now()}, "", []string{"b.md", "c.md"})
	_ = db.UpsertZettel(ZettelRow{Path: "b.md", Title: "B", Checksum: "2", UpdatedAt: time.Now()}, "", nil)

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes = %+v", nodes)
	}
	if nodes[0].Path != "a.md" || nodes[0].Links != 2 {
		t.Errorf("node a = %+v", nodes[0])
	}
	if len(links) != 2 {
		t.Errorf("links = %+v", links)
	}
}

func TestDeleteZettel(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertZettel(ZettelRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()}, "body", []string{"target.md"})

	if err := db.DeleteZettel("del.md"); err != nil {
		t.Fatalf("DeleteZettel: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted zettel still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertZettel(ZettelRow{Path: "up.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", []string{"x.md"})
	_ = db.UpsertZettel(ZettelRow{Path: "up.md", Title: "New", Checksum: "2", Attrs: map[string]string{"state": "done"}, UpdatedAt: now}, "new body", []string{"y.md"})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("x.md")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("y.md")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertZettel(ZettelRow{Path: "a.md", Checksum: "1", UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertZettel(ZettelRow{Path: "b.md", Checksum: "2", UpdatedAt: time.Now()}, "", nil)

	m, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(m) != 2 || m["a.md"] != "1" || m["b.md"] != "2" {
		t.Errorf("checksums = %v", m)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertZettel(ZettelRow{Path: "s.md", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestListZettels_SortByCreated(t *testing.T) {
	db := testDB(t)

	now := time.Now()
	_ = db.UpsertZettel(ZettelRow{Path: "old.md", Checksum: "1", CreatedAt: "2020-01-01", UpdatedAt: now}, "", nil)
	_ = db.UpsertZettel(ZettelRow{Path: "new.md", Checksum: "2", CreatedAt: "2025-06-01", UpdatedAt: now}, "", nil)

	rows, _, err := db.ListZettels(10, 0, "", "created")
	if err != nil {
		t.Fatalf("ListZettels: %v", err)
	}
	if len(rows) != 2 || rows[0].Path != "new.md" || rows[1].Path != "old.md" {
		t.Errorf("rows = %+v", rows)
	}
	if rows[0].CreatedAt != "2025-06-01" {
		t.Errorf("created_at = %q", rows[0].CreatedAt)
	}
}
