package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnvald/zettel/internal/apperr"
)

// ZettelRow represents a row in the zettels table. Attrs holds the
// attribute bag projected to canonical text values; attribute order is a
// property of the file, not the index.
type ZettelRow struct {
	Path      string
	Title     string
	Checksum  string
	Attrs     map[string]string
	CreatedAt string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// GraphNode is one zettel in the link graph.
type GraphNode struct {
	Path  string
	Title string
	Links int
}

// GraphLink is a directed zlink edge.
type GraphLink struct {
	Source string
	Target string
}

// UpsertZettel inserts or replaces a zettel, its FTS entry, and links within
// a transaction.
func (db *DB) UpsertZettel(z ZettelRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	attrsJSON, _ := json.Marshal(z.Attrs)

	// Upsert zettels table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO zettels (path, title, checksum, attrs, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			attrs      = excluded.attrs,
			body       = excluded.body,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, z.Path, z.Title, z.Checksum, string(attrsJSON), body, z.CreatedAt, z.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert zettel: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, z.Path, z.Title, body, attrValues(z.Attrs)); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, z.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(z.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

func attrValues(attrs map[string]string) []string {
	out := make([]string, 0, len(attrs))
	for _, v := range attrs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// DeleteZettel removes a zettel, its FTS entry, and outgoing links.
func (db *DB) DeleteZettel(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM zettels WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a zettel, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM zettels WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetZettel returns one indexed row by path.
func (db *DB) GetZettel(path string) (*ZettelRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, checksum, attrs, created_at, updated_at
		FROM zettels WHERE path = ?
	`, path)
	z, err := scanRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get zettel: %w", err)
	}
	return z, nil
}

// ListZettels returns a page of indexed zettels. attr optionally filters by
// an exact attribute value, formatted "key=value". sort is one of "updated"
// (default, newest first), "created", "title", or "path".
func (db *DB) ListZettels(limit, offset int, attr, sort string) ([]ZettelRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if attr != "" {
		key, value, ok := strings.Cut(attr, "=")
		if !ok {
			return nil, 0, fmt.Errorf("index: attr filter must be key=value, got %q", attr)
		}
		// Match the JSON projection of the attribute.
		kj, _ := json.Marshal(key)
		vj, _ := json.Marshal(value)
		where = `WHERE attrs LIKE ?`
		args = append(args, "%"+string(kj)+":"+string(vj)+"%")
	}

	var order string
	switch sort {
	case "", "updated":
		order = "updated_at DESC"
	case "created":
		order = "created_at DESC, path ASC"
	case "title":
		order = "title COLLATE NOCASE ASC"
	case "path":
		order = "path ASC"
	default:
		return nil, 0, fmt.Errorf("index: unknown sort %q", sort)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM zettels `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count zettels: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT path, title, checksum, attrs, created_at, updated_at
		FROM zettels %s ORDER BY %s LIMIT ? OFFSET ?
	`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list zettels: %w", err)
	}
	defer rows.Close()

	var out []ZettelRow
	for rows.Next() {
		z, err := scanRow(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *z)
	}
	return out, total, rows.Err()
}

func scanRow(scan func(...any) error) (*ZettelRow, error) {
	var (
		z         ZettelRow
		attrsJSON string
	)
	if err := scan(&z.Path, &z.Title, &z.Checksum, &attrsJSON, &z.CreatedAt, &z.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(attrsJSON), &z.Attrs); err != nil {
		z.Attrs = map[string]string{}
	}
	return &z, nil
}

// Graph returns every indexed zettel as a node plus the zlink edges.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`
		SELECT z.path, z.title,
		       (SELECT COUNT(*) FROM links l WHERE l.source = z.path) AS outgoing
		FROM zettels z ORDER BY z.path
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.Path, &n.Title, &n.Links); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	lrows, err := db.conn.Query(`SELECT source, target FROM links ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer lrows.Close()

	var links []GraphLink
	for lrows.Next() {
		var l GraphLink
		if err := lrows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, lrows.Err()
}

// Backlinks returns all zettel paths that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed zettel path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM zettels`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path to checksum for every indexed zettel.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM zettels`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
