package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/arnvald/zettel/internal/checksum"
	"github.com/arnvald/zettel/internal/storage"
	"github.com/arnvald/zettel/internal/zettel"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, d zettel.Dialect, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, d); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteZettel(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data in the vault dialect and upserts it into the DB.
func indexFile(db *DB, path string, data []byte, d zettel.Dialect) error {
	z, err := zettel.Parse(string(data), d)
	if err != nil {
		return err
	}

	attrs := make(map[string]string, z.Attrs.Len())
	for _, k := range z.Attrs.Keys() {
		v, _ := z.Attrs.Get(k)
		attrs[k] = v.String()
	}

	row := ZettelRow{
		Path:      path,
		Title:     z.Title,
		Checksum:  checksum.Sum(data),
		Attrs:     attrs,
		CreatedAt: attrs["creation_date"],
		UpdatedAt: time.Now().UTC(),
	}
	return db.UpsertZettel(row, bodyText(z), z.Links())
}

// bodyText flattens sections into one searchable blob.
func bodyText(z *zettel.Zettel) string {
	var parts []string
	for _, s := range z.Sections {
		if s.Heading != "" {
			parts = append(parts, s.Heading)
		}
		if s.Body != "" {
			parts = append(parts, s.Body)
		}
	}
	return strings.Join(parts, "\n")
}
