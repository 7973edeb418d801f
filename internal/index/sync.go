package index

import (
	"log/slog"

	"github.com/starford/quire/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new or changed files are upserted
//   - rows whose files are gone are deleted
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
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
		if err := db.Upsert(m); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.Delete(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}
	return nil
}

// indexPath stats one note and upserts its row. changed is false when the
// index already held the same checksum; kind tells whether the row is new.
func indexPath(db *DB, store storage.Provider, path string) (kind string, changed bool, err error) {
	m, err := store.Stat(path)
	if err != nil {
		return "", false, err
	}
	prev, err := db.Get(path)
	if err != nil {
		return "", false, err
	}
	if prev != nil && prev.Checksum == m.Checksum {
		return "", false, nil
	}
	if err := db.Upsert(m); err != nil {
		return "", false, err
	}
	if prev == nil {
		return KindCreated, true, nil
	}
	return KindUpdated, true, nil
}
