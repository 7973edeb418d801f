package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quire/internal/storage"
)

// Change kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change with one of
// the Kind constants and the note path.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch follows the vault with fsnotify until ctx is cancelled, keeping the
// index in step with files changed outside the API. cb only hears about
// changes the index had not already recorded.
//
// Directories created at runtime are added to the watch list. fsnotify only
// reports the old name of a rename, so renames delete the old row and
// schedule a debounced reconcile that picks up the new name.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Files may land before the directory is watched.
					indexNewDir(db, store, vaultRoot, ev.Name, logger, notify)
					continue
				}
			}

			rel, relErr := filepath.Rel(vaultRoot, ev.Name)
			if relErr != nil {
				continue
			}
			note, ok := store.NotePath(rel)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind, changed, idxErr := indexPath(db, store, note)
				if idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", note), slog.String("error", idxErr.Error()))
					continue
				}
				if changed {
					logger.Debug("watcher: indexed", slog.String("path", note), slog.String("op", kind))
					notify(kind, note)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
				if prev, _ := db.Get(note); prev == nil {
					continue
				}
				if delErr := db.Delete(note); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", note), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", note))
				notify(KindDeleted, note)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile compares the index with a fresh listing, dropping rows whose
// files vanished and indexing files the index has not seen.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		prev, known := checksums[m.Path]
		if known && prev == m.Checksum {
			continue
		}
		if err := db.Upsert(m); err != nil {
			continue
		}
		kind := KindUpdated
		if !known {
			kind = KindCreated
		}
		logger.Debug("reconcile: indexed", slog.String("path", m.Path), slog.String("op", kind))
		notify(kind, m.Path)
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.Delete(p); err == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(KindDeleted, p)
		}
	}
}

// indexNewDir indexes the notes already present in a new directory.
func indexNewDir(db *DB, store storage.Provider, vaultRoot, dir string, logger *slog.Logger, notify EventCallback) {
	_ = filepath.WalkDir(dir, func(abs string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, abs)
		if relErr != nil {
			return nil
		}
		note, ok := store.NotePath(rel)
		if !ok {
			return nil
		}
		if kind, changed, idxErr := indexPath(db, store, note); idxErr == nil && changed {
			logger.Debug("watcher: indexed from new dir", slog.String("path", note))
			notify(kind, note)
		}
		return nil
	})
}

// addDirsRecursive watches root and every visible subdirectory.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
