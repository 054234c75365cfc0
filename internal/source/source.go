// Package source fetches remote Lua sources into the local output
// directory so they can be indexed like local ones.
package source

import (
	"context"
	"maps"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/atomicfile"
	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/lockfile"
)

// SyncResult reports what happened during a sync.
type SyncResult struct {
	Downloaded int
	Deleted    int
	Skipped    bool
	LockEntry  *lockfile.LockEntry
}

// SyncOptions controls behavior for source sync operations. OnFile, when
// set, is called with the relative path of every file written.
type SyncOptions struct {
	Force  bool
	DryRun bool
	OnFile func(relPath string)
}

func (o SyncOptions) notify(relPath string) {
	if o.OnFile != nil {
		o.OnFile(relPath)
	}
}

// Source is a remote location holding Lua files.
type Source interface {
	Sync(
		ctx context.Context,
		destDir string,
		prevLock *lockfile.LockEntry,
		opts SyncOptions,
	) (*SyncResult, error)
	Close() error
}

// Warner is implemented by sources that collect non-fatal notices during
// a sync.
type Warner interface {
	Warnings() []string
}

// IsRemote reports whether a configured source needs syncing.
func IsRemote(cfg config.Source) bool {
	return cfg.Type == config.SourceTypeGitHub || cfg.Type == config.SourceTypeURL
}

// New creates a Source from config.
func New(name string, cfg config.Source, token string) (Source, error) {
	switch cfg.Type {
	case config.SourceTypeGitHub:
		return NewGitHub(name, cfg, token)
	case config.SourceTypeURL:
		return NewURL(name, cfg)
	case config.SourceTypeDir:
		return nil, oops.
			Code("SOURCE_LOCAL").
			With("source", name).
			Hint("dir sources are read in place by 'luatags index'").
			Errorf("source %q is a local directory and cannot be synced", name)
	default:
		return nil, oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("type", cfg.Type).
			Hint("Supported types: dir, github, url").
			Errorf("unknown source type %q for source %q", cfg.Type, name)
	}
}

func writeSourceFile(sourceName string, destDir string, relPath string, content []byte) error {
	localPath := filepath.Join(destDir, filepath.FromSlash(relPath))
	if err := atomicfile.Write(localPath, content); err != nil {
		return oops.
			Code("WRITE_FAILED").
			With("source", sourceName).
			With("path", localPath).
			Wrapf(err, "writing synced file")
	}

	return nil
}

func removeSourceFile(sourceName string, destDir string, relPath string) error {
	localPath := filepath.Join(destDir, filepath.FromSlash(relPath))
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return oops.
			Code("WRITE_FAILED").
			With("source", sourceName).
			With("path", localPath).
			Wrapf(err, "deleting stale file")
	}

	cleanupEmptyDirs(filepath.Dir(localPath), destDir)
	return nil
}

func cleanupEmptyDirs(startDir string, stopDir string) {
	current := startDir
	cleanStop := filepath.Clean(stopDir)

	for current != cleanStop && current != "." && current != string(filepath.Separator) {
		entries, err := os.ReadDir(current)
		if err != nil || len(entries) != 0 {
			return
		}

		if removeErr := os.Remove(current); removeErr != nil {
			return
		}

		current = filepath.Dir(current)
	}
}

func cloneLockEntry(entry *lockfile.LockEntry) *lockfile.LockEntry {
	if entry == nil {
		return nil
	}

	cloned := *entry
	if entry.Files != nil {
		cloned.Files = make(map[string]string, len(entry.Files))
		maps.Copy(cloned.Files, entry.Files)
	}

	return &cloned
}
