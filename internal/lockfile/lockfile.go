// Package lockfile records what each remote source last synced, so the next
// sync only transfers changed Lua files.
package lockfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/atomicfile"
)

const (
	FileName       = ".luatags.lock"
	currentVersion = 1
)

type LockFile struct {
	Version int                   `json:"version"`
	Sources map[string]*LockEntry `json:"sources"`
}

// LockEntry is the sync state of one source. Files maps a path relative to
// the source's output directory to the blob SHA it was written from.
type LockEntry struct {
	Type        string            `json:"type"`
	Repo        string            `json:"repo,omitempty"`
	URL         string            `json:"url,omitempty"`
	TreeSHA     string            `json:"tree_sha,omitempty"`
	RefResolved string            `json:"ref_resolved,omitempty"`
	ETag        string            `json:"etag,omitempty"`
	LastMod     string            `json:"last_modified,omitempty"`
	SyncedAt    time.Time         `json:"synced_at"`
	Files       map[string]string `json:"files,omitempty"`
}

func Path(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

func Load(outputDir string) (*LockFile, error) {
	lockPath := Path(outputDir)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}

		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			Wrapf(err, "reading lock file")
	}

	lock := &LockFile{}
	if unmarshalErr := json.Unmarshal(data, lock); unmarshalErr != nil {
		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			Hint("Delete the lock file and run 'luatags sync --force' to regenerate it").
			Wrapf(unmarshalErr, "parsing lock file")
	}

	if lock.Version == 0 {
		lock.Version = currentVersion
	}

	if lock.Version > currentVersion {
		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			With("version", lock.Version).
			Hint("Upgrade luatags or delete the lock file").
			Errorf("lock file version %d is newer than supported version %d", lock.Version, currentVersion)
	}

	if lock.Sources == nil {
		lock.Sources = map[string]*LockEntry{}
	}

	return lock, nil
}

func New() *LockFile {
	return &LockFile{
		Version: currentVersion,
		Sources: map[string]*LockEntry{},
	}
}

func (l *LockFile) Save(outputDir string) error {
	if l == nil {
		return oops.
			Code("LOCK_ERROR").
			Hint("Initialize lock file state before saving").
			Errorf("cannot save nil lock file")
	}

	if l.Version == 0 {
		l.Version = currentVersion
	}

	if l.Sources == nil {
		l.Sources = map[string]*LockEntry{}
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return oops.
			Code("LOCK_ERROR").
			Wrapf(err, "encoding lock file")
	}

	if writeErr := atomicfile.Write(Path(outputDir), append(data, '\n')); writeErr != nil {
		return oops.
			Code("LOCK_ERROR").
			With("path", Path(outputDir)).
			Wrapf(writeErr, "saving lock file")
	}

	return nil
}

func (l *LockFile) GetEntry(name string) *LockEntry {
	if l == nil {
		return nil
	}

	return l.Sources[name]
}

func (l *LockFile) SetEntry(name string, entry *LockEntry) {
	if l == nil {
		return
	}

	if l.Sources == nil {
		l.Sources = map[string]*LockEntry{}
	}

	l.Sources[name] = entry
}

func (l *LockFile) RemoveEntry(name string) {
	if l == nil || l.Sources == nil {
		return
	}

	delete(l.Sources, name)
}

// Names returns the locked source names in sorted order.
func (l *LockFile) Names() []string {
	if l == nil {
		return nil
	}

	names := make([]string, 0, len(l.Sources))
	for name := range l.Sources {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// Prune drops entries whose source is not in keep and returns the dropped
// names in sorted order.
func (l *LockFile) Prune(keep []string) []string {
	var removed []string
	for _, name := range l.Names() {
		if slices.Contains(keep, name) {
			continue
		}

		l.RemoveEntry(name)
		removed = append(removed, name)
	}

	return removed
}

// FileCount is the number of synced files recorded for a source.
func (e *LockEntry) FileCount() int {
	if e == nil {
		return 0
	}

	return len(e.Files)
}
