package lockfile_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/g5becks/luatags/internal/lockfile"
)

func TestLoadReturnsEmptyLockWhenFileMissing(t *testing.T) {
	t.Parallel()

	lock, err := lockfile.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if lock.Version != 1 {
		t.Fatalf("Version = %d, want 1", lock.Version)
	}

	if len(lock.Sources) != 0 {
		t.Fatalf("Sources len = %d, want 0", len(lock.Sources))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)

	lock := lockfile.New()
	lock.SetEntry("ui", &lockfile.LockEntry{
		Type:        "github",
		Repo:        "owner/game-ui",
		TreeSHA:     "abc123",
		RefResolved: "main",
		SyncedAt:    now,
		Files: map[string]string{
			"panel.lua":      "sha1",
			"shop/items.lua": "sha2",
		},
	})
	lock.SetEntry("json", &lockfile.LockEntry{
		Type:     "url",
		URL:      "https://example.com/json.lua",
		ETag:     `"etag"`,
		LastMod:  "Tue, 15 Jan 2024 10:30:00 GMT",
		SyncedAt: now,
		Files:    map[string]string{"json.lua": "content-sha"},
	})

	if err := lock.Save(outputDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := lockfile.Load(outputDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	githubEntry := loaded.GetEntry("ui")
	if githubEntry == nil {
		t.Fatalf("GetEntry(ui) = nil, want non-nil")
	}

	if githubEntry.TreeSHA != "abc123" || githubEntry.Repo != "owner/game-ui" {
		t.Fatalf("github entry = %+v, want tree abc123 for owner/game-ui", githubEntry)
	}

	if githubEntry.Files["shop/items.lua"] != "sha2" {
		t.Fatalf("Files[shop/items.lua] = %q, want %q", githubEntry.Files["shop/items.lua"], "sha2")
	}

	if !githubEntry.SyncedAt.Equal(now) {
		t.Fatalf("SyncedAt = %v, want %v", githubEntry.SyncedAt, now)
	}

	urlEntry := loaded.GetEntry("json")
	if urlEntry == nil || urlEntry.ETag != `"etag"` {
		t.Fatalf("url entry = %+v, want etag %q", urlEntry, `"etag"`)
	}

	if urlEntry.FileCount() != 1 {
		t.Fatalf("FileCount() = %d, want 1", urlEntry.FileCount())
	}
}

func TestSaveWritesAtomicallyWithoutTempFilesLeft(t *testing.T) {
	t.Parallel()

	outputDir := filepath.Join(t.TempDir(), "not-yet-created")
	lock := lockfile.New()
	lock.SetEntry("json", &lockfile.LockEntry{
		Type:     "url",
		SyncedAt: time.Now().UTC(),
	})

	if err := lock.Save(outputDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tempMatches, err := filepath.Glob(filepath.Join(outputDir, ".luatags.lock.*.tmp"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}

	if len(tempMatches) != 0 {
		t.Fatalf("temporary files left behind: %v", tempMatches)
	}

	if _, statErr := os.Stat(lockfile.Path(outputDir)); statErr != nil {
		t.Fatalf("expected lock file at %q: %v", lockfile.Path(outputDir), statErr)
	}
}

func TestLoadInvalidJSONReturnsError(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	if err := os.WriteFile(lockfile.Path(outputDir), []byte("{invalid"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := lockfile.Load(outputDir)
	if err == nil {
		t.Fatalf("Load() error = nil, want non-nil")
	}

	if !strings.Contains(err.Error(), "parsing lock file") {
		t.Fatalf("Load() error = %q, expected parsing message", err.Error())
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	if err := os.WriteFile(lockfile.Path(outputDir), []byte(`{"version": 9, "sources": {}}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := lockfile.Load(outputDir)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("Load() error = %v, want version message", err)
	}
}

func TestEntryCRUD(t *testing.T) {
	t.Parallel()

	lock := lockfile.New()
	if entry := lock.GetEntry("missing"); entry != nil {
		t.Fatalf("GetEntry(missing) = %v, want nil", entry)
	}

	lock.SetEntry("json", &lockfile.LockEntry{Type: "url", SyncedAt: time.Now().UTC()})

	got := lock.GetEntry("json")
	if got == nil || got.Type != "url" {
		t.Fatalf("GetEntry(json) = %+v, want url entry", got)
	}

	lock.RemoveEntry("json")
	if lock.GetEntry("json") != nil {
		t.Fatalf("GetEntry(json) after RemoveEntry() = non-nil, want nil")
	}
}

func TestPruneDropsUnconfiguredSources(t *testing.T) {
	t.Parallel()

	lock := lockfile.New()
	for _, name := range []string{"ui", "old", "json", "archive"} {
		lock.SetEntry(name, &lockfile.LockEntry{Type: "url"})
	}

	removed := lock.Prune([]string{"ui", "json"})

	if !reflect.DeepEqual(removed, []string{"archive", "old"}) {
		t.Fatalf("Prune() removed = %v, want [archive old]", removed)
	}

	if !reflect.DeepEqual(lock.Names(), []string{"json", "ui"}) {
		t.Fatalf("Names() = %v, want [json ui]", lock.Names())
	}
}

func TestNilLockIsSafe(t *testing.T) {
	t.Parallel()

	var lock *lockfile.LockFile

	if lock.GetEntry("x") != nil || lock.Names() != nil {
		t.Fatalf("nil lock returned data")
	}

	var entry *lockfile.LockEntry
	if entry.FileCount() != 0 {
		t.Fatalf("nil entry FileCount() = %d, want 0", entry.FileCount())
	}

	err := lock.Save(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "cannot save nil lock file") {
		t.Fatalf("Save() error = %v, expected nil-lock message", err)
	}
}
