package manifest_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/parser"
)

func TestNew(t *testing.T) {
	t.Parallel()

	m := manifest.New()

	if m.Version != manifest.CurrentVersion {
		t.Errorf("Version = %q, want %q", m.Version, manifest.CurrentVersion)
	}

	if m.Collections == nil {
		t.Error("Collections should be initialized")
	}

	if m.Generated.IsZero() {
		t.Error("Generated time should be set")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	modified := time.Now().UTC().Truncate(time.Second)

	original := manifest.New()
	original.Collections["ui"] = &manifest.Collection{
		Name:      "ui",
		Dir:       "/game/ui",
		Type:      "dir",
		Path:      "ui",
		FileCount: 1,
		TagCount:  2,
		TotalSize: 128,
		Files: []manifest.FileInfo{
			{
				Path:     "panel.lua",
				Size:     128,
				Lines:    6,
				Modified: modified,
				Tags: []parser.Tag{
					{Name: "Panel", Kind: parser.KindClass, Line: 1, FileScope: true},
					{
						Name:  "show",
						Kind:  parser.KindFunction,
						Line:  3,
						Scope: &parser.Scope{Kind: "class", Name: "Panel"},
					},
				},
			},
		},
	}

	if err := original.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	collection := loaded.Collections["ui"]
	if collection == nil || len(collection.Files) != 1 {
		t.Fatalf("collection = %+v, want one file", collection)
	}

	tags := collection.Files[0].Tags
	if len(tags) != 2 {
		t.Fatalf("tags = %+v, want 2", tags)
	}

	if tags[0].Kind != parser.KindClass || !tags[0].FileScope {
		t.Errorf("tags[0] = %+v, want file-scope class", tags[0])
	}

	if tags[1].QualifiedName() != "Panel.show" {
		t.Errorf("tags[1].QualifiedName() = %q, want Panel.show", tags[1].QualifiedName())
	}

	if !collection.Files[0].Modified.Equal(modified) {
		t.Errorf("Modified = %v, want %v", collection.Files[0].Modified, modified)
	}

	if !collection.LastSync.IsZero() {
		t.Errorf("LastSync = %v, want zero for dir source", collection.LastSync)
	}
}

func TestSaveOmitsZeroLastSync(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := manifest.New()
	m.Collections["ui"] = &manifest.Collection{Name: "ui", Type: "dir"}

	if err := m.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(manifest.Path(dir))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if strings.Contains(string(data), "last_sync") {
		t.Errorf("manifest contains last_sync for an unsynced source:\n%s", data)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	t.Parallel()

	_, err := manifest.Load(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "manifest not found") {
		t.Fatalf("Load() error = %v, want not found", err)
	}
}

func TestLoadCorruptedManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifest.ManifestFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := manifest.Load(dir)
	if err == nil || !strings.Contains(err.Error(), "parsing manifest file") {
		t.Fatalf("Load() error = %v, want parse error", err)
	}
}

func TestSaveNilManifest(t *testing.T) {
	t.Parallel()

	var m *manifest.Manifest
	err := m.Save(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "cannot save nil manifest") {
		t.Fatalf("Save() error = %v, want nil manifest error", err)
	}
}

func TestCollectionNamesAndTagCount(t *testing.T) {
	t.Parallel()

	m := manifest.New()
	m.Collections["zeta"] = &manifest.Collection{Name: "zeta", TagCount: 3}
	m.Collections["alpha"] = &manifest.Collection{Name: "alpha", TagCount: 4}

	if got := m.CollectionNames(); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Errorf("CollectionNames() = %v, want [alpha zeta]", got)
	}

	if got := m.TagCount(); got != 7 {
		t.Errorf("TagCount() = %d, want 7", got)
	}

	var nilManifest *manifest.Manifest
	if nilManifest.CollectionNames() != nil || nilManifest.TagCount() != 0 {
		t.Errorf("nil manifest returned data")
	}
}
