// Package manifest indexes configured sources: every Lua file found, its
// size and line count, and the tags scanned from it.
package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/atomicfile"
	"github.com/g5becks/luatags/internal/parser"
)

const (
	CurrentVersion = "1.0.0"
	ManifestFile   = "manifest.json"
)

const (
	WarningTooLarge = "file_too_large"
	WarningBinary   = "binary_file"
)

type Manifest struct {
	Version     string                 `json:"version"`
	Generated   time.Time              `json:"generated"`
	TagFile     string                 `json:"tag_file,omitempty"`
	Collections map[string]*Collection `json:"collections"`
}

// Collection holds the files of one configured source. Dir is the absolute
// directory the files were discovered in.
type Collection struct {
	Name      string     `json:"name"`
	Dir       string     `json:"dir"`
	Type      string     `json:"type"`
	Source    string     `json:"source,omitempty"`
	Path      string     `json:"path,omitempty"`
	Ref       string     `json:"ref,omitempty"`
	LastSync  time.Time  `json:"last_sync,omitzero"`
	FileCount int        `json:"file_count"`
	TagCount  int        `json:"tag_count"`
	TotalSize int64      `json:"total_size"`
	Skipped   int        `json:"skipped,omitempty"`
	Files     []FileInfo `json:"files"`
}

// FileInfo describes one discovered file. Files carrying a Warning were
// not scanned and have no tags.
type FileInfo struct {
	Path     string       `json:"path"`
	Size     int64        `json:"size"`
	Lines    int          `json:"lines"`
	Modified time.Time    `json:"modified"`
	Warning  string       `json:"warning,omitempty"`
	Tags     []parser.Tag `json:"tags,omitempty"`
}

func New() *Manifest {
	return &Manifest{
		Version:     CurrentVersion,
		Generated:   time.Now().UTC(),
		Collections: make(map[string]*Collection),
	}
}

func Load(outputDir string) (*Manifest, error) {
	manifestPath := Path(outputDir)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("MANIFEST_NOT_FOUND").
				With("path", manifestPath).
				Hint("Run 'luatags index' to generate the manifest").
				Errorf("manifest not found at %q", manifestPath)
		}

		return nil, oops.
			Code("MANIFEST_READ_ERROR").
			With("path", manifestPath).
			Wrapf(err, "reading manifest file")
	}

	m := &Manifest{}
	if unmarshalErr := json.Unmarshal(data, m); unmarshalErr != nil {
		return nil, oops.
			Code("MANIFEST_CORRUPTED").
			With("path", manifestPath).
			Hint("Delete .luatags/manifest.json and run 'luatags index'").
			Wrapf(unmarshalErr, "parsing manifest file")
	}

	if m.Collections == nil {
		m.Collections = make(map[string]*Collection)
	}

	return m, nil
}

func (m *Manifest) Save(outputDir string) error {
	if m == nil {
		return oops.
			Code("MANIFEST_WRITE_ERROR").
			Hint("Initialize manifest before saving").
			Errorf("cannot save nil manifest")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return oops.
			Code("MANIFEST_WRITE_ERROR").
			Wrapf(err, "encoding manifest")
	}

	manifestPath := Path(outputDir)
	if writeErr := atomicfile.Write(manifestPath, append(data, '\n')); writeErr != nil {
		return oops.
			Code("MANIFEST_WRITE_ERROR").
			With("path", manifestPath).
			Wrapf(writeErr, "writing manifest file")
	}

	return nil
}

// CollectionNames returns collection names in sorted order.
func (m *Manifest) CollectionNames() []string {
	if m == nil {
		return nil
	}

	names := make([]string, 0, len(m.Collections))
	for name := range m.Collections {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// TagCount sums the tags of every collection.
func (m *Manifest) TagCount() int {
	if m == nil {
		return 0
	}

	total := 0
	for _, collection := range m.Collections {
		total += collection.TagCount
	}

	return total
}

func Path(outputDir string) string {
	return filepath.Join(outputDir, ManifestFile)
}
