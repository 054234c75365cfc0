package parser

import (
	"slices"
	"strings"
	"sync"
)

// Parser extracts tags from file content.
type Parser interface {
	Parse(path string, content []byte) (*ParseResult, error)
	CanParse(path string) bool
}

type ParseResult struct {
	Tags  []Tag
	Lines int
}

// Definition is what a language scanner announces to the host: its name,
// the file extensions bound to it and its kind vocabulary.
type Definition struct {
	Name       string
	Extensions []string
	Kinds      []Kind
	New        func() (Parser, error)
}

// HasExtension reports whether ext (with or without leading dot) is bound
// to the definition.
func (d Definition) HasExtension(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	return slices.Contains(d.Extensions, ext)
}

//nolint:gochecknoglobals // Registry is populated by init functions of each language file.
var (
	registryMu sync.RWMutex
	registry   = map[string]Definition{}
)

// Register adds a definition to the registry, replacing any definition with
// the same (case-insensitive) name.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[strings.ToLower(def.Name)] = def
}

// Lookup returns the definition registered under name.
func Lookup(name string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[strings.ToLower(name)]
	return def, ok
}

// ForExtension returns the definition bound to ext.
func ForExtension(ext string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range sortedRegistryNames() {
		if def := registry[name]; def.HasExtension(ext) {
			return def, true
		}
	}

	return Definition{}, false
}

// Definitions lists registered definitions sorted by name.
func Definitions() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	defs := make([]Definition, 0, len(registry))
	for _, name := range sortedRegistryNames() {
		defs = append(defs, registry[name])
	}

	return defs
}

func sortedRegistryNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}
