// Package search looks up tags and source lines across an indexed manifest.
package search

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/parser"
)

const (
	MatchFieldName      = "name"
	MatchFieldQualified = "qualified"
)

// TagResult is one matching tag.
type TagResult struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Name       string `json:"name"`
	Qualified  string `json:"qualified"`
	Kind       string `json:"kind"`
	Class      string `json:"class,omitempty"`
	Line       int    `json:"line"`
	MatchField string `json:"match_field,omitempty"`
	Score      int    `json:"score"`
}

// Options configures a tag search. Query may be empty when Kind or Class
// narrows the result; every remaining tag is then listed in file order.
type Options struct {
	Query      string
	Collection string
	Kind       string
	Class      string
	Limit      int
}

type indexEntry struct {
	collection string
	path       string
	tag        parser.Tag
	matchField string
	matchValue string
}

type searchIndex struct {
	entries []indexEntry
}

func (s searchIndex) String(i int) string {
	return s.entries[i].matchValue
}

func (s searchIndex) Len() int {
	return len(s.entries)
}

type filter struct {
	collection string
	kind       *parser.KindID
	class      string
}

func (f filter) keep(tag parser.Tag) bool {
	if f.kind != nil && tag.Kind != *f.kind {
		return false
	}

	if f.class == "" {
		return true
	}

	if tag.Kind == parser.KindClass {
		return strings.EqualFold(tag.Name, f.class)
	}

	return tag.Scope != nil && strings.EqualFold(tag.Scope.Name, f.class)
}

// Tags fuzzy-matches tag names and Class.method qualified names.
func Tags(m *manifest.Manifest, opts Options) ([]TagResult, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" && opts.Kind == "" && opts.Class == "" {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("Provide a search query, --kind or --class").
			Errorf("search query cannot be empty")
	}

	f, err := newFilter(m, opts)
	if err != nil {
		return nil, err
	}

	index := buildIndex(m, f)
	if query == "" {
		return limit(listAll(index), opts.Limit), nil
	}

	matches := fuzzy.FindFrom(query, index)

	deduped := make(map[string]TagResult)
	for _, match := range matches {
		entry := index.entries[match.Index]
		key := entry.collection + "\x00" + entry.path + "\x00" + entry.tag.QualifiedName() + "\x00" + strconv.Itoa(entry.tag.Line)

		if existing, exists := deduped[key]; !exists || match.Score > existing.Score {
			result := newResult(entry)
			result.Score = match.Score
			deduped[key] = result
		}
	}

	results := make([]TagResult, 0, len(deduped))
	for _, result := range deduped {
		results = append(results, result)
	}

	slices.SortFunc(results, func(a, b TagResult) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			compareLocation(a, b),
		)
	})

	return limit(results, opts.Limit), nil
}

func newFilter(m *manifest.Manifest, opts Options) (filter, error) {
	f := filter{collection: opts.Collection, class: strings.TrimSpace(opts.Class)}

	if opts.Collection != "" {
		if _, exists := m.Collections[opts.Collection]; !exists {
			return filter{}, oops.
				Code("COLLECTION_NOT_FOUND").
				With("collection", opts.Collection).
				Hint("Run 'luatags list' to see available sources").
				Errorf("collection %q not found", opts.Collection)
		}
	}

	if opts.Kind != "" {
		kind, err := parser.ParseKind(opts.Kind)
		if err != nil {
			return filter{}, err
		}

		f.kind = &kind
	}

	return f, nil
}

// buildIndex lists one entry per tag name, plus one per qualified name for
// scoped tags.
func buildIndex(m *manifest.Manifest, f filter) searchIndex {
	var entries []indexEntry
	for _, name := range m.CollectionNames() {
		if f.collection != "" && name != f.collection {
			continue
		}

		for _, file := range m.Collections[name].Files {
			for _, tag := range file.Tags {
				if !f.keep(tag) {
					continue
				}

				entries = append(entries, indexEntry{
					collection: name,
					path:       file.Path,
					tag:        tag,
					matchField: MatchFieldName,
					matchValue: tag.Name,
				})

				if qualified := tag.QualifiedName(); qualified != tag.Name {
					entries = append(entries, indexEntry{
						collection: name,
						path:       file.Path,
						tag:        tag,
						matchField: MatchFieldQualified,
						matchValue: qualified,
					})
				}
			}
		}
	}

	return searchIndex{entries: entries}
}

func listAll(index searchIndex) []TagResult {
	results := make([]TagResult, 0, index.Len())
	for _, entry := range index.entries {
		if entry.matchField != MatchFieldName {
			continue
		}

		result := newResult(entry)
		result.MatchField = ""
		results = append(results, result)
	}

	slices.SortFunc(results, compareLocation)
	return results
}

func newResult(entry indexEntry) TagResult {
	result := TagResult{
		Collection: entry.collection,
		Path:       entry.path,
		Name:       entry.tag.Name,
		Qualified:  entry.tag.QualifiedName(),
		Kind:       entry.tag.Kind.String(),
		Line:       entry.tag.Line,
		MatchField: entry.matchField,
	}

	if entry.tag.Scope != nil {
		result.Class = entry.tag.Scope.Name
	}

	return result
}

func compareLocation(a, b TagResult) int {
	return cmp.Or(
		cmp.Compare(a.Collection, b.Collection),
		cmp.Compare(a.Path, b.Path),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Qualified, b.Qualified),
	)
}

func limit[T any](results []T, n int) []T {
	if n > 0 && len(results) > n {
		return results[:n]
	}

	return results
}
