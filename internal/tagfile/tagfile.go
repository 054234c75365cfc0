// Package tagfile turns scanned tags into ctags (extended format 2) or
// JSON-lines tag files.
package tagfile

import (
	"cmp"
	"io"
	"slices"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/parser"
)

const (
	FormatCTags = "ctags"
	FormatJSON  = "json"

	ProgramName = "luatags"
)

// Entry is a tag together with the file it was found in. Path is written
// as given, normally slash-separated and relative to the tag file.
type Entry struct {
	parser.Tag
	Path string
}

type Options struct {
	Format string
	// FileScope keeps file-scope tags (classes). False mirrors ctags
	// --file-scope=no.
	FileScope bool
	// Kinds restricts output to these kinds. Empty means every kind whose
	// Enabled flag is set.
	Kinds   []parser.KindID
	Sorted  bool
	Version string
}

func DefaultOptions() Options {
	return Options{
		Format:    FormatCTags,
		FileScope: true,
		Sorted:    true,
	}
}

// Writer is a parser.Sink for one input file that buffers entries.
type Writer struct {
	path    string
	entries []Entry
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Emit(tag parser.Tag) error {
	w.entries = append(w.entries, Entry{Tag: tag, Path: w.path})
	return nil
}

func (w *Writer) Entries() []Entry {
	return w.entries
}

// EntriesFor attaches path to every tag.
func EntriesFor(path string, tags []parser.Tag) []Entry {
	entries := make([]Entry, 0, len(tags))
	for _, tag := range tags {
		entries = append(entries, Entry{Tag: tag, Path: path})
	}

	return entries
}

// Filter drops entries excluded by kind or file scope. The input slice is
// left untouched.
func Filter(entries []Entry, opts Options) []Entry {
	allowed := allowedKinds(opts.Kinds)

	filtered := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := allowed[entry.Kind]; !ok {
			continue
		}

		if entry.FileScope && !opts.FileScope {
			continue
		}

		filtered = append(filtered, entry)
	}

	return filtered
}

func allowedKinds(kinds []parser.KindID) map[parser.KindID]struct{} {
	allowed := make(map[parser.KindID]struct{})
	if len(kinds) > 0 {
		for _, kind := range kinds {
			allowed[kind] = struct{}{}
		}

		return allowed
	}

	for _, kind := range parser.LuaKinds() {
		if kind.Enabled {
			allowed[kind.ID] = struct{}{}
		}
	}

	return allowed
}

// Sort orders entries by name, then path, then line, the order ctags
// binary searches rely on.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Line, b.Line),
		)
	})
}

// Encode filters, optionally sorts and writes entries to w.
func Encode(w io.Writer, entries []Entry, opts Options) error {
	entries = Filter(entries, opts)
	if opts.Sorted {
		Sort(entries)
	}

	switch opts.Format {
	case FormatCTags, "":
		return encodeCTags(w, entries, opts)
	case FormatJSON:
		return encodeJSON(w, entries)
	default:
		return oops.
			Code("TAGFILE_FORMAT").
			With("format", opts.Format).
			Hint("Supported formats: ctags, json").
			Errorf("unknown tag file format %q", opts.Format)
	}
}
