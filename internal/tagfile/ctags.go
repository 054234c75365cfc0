package tagfile

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/parser"
)

const languageName = "Lua"

var patternEscaper = strings.NewReplacer(`\`, `\\`, `/`, `\/`) //nolint:gochecknoglobals // immutable replacer

func encodeCTags(w io.Writer, entries []Entry, opts Options) error {
	bw := bufio.NewWriter(w)

	writeHeader(bw, opts)
	for _, entry := range entries {
		writeEntry(bw, entry)
	}

	if err := bw.Flush(); err != nil {
		return oops.
			Code("TAGFILE_WRITE").
			Wrapf(err, "writing ctags output")
	}

	return nil
}

func writeHeader(bw *bufio.Writer, opts Options) {
	sorted := "0"
	if opts.Sorted {
		sorted = "1"
	}

	writePseudoTag(bw, "!_TAG_FILE_FORMAT", "2", `extended format; --format=1 will not append ;" to lines`)
	writePseudoTag(bw, "!_TAG_FILE_SORTED", sorted, "0=unsorted, 1=sorted, 2=foldcase")

	for _, kind := range kindsSortedByLetter() {
		writePseudoTag(bw,
			"!_TAG_KIND_DESCRIPTION!"+languageName,
			string(kind.Letter)+","+kind.Name,
			kind.Plural,
		)
	}

	writePseudoTag(bw, "!_TAG_PROGRAM_NAME", ProgramName, "")
	if opts.Version != "" {
		writePseudoTag(bw, "!_TAG_PROGRAM_VERSION", opts.Version, "")
	}
}

// kindsSortedByLetter keeps header lines in byte order so a sorted tag file
// stays sorted.
func kindsSortedByLetter() []parser.Kind {
	kinds := parser.LuaKinds()
	slices.SortFunc(kinds, func(a, b parser.Kind) int {
		return cmp.Compare(a.Letter, b.Letter)
	})

	return kinds
}

func writePseudoTag(bw *bufio.Writer, name, value, comment string) {
	_, _ = fmt.Fprintf(bw, "%s\t%s\t/%s/\n", name, value, comment)
}

func writeEntry(bw *bufio.Writer, entry Entry) {
	_, _ = bw.WriteString(sanitizeField(entry.Name))
	_ = bw.WriteByte('\t')
	_, _ = bw.WriteString(sanitizeField(entry.Path))
	_ = bw.WriteByte('\t')
	_, _ = bw.WriteString(Address(entry.Tag))
	_, _ = bw.WriteString(`;"`)
	_ = bw.WriteByte('\t')
	_ = bw.WriteByte(entry.Kind.Letter())

	if entry.Scope != nil && entry.Scope.Name != "" {
		_, _ = fmt.Fprintf(bw, "\t%s:%s", entry.Scope.Kind, sanitizeField(entry.Scope.Name))
	}

	if entry.FileScope {
		_, _ = bw.WriteString("\tfile:")
	}

	_ = bw.WriteByte('\n')
}

// Address is the ex command locating the tag: a /^line$/ search pattern
// when the line text is known, the line number otherwise.
func Address(tag parser.Tag) string {
	if tag.Text == "" {
		return strconv.Itoa(tag.Line)
	}

	return "/^" + patternEscaper.Replace(tag.Text) + "$/"
}

// ctags fields are tab separated and line terminated.
func sanitizeField(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		default:
			return r
		}
	}, value)
}
