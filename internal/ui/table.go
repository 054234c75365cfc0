package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/parser"
	"github.com/g5becks/luatags/internal/search"
)

const (
	StatusLocal   = "local"
	StatusSynced  = "synced"
	StatusPending = "pending"
)

type SourceStatus struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Repo      string    `json:"repo,omitempty"`
	Path      string    `json:"path,omitempty"`
	URL       string    `json:"url,omitempty"`
	Ref       string    `json:"ref,omitempty"`
	Patterns  []string  `json:"patterns,omitempty"`
	Root      string    `json:"root"`
	Status    string    `json:"status"`
	FileCount int       `json:"file_count,omitempty"`
	TagCount  int       `json:"tag_count,omitempty"`
	SyncedAt  time.Time `json:"synced_at,omitzero"`
}

type ListOptions struct {
	JSON    bool
	Verbose bool
	Files   bool
}

func RenderSourceList(w io.Writer, sources []SourceStatus, opts ListOptions) error {
	if opts.JSON {
		return renderJSON(w, sources, "source list")
	}

	renderSourceListTable(w, sources, opts)
	return nil
}

func renderJSON(w io.Writer, value any, what string) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(value); err != nil {
		return oops.
			Code("JSON_ERROR").
			Wrapf(err, "encoding %s", what)
	}

	return nil
}

func newTable(w io.Writer) table.Writer {
	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)
	return writer
}

func renderSourceListTable(w io.Writer, sources []SourceStatus, opts ListOptions) {
	writer := newTable(w)

	if opts.Verbose {
		writer.AppendHeader(table.Row{"SOURCE", "TYPE", "LOCATION", "STATUS", "REF", "PATTERNS", "ROOT"})
	} else {
		writer.AppendHeader(table.Row{"SOURCE", "TYPE", "LOCATION", "STATUS"})
	}

	for _, source := range sources {
		location := renderLocation(source)
		status := renderStatus(source, opts.Files)

		if opts.Verbose {
			writer.AppendRow(table.Row{
				source.Name,
				source.Type,
				location,
				status,
				source.Ref,
				strings.Join(source.Patterns, ", "),
				source.Root,
			})
			continue
		}

		writer.AppendRow(table.Row{
			source.Name,
			source.Type,
			location,
			status,
		})
	}

	writer.Render()
}

func renderLocation(source SourceStatus) string {
	if source.Type == "url" {
		return source.URL
	}

	if source.Type == "dir" {
		return source.Path
	}

	location := source.Repo
	if source.Path != "" {
		location += "/" + source.Path
	}

	return strings.TrimPrefix(location, "/")
}

func renderStatus(source SourceStatus, includeFiles bool) string {
	if includeFiles && source.FileCount > 0 {
		return fmt.Sprintf("%s (%d files, %d tags)", source.Status, source.FileCount, source.TagCount)
	}

	return source.Status
}

// RenderKinds lists the kind vocabulary one per line, ctags --list-kinds
// style: letter, name, plural and whether the kind is enabled.
func RenderKinds(w io.Writer, kinds []parser.Kind) {
	for _, kind := range kinds {
		state := "off"
		if kind.Enabled {
			state = "on"
		}

		fmt.Fprintf(w, "%c  %-9s %-10s [%s]\n", kind.Letter, kind.Name, kind.Plural, state)
	}
}

// RenderOutline prints the tags of one file in line order.
func RenderOutline(w io.Writer, path string, lines int, tags []parser.Tag) {
	fmt.Fprintf(w, "%s (%d lines, %d tags)\n\n", path, lines, len(tags))

	if len(tags) == 0 {
		fmt.Fprintln(w, "No tags found.")
		return
	}

	writer := newTable(w)
	writer.AppendHeader(table.Row{"LINE", "KIND", "NAME", "CLASS"})

	for _, tag := range tags {
		class := ""
		if tag.Scope != nil {
			class = tag.Scope.Name
		}

		writer.AppendRow(table.Row{tag.Line, tag.Kind.String(), tag.Name, class})
	}

	writer.Render()
}

func RenderTagTable(w io.Writer, results []search.TagResult) {
	writer := newTable(w)
	writer.AppendHeader(table.Row{"NAME", "KIND", "COLLECTION", "PATH", "LINE", "SCORE"})

	for _, r := range results {
		writer.AppendRow(table.Row{r.Qualified, r.Kind, r.Collection, r.Path, r.Line, r.Score})
	}

	writer.Render()
}

func RenderContentTable(w io.Writer, results []search.ContentResult, maxText int) {
	writer := newTable(w)
	writer.AppendHeader(table.Row{"COLLECTION", "PATH", "LINE", "TEXT"})

	for _, r := range results {
		writer.AppendRow(table.Row{r.Collection, r.Path, r.Line, truncate(r.Text, maxText)})
	}

	writer.Render()
}

// RenderIndexSummary prints one row per indexed collection.
func RenderIndexSummary(w io.Writer, m *manifest.Manifest) {
	writer := newTable(w)
	writer.AppendHeader(table.Row{"COLLECTION", "TYPE", "FILES", "TAGS", "SKIPPED", "SIZE"})

	for _, name := range m.CollectionNames() {
		c := m.Collections[name]
		writer.AppendRow(table.Row{c.Name, c.Type, c.FileCount, c.TagCount, c.Skipped, FormatSize(c.TotalSize)})
	}

	writer.AppendFooter(table.Row{"TOTAL", "", "", m.TagCount(), "", ""})
	writer.Render()

	if m.TagFile != "" {
		fmt.Fprintf(w, "tag file: %s\n", m.TagFile)
	}
}

func truncate(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}

	if maxLen <= 3 {
		return string(runes[:maxLen])
	}

	return string(runes[:maxLen-3]) + "..."
}

func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
