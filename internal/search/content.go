package search

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/parser"
)

const maxLineSize = 1024 * 1024

// ContentResult is one matching source line.
type ContentResult struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Line       int    `json:"line"`
	Text       string `json:"text"`
}

// ContentOptions configures a content search. Matching is case-insensitive.
type ContentOptions struct {
	Query      string
	Collection string
	UseRegex   bool
	Limit      int
}

// Content searches the lines of indexed files. Files that were not
// scanned, went missing or turned binary since indexing are skipped.
func Content(m *manifest.Manifest, opts ContentOptions) ([]ContentResult, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("Provide a non-empty search query").
			Errorf("search query cannot be empty")
	}

	if _, err := newFilter(m, Options{Collection: opts.Collection}); err != nil {
		return nil, err
	}

	match, err := newLineMatcher(query, opts.UseRegex)
	if err != nil {
		return nil, err
	}

	var results []ContentResult
	for _, name := range m.CollectionNames() {
		if opts.Collection != "" && name != opts.Collection {
			continue
		}

		collection := m.Collections[name]
		for _, file := range collection.Files {
			if file.Warning != "" {
				continue
			}

			remaining := 0
			if opts.Limit > 0 {
				remaining = opts.Limit - len(results)
			}

			fileResults := searchFile(name, filepath.Join(collection.Dir, filepath.FromSlash(file.Path)), file.Path, match, remaining)
			results = append(results, fileResults...)

			if opts.Limit > 0 && len(results) >= opts.Limit {
				return results, nil
			}
		}
	}

	return results, nil
}

func newLineMatcher(query string, useRegex bool) (func(string) bool, error) {
	if !useRegex {
		lowered := strings.ToLower(query)
		return func(line string) bool {
			return strings.Contains(strings.ToLower(line), lowered)
		}, nil
	}

	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, oops.
			Code("INVALID_ARGS").
			With("pattern", query).
			Wrapf(err, "invalid regex")
	}

	return re.MatchString, nil
}

// searchFile returns up to maxResults matches from one file; 0 means no limit.
func searchFile(collection string, absPath string, relPath string, match func(string) bool, maxResults int) []ContentResult {
	content, err := os.ReadFile(absPath)
	if err != nil || parser.IsBinary(content) {
		return nil
	}

	var results []ContentResult
	scanner := bufio.NewScanner(bytes.NewReader(parser.StripBOM(content)))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if !match(line) {
			continue
		}

		results = append(results, ContentResult{
			Collection: collection,
			Path:       relPath,
			Line:       lineNumber,
			Text:       line,
		})

		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}

	return results
}
