// Package discover finds Lua files in a local directory tree.
package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/samber/oops"
)

const gitignoreFile = ".gitignore"

//nolint:gochecknoglobals // fixed lookup table
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"lua_modules":  {},
	".luarocks":    {},
	".git":         {},
	".hg":          {},
	".svn":         {},
}

// Files walks root and returns the slash-separated paths, relative to root,
// of regular files matching any include pattern and no exclude pattern.
// Hidden entries, symlinks and paths ignored by root/.gitignore are skipped.
// The result is sorted.
func Files(root string, patterns []string, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("path", root).
				Hint("Check the path of the source, or run 'luatags sync' for remote sources").
				Errorf("source directory %q does not exist", root)
		}

		return nil, oops.Wrapf(err, "checking source directory %q", root)
	}

	if !info.IsDir() {
		return nil, oops.
			Code("SOURCE_NOT_FOUND").
			With("path", root).
			Errorf("source path %q is not a directory", root)
	}

	gi := loadGitignore(root)

	var results []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		name := d.Name()
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}

			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		included, matchErr := Match(rel, patterns, exclude)
		if matchErr != nil {
			return matchErr
		}

		if included {
			results = append(results, rel)
		}

		return nil
	})
	if walkErr != nil {
		return nil, oops.
			Code("DISCOVER_FAILED").
			With("path", root).
			Wrapf(walkErr, "walking source directory")
	}

	slices.Sort(results)
	return results, nil
}

// Match reports whether a slash-separated relative path matches any of
// patterns and none of exclude.
func Match(relPath string, patterns []string, exclude []string) (bool, error) {
	included, err := matchesAny(patterns, relPath)
	if err != nil || !included {
		return false, err
	}

	excluded, err := matchesAny(exclude, relPath)
	if err != nil {
		return false, err
	}

	return !excluded, nil
}

func matchesAny(patterns []string, candidate string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, candidate)
		if err != nil {
			return false, oops.
				Code("CONFIG_INVALID").
				With("pattern", pattern).
				With("path", candidate).
				Wrapf(err, "invalid glob pattern")
		}

		if matched {
			return true, nil
		}
	}

	return false, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, gitignoreFile))
	if err != nil {
		return nil
	}

	return gi
}
