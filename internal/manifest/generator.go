package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/discover"
	"github.com/g5becks/luatags/internal/lockfile"
	"github.com/g5becks/luatags/internal/parser"
	"github.com/g5becks/luatags/internal/tagfile"
)

const (
	maxParseSize = 50 * 1024 * 1024 // 50MB
	languageName = "Lua"
)

// GenerateOptions controls an index run.
type GenerateOptions struct {
	// SourceNames limits the run to these sources; empty indexes all.
	SourceNames []string
	// Lock supplies last-sync times; it is loaded from the output
	// directory when nil.
	Lock *lockfile.LockFile
	// SkipTagFile writes only the manifest.
	SkipTagFile bool
	// Version is recorded in the tag file header.
	Version string
	// OnCollection is called once per source with the number of files
	// about to be scanned. OnFile is called after each file, from worker
	// goroutines.
	OnCollection func(name string, files int)
	OnFile       func(name string, relPath string)
}

// Generate discovers and scans the Lua files of every source, saves the
// manifest to the output directory and writes the configured tag file.
func Generate(ctx context.Context, cfg *config.Config, opts GenerateOptions) (*Manifest, error) {
	if cfg == nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			Errorf("config is required")
	}

	lock := opts.Lock
	if lock == nil {
		loaded, err := lockfile.Load(cfg.Output)
		if err != nil {
			return nil, err
		}

		lock = loaded
	}

	luaParser, err := newParser()
	if err != nil {
		return nil, err
	}

	names, err := selectSources(cfg, opts.SourceNames)
	if err != nil {
		return nil, err
	}

	m := New()
	for _, sourceName := range names {
		collection, collectErr := generateCollection(ctx, cfg, sourceName, lock, luaParser, opts)
		if collectErr != nil {
			return nil, collectErr
		}

		if collection != nil {
			m.Collections[sourceName] = collection
		}
	}

	if !opts.SkipTagFile {
		tagPath := cfg.TagFilePath()
		if tagErr := writeTagFile(cfg, m, tagPath, opts.Version); tagErr != nil {
			return nil, tagErr
		}

		m.TagFile = tagPath
	}

	if saveErr := m.Save(cfg.Output); saveErr != nil {
		return nil, saveErr
	}

	return m, nil
}

func newParser() (parser.Parser, error) {
	def, ok := parser.Lookup(languageName)
	if !ok {
		return nil, oops.
			Code("MANIFEST_GENERATION_ERROR").
			Errorf("no %s parser registered", languageName)
	}

	return def.New()
}

func selectSources(cfg *config.Config, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return cfg.SourceNames(), nil
	}

	for _, name := range requested {
		if _, ok := cfg.Sources[name]; !ok {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", name).
				Hint("Run 'luatags list' to see configured sources").
				Errorf("source %q not found in config", name)
		}
	}

	return requested, nil
}

// generateCollection returns nil for remote sources that were never
// synced.
func generateCollection(
	ctx context.Context,
	cfg *config.Config,
	sourceName string,
	lock *lockfile.LockFile,
	luaParser parser.Parser,
	opts GenerateOptions,
) (*Collection, error) {
	sourceCfg := cfg.Sources[sourceName]
	root := cfg.SourceRoot(sourceName, sourceCfg)

	if sourceCfg.Type != config.SourceTypeDir {
		if _, statErr := os.Stat(root); errors.Is(statErr, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // unsynced remote source
		}
	}

	patterns := sourceCfg.Patterns
	if len(patterns) == 0 {
		patterns = config.DefaultPatterns()
	}

	relPaths, err := discover.Files(root, patterns, sourceCfg.Exclude)
	if err != nil {
		return nil, err
	}

	if opts.OnCollection != nil {
		opts.OnCollection(sourceName, len(relPaths))
	}

	files, err := scanFiles(ctx, cfg.Parallel, root, sourceName, relPaths, luaParser, opts)
	if err != nil {
		return nil, err
	}

	collection := &Collection{
		Name:   sourceName,
		Dir:    root,
		Type:   sourceCfg.Type,
		Source: resolveSourceLocation(sourceCfg),
		Path:   sourceCfg.Path,
		Ref:    sourceCfg.Ref,
		Files:  files,
	}

	if entry := lock.GetEntry(sourceName); entry != nil {
		collection.LastSync = entry.SyncedAt
	}

	for _, file := range files {
		collection.TotalSize += file.Size
		collection.TagCount += len(file.Tags)
		if file.Warning != "" {
			collection.Skipped++
		}
	}

	collection.FileCount = len(files)
	return collection, nil
}

// scanFiles parses files concurrently; results keep the order of relPaths.
func scanFiles(
	ctx context.Context,
	parallel int,
	root string,
	sourceName string,
	relPaths []string,
	luaParser parser.Parser,
	opts GenerateOptions,
) ([]FileInfo, error) {
	if parallel <= 0 {
		parallel = config.DefaultParallel
	}

	files := make([]FileInfo, len(relPaths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)

	for i, relPath := range relPaths {
		group.Go(func() error {
			if ctxErr := groupCtx.Err(); ctxErr != nil {
				return ctxErr
			}

			fileInfo, parseErr := parseFile(filepath.Join(root, filepath.FromSlash(relPath)), relPath, luaParser)
			if parseErr != nil {
				return oops.
					Code("MANIFEST_GENERATION_ERROR").
					With("source", sourceName).
					With("path", relPath).
					Wrapf(parseErr, "scanning %s", relPath)
			}

			files[i] = *fileInfo
			if opts.OnFile != nil {
				opts.OnFile(sourceName, relPath)
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

func parseFile(absPath string, relPath string, luaParser parser.Parser) (*FileInfo, error) {
	stat, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}

	fileInfo := &FileInfo{
		Path:     relPath,
		Size:     stat.Size(),
		Modified: stat.ModTime().UTC(),
	}

	if stat.Size() > maxParseSize {
		fileInfo.Warning = WarningTooLarge
		return fileInfo, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	if parser.IsBinary(content) {
		fileInfo.Warning = WarningBinary
		return fileInfo, nil
	}

	result, err := luaParser.Parse(relPath, content)
	if err != nil {
		return nil, err
	}

	fileInfo.Lines = result.Lines
	fileInfo.Tags = result.Tags
	return fileInfo, nil
}

func resolveSourceLocation(src config.Source) string {
	switch src.Type {
	case config.SourceTypeGitHub:
		return src.Repo
	case config.SourceTypeURL:
		return src.URL
	default:
		return src.Path
	}
}

// TagEntries flattens the manifest into tag file entries whose paths are
// relative to baseDir, the directory holding the tag file.
func TagEntries(m *Manifest, baseDir string) []tagfile.Entry {
	var entries []tagfile.Entry
	for _, name := range m.CollectionNames() {
		collection := m.Collections[name]
		for _, file := range collection.Files {
			entries = append(entries, tagfile.EntriesFor(entryPath(baseDir, collection.Dir, file.Path), file.Tags)...)
		}
	}

	return entries
}

func entryPath(baseDir string, collectionDir string, relPath string) string {
	absPath := filepath.Join(collectionDir, filepath.FromSlash(relPath))
	if rel, err := filepath.Rel(baseDir, absPath); err == nil {
		return filepath.ToSlash(rel)
	}

	return filepath.ToSlash(absPath)
}

func writeTagFile(cfg *config.Config, m *Manifest, tagPath string, version string) error {
	kinds, err := cfg.KindIDs()
	if err != nil {
		return err
	}

	opts := tagfile.DefaultOptions()
	if cfg.Format != "" {
		opts.Format = cfg.Format
	}
	opts.FileScope = cfg.IncludeFileScope()
	opts.Kinds = kinds
	opts.Version = version

	return tagfile.WriteFile(tagPath, TagEntries(m, filepath.Dir(tagPath)), opts)
}
