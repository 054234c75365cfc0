// Package sync fetches every remote source in parallel and records the
// result in the lock file.
package sync

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	stdsync "sync"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/lockfile"
	"github.com/g5becks/luatags/internal/source"
)

// EventKind identifies a progress event emitted during Run.
type EventKind int

const (
	// EventSourceStart is sent before a source begins syncing.
	EventSourceStart EventKind = iota
	// EventSourceDone is sent when a source finishes, successfully or not.
	EventSourceDone
	// EventWarning carries a non-fatal notice from a source.
	EventWarning
)

// Event reports progress for a single source. Events arrive from worker
// goroutines; handlers must be safe for concurrent use.
type Event struct {
	Kind    EventKind
	Source  string
	Result  *source.SyncResult
	Err     error
	Message string
}

// Options controls a sync run.
type Options struct {
	SourceNames []string
	Force       bool
	DryRun      bool
	Clean       bool
	OnEvent     func(Event)
}

func (o Options) emit(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}

// RunResult aggregates the outcome of all sources.
type RunResult struct {
	Sources    int
	Downloaded int
	Deleted    int
	Skipped    int
	Errors     int
	Pruned     []string
}

type runState struct {
	result *source.SyncResult
	err    error
}

// Run syncs the requested remote sources, or all of them when none are
// named. The returned result is populated even when some sources fail.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*RunResult, error) {
	if cfg == nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			Errorf("config is required")
	}

	outputDir := resolveOutputRoot(cfg)
	if opts.Clean && !opts.DryRun {
		if err := cleanSources(cfg); err != nil {
			return nil, err
		}
	}

	if opts.Clean {
		opts.Force = true
	}

	lock, err := lockfile.Load(outputDir)
	if err != nil {
		return nil, err
	}

	sourceNames, err := resolveSourceNames(cfg.Sources, opts.SourceNames)
	if err != nil {
		return nil, err
	}

	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = config.DefaultParallel
	}

	results := make(map[string]runState, len(sourceNames))
	var resultsMu stdsync.Mutex
	token := resolveGitHubToken(cfg)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)

	for _, sourceName := range sourceNames {
		sourceCfg := cfg.Sources[sourceName]
		destinationDir := cfg.OutputDir(sourceName, sourceCfg)
		previousLock := lock.GetEntry(sourceName)

		group.Go(func() error {
			opts.emit(Event{Kind: EventSourceStart, Source: sourceName})

			state := syncOne(groupCtx, sourceName, sourceCfg, token, destinationDir, previousLock, opts)

			resultsMu.Lock()
			results[sourceName] = state
			resultsMu.Unlock()

			opts.emit(Event{Kind: EventSourceDone, Source: sourceName, Result: state.result, Err: state.err})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, oops.Wrapf(err, "waiting for source sync workers")
	}

	runResult := &RunResult{Sources: len(sourceNames)}
	for _, sourceName := range sourceNames {
		state := results[sourceName]
		if state.err != nil {
			runResult.Errors++
			continue
		}

		if state.result == nil {
			continue
		}

		runResult.Downloaded += state.result.Downloaded
		runResult.Deleted += state.result.Deleted
		if state.result.Skipped {
			runResult.Skipped++
		}

		if !opts.DryRun && state.result.LockEntry != nil {
			lock.SetEntry(sourceName, state.result.LockEntry)
		}
	}

	if !opts.DryRun {
		if len(opts.SourceNames) == 0 {
			runResult.Pruned = lock.Prune(remoteSourceNames(cfg.Sources))
		}

		if err := lock.Save(outputDir); err != nil {
			return runResult, err
		}
	}

	if runResult.Errors > 0 {
		return runResult, oops.
			Code("DOWNLOAD_FAILED").
			With("failed_sources", runResult.Errors).
			Errorf("%d source(s) failed during sync", runResult.Errors)
	}

	return runResult, nil
}

func syncOne(
	ctx context.Context,
	sourceName string,
	sourceCfg config.Source,
	token string,
	destinationDir string,
	previousLock *lockfile.LockEntry,
	opts Options,
) runState {
	src, err := source.New(sourceName, sourceCfg, token)
	if err != nil {
		return runState{err: err}
	}
	defer src.Close() //nolint:errcheck // idle connections only

	result, err := src.Sync(ctx, destinationDir, previousLock, source.SyncOptions{
		Force:  opts.Force,
		DryRun: opts.DryRun,
	})

	if warner, ok := src.(source.Warner); ok {
		for _, warning := range warner.Warnings() {
			opts.emit(Event{Kind: EventWarning, Source: sourceName, Message: warning})
		}
	}

	return runState{result: result, err: err}
}

// resolveSourceNames returns the remote sources to sync. Requested names
// must exist and must not be dir sources.
func resolveSourceNames(
	sourceConfigs map[string]config.Source,
	requestedNames []string,
) ([]string, error) {
	if len(requestedNames) == 0 {
		return remoteSourceNames(sourceConfigs), nil
	}

	sourceNames := make([]string, 0, len(requestedNames))
	seen := make(map[string]struct{}, len(requestedNames))

	for _, sourceName := range requestedNames {
		sourceCfg, ok := sourceConfigs[sourceName]
		if !ok {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", sourceName).
				Hint("Run 'luatags list' to see configured sources").
				Errorf("source %q not found in config", sourceName)
		}

		if !source.IsRemote(sourceCfg) {
			return nil, oops.
				Code("INVALID_ARGS").
				With("source", sourceName).
				Hint("dir sources are read in place by 'luatags index'").
				Errorf("source %q is a local directory and cannot be synced", sourceName)
		}

		if _, exists := seen[sourceName]; exists {
			continue
		}

		seen[sourceName] = struct{}{}
		sourceNames = append(sourceNames, sourceName)
	}

	return sourceNames, nil
}

func remoteSourceNames(sourceConfigs map[string]config.Source) []string {
	names := make([]string, 0, len(sourceConfigs))
	for sourceName, sourceCfg := range sourceConfigs {
		if source.IsRemote(sourceCfg) {
			names = append(names, sourceName)
		}
	}

	slices.Sort(names)
	return names
}

func resolveGitHubToken(cfg *config.Config) string {
	if cfg.GitHubToken != "" {
		return cfg.GitHubToken
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}

	return os.Getenv("GH_TOKEN")
}

func resolveOutputRoot(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Output) {
		return cfg.Output
	}

	return filepath.Join(cfg.ConfigDir, cfg.Output)
}

// cleanSources removes the synced copies of remote sources. Run forces a
// full download afterwards since the lock file still lists them.
func cleanSources(cfg *config.Config) error {
	for _, sourceName := range remoteSourceNames(cfg.Sources) {
		dir := cfg.OutputDir(sourceName, cfg.Sources[sourceName])
		if err := os.RemoveAll(dir); err != nil {
			return oops.
				Code("WRITE_FAILED").
				With("source", sourceName).
				With("path", dir).
				Wrapf(err, "cleaning source output directory")
		}
	}

	return nil
}
