package source

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"

	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/discover"
	"github.com/g5becks/luatags/internal/lockfile"
)

const (
	blobFetchLimit = 4
	luaExtension   = ".lua"
)

type githubSource struct {
	name   string
	source config.Source
	owner  string
	repo   string
	client *resty.Client

	mu          sync.Mutex
	resolvedRef string
	warnedLowRL bool
	warnings    []string
}

func NewGitHub(name string, cfg config.Source, token string) (Source, error) {
	owner, repo, err := parseRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}

	return &githubSource{
		name:   name,
		source: cfg,
		owner:  owner,
		repo:   repo,
		client: newGitHubClient(token),
	}, nil
}

func (s *githubSource) Close() error {
	return s.client.Close()
}

func (s *githubSource) Sync(
	ctx context.Context,
	destDir string,
	prevLock *lockfile.LockEntry,
	opts SyncOptions,
) (*SyncResult, error) {
	ref, err := s.resolveRef(ctx)
	if err != nil {
		return nil, err
	}

	var result *SyncResult
	if isSingleFilePath(s.source.Path) {
		result, err = s.syncSingleFile(ctx, ref, destDir, prevLock, opts)
	} else {
		result, err = s.syncTree(ctx, ref, destDir, prevLock, opts)
	}

	if err != nil {
		return nil, err
	}

	result.LockEntry.Type = config.SourceTypeGitHub
	result.LockEntry.Repo = s.source.Repo
	result.LockEntry.RefResolved = ref
	result.LockEntry.SyncedAt = time.Now().UTC()
	return result, nil
}

// Warnings returns non-fatal notices collected while talking to the API.
func (s *githubSource) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.warnings)
}

func (s *githubSource) syncSingleFile(
	ctx context.Context,
	ref string,
	destDir string,
	prevLock *lockfile.LockEntry,
	opts SyncOptions,
) (*SyncResult, error) {
	filePath := normalizeRepoPath(s.source.Path)
	relativePath := path.Base(filePath)

	sha, err := s.fetchContentSHA(ctx, ref, filePath)
	if err != nil {
		return nil, err
	}

	if !opts.Force && prevLock != nil && prevLock.Files[relativePath] == sha {
		return unchanged(prevLock), nil
	}

	if !opts.DryRun {
		content, fetchErr := s.fetchBlobContent(ctx, sha)
		if fetchErr != nil {
			return nil, fetchErr
		}

		if writeErr := writeSourceFile(s.name, destDir, relativePath, content); writeErr != nil {
			return nil, writeErr
		}

		opts.notify(relativePath)
	}

	return &SyncResult{
		Downloaded: 1,
		LockEntry: &lockfile.LockEntry{
			Files: map[string]string{relativePath: sha},
		},
	}, nil
}

func (s *githubSource) syncTree(
	ctx context.Context,
	ref string,
	destDir string,
	prevLock *lockfile.LockEntry,
	opts SyncOptions,
) (*SyncResult, error) {
	tree, err := s.fetchTree(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !opts.Force && prevLock != nil && prevLock.TreeSHA == tree.SHA {
		return unchanged(prevLock), nil
	}

	newFiles, err := s.buildFileMap(tree.Tree)
	if err != nil {
		return nil, err
	}

	var oldFiles map[string]string
	if prevLock != nil {
		oldFiles = prevLock.Files
	}

	toDownload := diffDownloads(newFiles, oldFiles, opts.Force)
	toDelete := diffDeletes(oldFiles, newFiles)

	if !opts.DryRun {
		if downloadErr := s.downloadFiles(ctx, destDir, toDownload, opts); downloadErr != nil {
			return nil, downloadErr
		}

		for _, relativePath := range sortedKeys(toDelete) {
			if removeErr := removeSourceFile(s.name, destDir, relativePath); removeErr != nil {
				return nil, removeErr
			}
		}
	}

	return &SyncResult{
		Downloaded: len(toDownload),
		Deleted:    len(toDelete),
		LockEntry: &lockfile.LockEntry{
			TreeSHA: tree.SHA,
			Files:   newFiles,
		},
	}, nil
}

func unchanged(prevLock *lockfile.LockEntry) *SyncResult {
	return &SyncResult{
		Skipped:   true,
		LockEntry: cloneLockEntry(prevLock),
	}
}

// downloadFiles fetches blobs concurrently; writes go to distinct paths.
func (s *githubSource) downloadFiles(
	ctx context.Context,
	destDir string,
	toDownload map[string]string,
	opts SyncOptions,
) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(blobFetchLimit)

	var notifyMu sync.Mutex
	for _, relativePath := range sortedKeys(toDownload) {
		sha := toDownload[relativePath]

		group.Go(func() error {
			content, fetchErr := s.fetchBlobContent(groupCtx, sha)
			if fetchErr != nil {
				return fetchErr
			}

			if writeErr := writeSourceFile(s.name, destDir, relativePath, content); writeErr != nil {
				return writeErr
			}

			notifyMu.Lock()
			opts.notify(relativePath)
			notifyMu.Unlock()
			return nil
		})
	}

	return group.Wait()
}

func (s *githubSource) buildFileMap(treeEntries []githubTreeEntry) (map[string]string, error) {
	basePath := normalizeRepoPath(s.source.Path)
	patterns := s.source.Patterns
	if len(patterns) == 0 {
		patterns = config.DefaultPatterns()
	}

	files := make(map[string]string)
	for _, entry := range treeEntries {
		if entry.Type != "blob" || entry.Path == "" || entry.SHA == "" {
			continue
		}

		relativePath, ok := relativePathWithinBase(entry.Path, basePath)
		if !ok {
			continue
		}

		include, err := discover.Match(relativePath, patterns, s.source.Exclude)
		if err != nil {
			return nil, err
		}

		if include {
			files[relativePath] = entry.SHA
		}
	}

	return files, nil
}

func diffDownloads(newFiles map[string]string, oldFiles map[string]string, force bool) map[string]string {
	toDownload := make(map[string]string)

	for relativePath, newSHA := range newFiles {
		oldSHA, existed := oldFiles[relativePath]
		if force || !existed || oldSHA != newSHA {
			toDownload[relativePath] = newSHA
		}
	}

	return toDownload
}

func diffDeletes(oldFiles map[string]string, newFiles map[string]string) map[string]struct{} {
	toDelete := make(map[string]struct{})

	for relativePath := range oldFiles {
		if _, exists := newFiles[relativePath]; !exists {
			toDelete[relativePath] = struct{}{}
		}
	}

	return toDelete
}

func sortedKeys[T any](values map[string]T) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	slices.Sort(keys)
	return keys
}

func relativePathWithinBase(remotePath string, basePath string) (string, bool) {
	cleanRemote := normalizeRepoPath(remotePath)
	cleanBase := normalizeRepoPath(basePath)

	if cleanBase == "" {
		return cleanRemote, cleanRemote != ""
	}

	if cleanRemote == cleanBase {
		return path.Base(cleanRemote), true
	}

	relativePath, found := strings.CutPrefix(cleanRemote, cleanBase+"/")
	if !found {
		return "", false
	}

	return relativePath, relativePath != ""
}

// isSingleFilePath reports whether a repo path names one Lua file rather
// than a directory.
func isSingleFilePath(repoPath string) bool {
	trimmed := strings.TrimSpace(repoPath)
	if strings.HasSuffix(trimmed, "/") {
		return false
	}

	return strings.EqualFold(path.Ext(trimmed), luaExtension)
}

func normalizeRepoPath(repoPath string) string {
	trimmed := strings.Trim(strings.TrimSpace(repoPath), "/")
	if trimmed == "" {
		return ""
	}

	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return ""
	}

	return strings.TrimPrefix(cleaned, "/")
}

func parseRepo(repo string) (string, string, error) {
	owner, name, found := strings.Cut(repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", oops.
			Code("CONFIG_INVALID").
			With("repo", repo).
			Hint("Expected repo format: owner/repo").
			Errorf("invalid github repo format %q", repo)
	}

	return owner, name, nil
}
