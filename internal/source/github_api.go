package source

import (
	"context"
	"encoding/base64"
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"resty.dev/v3"
)

const (
	githubAPIBaseURL    = "https://api.github.com"
	userAgent           = "luatags"
	httpRetryCount      = 3
	httpRetryMaxWaitSec = 5
	rateLimitWarnThresh = 10
)

type githubTreeResponse struct {
	SHA       string            `json:"sha"`
	Truncated bool              `json:"truncated"`
	Tree      []githubTreeEntry `json:"tree"`
}

type githubTreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type githubRepoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

type githubContentResponse struct {
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type githubBlobResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func newGitHubClient(token string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(githubAPIBaseURL)
	client.SetHeader("Accept", "application/vnd.github.v3+json")
	client.SetHeader("User-Agent", userAgent)
	client.SetRetryCount(httpRetryCount)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(httpRetryMaxWaitSec * time.Second)

	if token != "" {
		client.SetAuthToken(token)
	}

	return client
}

// get performs one API call, decoding the body into result. what names the
// resource in error messages.
func (s *githubSource) get(
	ctx context.Context,
	endpoint string,
	query map[string]string,
	result any,
	what string,
) error {
	response, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		Get(endpoint)
	if err != nil {
		return oops.
			Code("GITHUB_API_ERROR").
			With("repo", s.source.Repo).
			With("endpoint", endpoint).
			Wrapf(err, "fetching %s", what)
	}

	if rlErr := s.checkRateLimit(response); rlErr != nil {
		return rlErr
	}

	if !response.IsSuccess() {
		return oops.
			Code("GITHUB_API_ERROR").
			With("repo", s.source.Repo).
			With("endpoint", endpoint).
			With("status", response.StatusCode()).
			Hint("Check the repo, path and ref of the source in your config").
			Errorf("github API returned status %d for %s", response.StatusCode(), what)
	}

	return nil
}

func (s *githubSource) resolveRef(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.resolvedRef
	s.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	ref := s.source.Ref
	if ref == "" {
		result := &githubRepoResponse{}
		endpoint := fmt.Sprintf("/repos/%s/%s", s.owner, s.repo)
		if err := s.get(ctx, endpoint, nil, result, "repository metadata"); err != nil {
			return "", err
		}

		if result.DefaultBranch == "" {
			return "", oops.
				Code("GITHUB_API_ERROR").
				With("repo", s.source.Repo).
				Errorf("github repository metadata did not include default branch")
		}

		ref = result.DefaultBranch
	}

	s.mu.Lock()
	s.resolvedRef = ref
	s.mu.Unlock()

	return ref, nil
}

func (s *githubSource) fetchTree(ctx context.Context, ref string) (*githubTreeResponse, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/trees/%s", s.owner, s.repo, neturl.PathEscape(ref))
	result := &githubTreeResponse{}

	if err := s.get(ctx, endpoint, map[string]string{"recursive": "1"}, result, "tree"); err != nil {
		return nil, err
	}

	if result.Truncated {
		return nil, oops.
			Code("GITHUB_API_ERROR").
			With("repo", s.source.Repo).
			With("ref", ref).
			Hint("Narrow the source path or patterns; truncated trees are not supported").
			Errorf("github returned a truncated tree for %q", s.source.Repo)
	}

	return result, nil
}

func (s *githubSource) fetchContentSHA(ctx context.Context, ref string, filePath string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", s.owner, s.repo, escapeRepoPath(filePath))
	result := &githubContentResponse{}

	if err := s.get(ctx, endpoint, map[string]string{"ref": ref}, result, "content metadata"); err != nil {
		return "", err
	}

	if result.Type != "file" || result.SHA == "" {
		return "", oops.
			Code("GITHUB_API_ERROR").
			With("repo", s.source.Repo).
			With("path", filePath).
			Errorf("expected file metadata for %q", filePath)
	}

	return result.SHA, nil
}

func (s *githubSource) fetchBlobContent(ctx context.Context, sha string) ([]byte, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/blobs/%s", s.owner, s.repo, sha)
	result := &githubBlobResponse{}

	if err := s.get(ctx, endpoint, nil, result, "blob"); err != nil {
		return nil, err
	}

	if result.Encoding != "base64" {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("repo", s.source.Repo).
			With("sha", sha).
			Errorf("unsupported blob encoding %q", result.Encoding)
	}

	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(result.Content, "\n", ""))
	if err != nil {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("repo", s.source.Repo).
			With("sha", sha).
			Wrapf(err, "decoding blob content")
	}

	return content, nil
}

func (s *githubSource) checkRateLimit(response *resty.Response) error {
	remainingRaw := response.Header().Get("X-Ratelimit-Remaining")
	if remainingRaw == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainingRaw)
	if err != nil {
		return nil //nolint:nilerr // malformed header is ignored
	}

	if remaining == 0 {
		return oops.
			Code("GITHUB_RATE_LIMIT").
			With("repo", s.source.Repo).
			With("reset", response.Header().Get("X-Ratelimit-Reset")).
			Hint("Set github_token, GITHUB_TOKEN, or GH_TOKEN to increase limits").
			Errorf("github API rate limit exhausted")
	}

	if remaining <= rateLimitWarnThresh {
		s.warnLowRateLimit(remaining)
	}

	return nil
}

func (s *githubSource) warnLowRateLimit(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warnedLowRL {
		return
	}

	s.warnedLowRL = true
	s.warnings = append(s.warnings, fmt.Sprintf("github API rate limit low: %d requests remaining", remaining))
}

func escapeRepoPath(repoPath string) string {
	cleaned := normalizeRepoPath(repoPath)
	if cleaned == "" {
		return ""
	}

	parts := strings.Split(cleaned, "/")
	for i, part := range parts {
		parts[i] = neturl.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
