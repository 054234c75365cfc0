package source_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/lockfile"
	"github.com/g5becks/luatags/internal/source"
)

const sampleLua = "local json = Lplus.Class(\"json\")\nfunction json.encode(v)\nend\n"

func TestFilenameFromURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		sourceURL string
		sourceKey string
		want      string
	}{
		{name: "path basename", sourceURL: "https://example.com/lib/json.lua", sourceKey: "json", want: "json.lua"},
		{
			name: "query ignored", sourceURL: "https://example.com/raw/inspect.lua?token=abc",
			sourceKey: "inspect", want: "inspect.lua",
		},
		{name: "trailing slash", sourceURL: "https://example.com/lib/", sourceKey: "lib", want: "lib"},
		{name: "empty path", sourceURL: "https://example.com", sourceKey: "root", want: "root.lua"},
		{name: "invalid url", sourceURL: ":// bad", sourceKey: "json", want: "json.lua"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := source.FilenameFromURL(tc.sourceKey, tc.sourceURL)
			if got != tc.want {
				t.Fatalf("FilenameFromURL(%q, %q) = %q, want %q", tc.sourceKey, tc.sourceURL, got, tc.want)
			}
		})
	}
}

func TestNewRejectsUnsyncableSources(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		cfg     config.Source
		wantErr string
	}{
		{name: "dir", cfg: config.Source{Type: "dir", Path: "."}, wantErr: "cannot be synced"},
		{name: "unknown", cfg: config.Source{Type: "svn"}, wantErr: "unknown source type"},
		{name: "bad repo", cfg: config.Source{Type: "github", Repo: "nope"}, wantErr: "invalid github repo format"},
		{name: "bad url", cfg: config.Source{Type: "url", URL: "not a url"}, wantErr: "parsing url"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := source.New(tc.name, tc.cfg, "")
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("New() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	if source.IsRemote(config.Source{Type: "dir"}) {
		t.Fatalf("IsRemote(dir) = true, want false")
	}

	if !source.IsRemote(config.Source{Type: "github"}) || !source.IsRemote(config.Source{Type: "url"}) {
		t.Fatalf("IsRemote(github|url) = false, want true")
	}
}

func TestURLSyncDownloadsFileAndUpdatesLock(t *testing.T) {
	t.Parallel()

	src, setClient := source.TestableURLSource(t, "json", config.Source{
		URL: "https://example.test/lib/json.lua",
	})

	setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
		headers := http.Header{}
		headers.Set("ETag", `"abc123"`)
		headers.Set("Last-Modified", "Tue, 15 Jan 2024 10:30:00 GMT")

		return source.NewHTTPResponse(req, http.StatusOK, sampleLua, headers)
	}))

	destDir := t.TempDir()
	var notified []string

	result, err := src.Sync(context.Background(), destDir, nil, source.SyncOptions{
		OnFile: func(relPath string) { notified = append(notified, relPath) },
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.Downloaded != 1 {
		t.Fatalf("Downloaded = %d, want 1", result.Downloaded)
	}

	entry := result.LockEntry
	if entry == nil || entry.ETag != `"abc123"` || entry.Type != "url" {
		t.Fatalf("LockEntry = %+v, want url entry with etag", entry)
	}

	if entry.URL != "https://example.test/lib/json.lua" || entry.FileCount() != 1 {
		t.Fatalf("LockEntry = %+v, want url and one file", entry)
	}

	if len(notified) != 1 || notified[0] != "json.lua" {
		t.Fatalf("OnFile paths = %v, want [json.lua]", notified)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "json.lua"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(content) != sampleLua {
		t.Fatalf("file content = %q, want %q", string(content), sampleLua)
	}
}

func TestURLSyncUsesConfiguredFilename(t *testing.T) {
	t.Parallel()

	src, setClient := source.TestableURLSource(t, "json", config.Source{
		URL:      "https://example.test/raw?id=7",
		Filename: "vendor/json.lua",
	})

	setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
		return source.NewHTTPResponse(req, http.StatusOK, sampleLua, nil)
	}))

	destDir := t.TempDir()
	if _, err := src.Sync(context.Background(), destDir, nil, source.SyncOptions{}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "vendor", "json.lua")); err != nil {
		t.Fatalf("expected vendor/json.lua: %v", err)
	}
}

func TestURLSyncSendsConditionalHeadersAndSkips304(t *testing.T) {
	t.Parallel()

	src, setClient := source.TestableURLSource(t, "json", config.Source{
		URL: "https://example.test/lib/json.lua",
	})

	var ifNoneMatch string
	var ifModifiedSince string

	setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
		ifNoneMatch = req.Header.Get("If-None-Match")
		ifModifiedSince = req.Header.Get("If-Modified-Since")

		return source.NewHTTPResponse(req, http.StatusNotModified, "", nil)
	}))

	prevLock := &lockfile.LockEntry{
		Type:     "url",
		ETag:     `"etag-prev"`,
		LastMod:  "Wed, 16 Jan 2024 10:30:00 GMT",
		SyncedAt: time.Now().UTC().Add(-time.Hour),
		Files:    map[string]string{"json.lua": "sha"},
	}

	result, err := src.Sync(context.Background(), t.TempDir(), prevLock, source.SyncOptions{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if !result.Skipped {
		t.Fatalf("Skipped = %v, want true", result.Skipped)
	}

	if ifNoneMatch != `"etag-prev"` {
		t.Fatalf("If-None-Match = %q, want %q", ifNoneMatch, `"etag-prev"`)
	}

	if ifModifiedSince != "Wed, 16 Jan 2024 10:30:00 GMT" {
		t.Fatalf("If-Modified-Since = %q, want expected value", ifModifiedSince)
	}

	if !result.LockEntry.SyncedAt.After(prevLock.SyncedAt) {
		t.Fatalf("SyncedAt = %v, want refreshed timestamp", result.LockEntry.SyncedAt)
	}
}

func TestURLSyncForceOmitsConditionalHeaders(t *testing.T) {
	t.Parallel()

	src, setClient := source.TestableURLSource(t, "json", config.Source{
		URL: "https://example.test/lib/json.lua",
	})

	var sawConditional bool
	setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
		sawConditional = req.Header.Get("If-None-Match") != ""
		return source.NewHTTPResponse(req, http.StatusOK, sampleLua, nil)
	}))

	prevLock := &lockfile.LockEntry{Type: "url", ETag: `"etag-prev"`}

	result, err := src.Sync(context.Background(), t.TempDir(), prevLock, source.SyncOptions{Force: true})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if sawConditional {
		t.Fatalf("If-None-Match sent with Force")
	}

	if result.Downloaded != 1 {
		t.Fatalf("Downloaded = %d, want 1", result.Downloaded)
	}
}

func TestURLSyncSkipsIdenticalContent(t *testing.T) {
	t.Parallel()

	src, setClient := source.TestableURLSource(t, "json", config.Source{
		URL: "https://example.test/lib/json.lua",
	})

	setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
		return source.NewHTTPResponse(req, http.StatusOK, sampleLua, nil)
	}))

	first, err := src.Sync(context.Background(), t.TempDir(), nil, source.SyncOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	destDir := t.TempDir()
	second, err := src.Sync(context.Background(), destDir, first.LockEntry, source.SyncOptions{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if !second.Skipped || second.Downloaded != 0 {
		t.Fatalf("second Sync() = %+v, want skipped", second)
	}

	if _, statErr := os.Stat(filepath.Join(destDir, "json.lua")); !os.IsNotExist(statErr) {
		t.Fatalf("identical content was rewritten")
	}
}

func TestURLSyncDryRunDoesNotWriteFile(t *testing.T) {
	t.Parallel()

	src, setClient := source.TestableURLSource(t, "json", config.Source{
		URL: "https://example.test/lib/json.lua",
	})

	setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
		return source.NewHTTPResponse(req, http.StatusOK, sampleLua, nil)
	}))

	destDir := t.TempDir()

	result, err := src.Sync(context.Background(), destDir, nil, source.SyncOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.Downloaded != 1 {
		t.Fatalf("Downloaded = %d, want 1", result.Downloaded)
	}

	if _, statErr := os.Stat(filepath.Join(destDir, "json.lua")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file to be written in dry-run mode")
	}
}

func TestURLSyncErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "failure status", status: http.StatusBadGateway, body: "gateway error", wantErr: "non-success status 502"},
		{name: "binary body", status: http.StatusOK, body: "\x00\x01lua", wantErr: "binary content"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src, setClient := source.TestableURLSource(t, "json", config.Source{
				URL: "https://example.test/lib/json.lua",
			})

			setClient(source.NewMockRestyClient(func(req *http.Request) *http.Response {
				return source.NewHTTPResponse(req, tc.status, tc.body, nil)
			}))

			_, err := src.Sync(context.Background(), t.TempDir(), nil, source.SyncOptions{})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Sync() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}
