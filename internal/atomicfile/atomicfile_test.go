package atomicfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/g5becks/luatags/internal/atomicfile"
)

func TestWriteCreatesParentsAndReplaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "tags")

	if err := atomicfile.Write(path, []byte("first\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := atomicfile.Write(path, []byte("second\n")); err != nil {
		t.Fatalf("Write() second error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(data) != "second\n" {
		t.Fatalf("content = %q, want %q", data, "second\n")
	}

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "tags.*.tmp"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}

	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestWriteFailsWhenParentIsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := atomicfile.Write(filepath.Join(blocker, "tags"), []byte("x")); err == nil {
		t.Fatalf("Write() error = nil, want non-nil")
	}
}
