package internal

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	bs, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(bs)
}

func TestPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), URLFileName)

	if err := Publish(path, "https://first.ngrok.io"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := readFile(t, path); got != "https://first.ngrok.io" {
		t.Errorf("content = %q", got)
	}

	if err := Publish(path, "auth failed"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := readFile(t, path); got != "auth failed" {
		t.Errorf("content = %q, want only the second value", got)
	}
}

func TestPublishReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), URLFileName)
	writeFile(t, path, "a much longer stale value from an earlier run")

	// Holding the old file open keeps its inode from being reused.
	old, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer old.Close()

	before, err := old.Stat()
	if err != nil {
		t.Fatal(err)
	}

	if err := Publish(path, "short"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := readFile(t, path); got != "short" {
		t.Errorf("content = %q, want %q", got, "short")
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if os.SameFile(before, after) {
		t.Error("expected the old file to be removed and a new one created")
	}

	unlinked, err := old.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if st, ok := unlinked.Sys().(*syscall.Stat_t); ok && st.Nlink != 0 {
		t.Errorf("old file has %d links, want 0", st.Nlink)
	}
}

func TestPublishMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", URLFileName)
	if err := Publish(path, "x"); err == nil {
		t.Error("expected an error writing into a missing directory")
	}
}
