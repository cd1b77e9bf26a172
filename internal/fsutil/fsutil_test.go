package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileScoped(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "targets.yaml")
	if err := os.WriteFile(p, []byte("targets: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadFileScoped(p)
	if err != nil {
		t.Fatalf("ReadFileScoped: %v", err)
	}
	if string(data) != "targets: []\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestReadFileScoped_NonexistentFile(t *testing.T) {
	_, err := ReadFileScoped(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestReadFileScoped_NonexistentDirectory(t *testing.T) {
	_, err := ReadFileScoped(filepath.Join(t.TempDir(), "nodir", "file.yaml"))
	if err == nil {
		t.Error("expected error for nonexistent directory")
	}
}

func TestReadFileScoped_TraversalStaysScoped(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Clean collapses the traversal, so the read resolves inside dir.
	data, err := ReadFileScoped(filepath.Join(sub, "..", "secret.txt"))
	if err != nil {
		t.Fatalf("ReadFileScoped: %v", err)
	}
	if string(data) != "x" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}

	// Idempotent on an existing directory.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}

func TestEnsureDir_Empty(t *testing.T) {
	if err := EnsureDir(""); err == nil {
		t.Error("expected error for empty path")
	}
}
