package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tracker/internal/manager"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.csv")
	b := New(path)

	if err := b.Save([]byte("first version, longer")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := b.Save([]byte("second")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected file to be truncated and rewritten, got %q", data)
	}
}

func TestLoadMissingFile(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "absent.csv"))
	data, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != nil {
		t.Errorf("Expected no data, got %q", data)
	}
}

func TestSaveMissingDirectory(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "missing", "tasks.csv"))
	err := b.Save([]byte("x"))
	if !errors.Is(err, manager.ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
}

func TestLoadDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, err := New(filepath.Join(dir, "sub")).Load()
	if !errors.Is(err, manager.ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
}
