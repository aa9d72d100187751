package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "image.bin")

	if err := WriteFile(path, []byte("littlefs"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if !FileExists(path) {
		t.Fatal("expected file to exist")
	}
	if !DirExists(filepath.Dir(path)) {
		t.Fatal("expected parent directory to exist")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "littlefs" {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temporary file to be cleaned up, found %d entries", len(entries))
	}
}

func TestFileExistsOnDirectory(t *testing.T) {
	dir := t.TempDir()
	if FileExists(dir) {
		t.Error("FileExists() should be false for a directory")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists() should be false for a missing path")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/images/a.img", filepath.Join(home, "images", "a.img")},
		{"/abs/path", "/abs/path"},
		{"rel/~/x", "rel/~/x"},
	}
	for _, tt := range tests {
		got, err := ExpandTilde(tt.in)
		if err != nil {
			t.Fatalf("ExpandTilde(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDevLocations(t *testing.T) {
	t.Setenv("LFS_DEBUG_ENV", "development")

	if dir, _ := GetConfigDir("lfs-debug"); dir != "config" {
		t.Errorf("GetConfigDir() = %q, want config", dir)
	}
	if dir, _ := GetSystemConfigDir("lfs-debug"); dir != "config" {
		t.Errorf("GetSystemConfigDir() = %q, want config", dir)
	}
	if dir, _ := GetLogDir("lfs-debug"); dir != "logs" {
		t.Errorf("GetLogDir() = %q, want logs", dir)
	}
}
