package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadFile(t *testing.T) {
	data := []byte{0x00, 0x01, 0xfe}
	path := WriteFile(t, "capture.bin", data)

	if filepath.Base(path) != "capture.bin" {
		t.Errorf("unexpected file name %q", path)
	}
	if got := ReadFile(t, path); !bytes.Equal(got, data) {
		t.Errorf("ReadFile = %v, want %v", got, data)
	}
}

func TestChdir(t *testing.T) {
	dir := t.TempDir()
	Chdir(t, dir)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	// resolve symlinks, macOS temp dirs live under /private
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(wd)
	if got != want {
		t.Errorf("working dir = %q, want %q", got, want)
	}
}
