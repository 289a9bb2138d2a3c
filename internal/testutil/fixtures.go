// Package testutil provides utilities for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to a file in the given directory, creating
// intermediate directories, and returns its path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// WriteTree writes every name/content pair under a fresh temp directory
// and returns the directory.
func WriteTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	return dir
}

// MagicBuffer returns an n-byte buffer carrying the record preamble token.
func MagicBuffer(n int) []byte {
	if n < 132 {
		n = 132
	}
	buf := make([]byte, n)
	copy(buf[128:], "DICM")
	return buf
}

// UIDTextBuffer returns a buffer without preamble whose bytes contain a
// transfer syntax UID, the shape of headerless exports.
func UIDTextBuffer() []byte {
	buf := make([]byte, 8, 64)
	buf = append(buf, "1.2.840.10008.1.2.1"...)
	return append(buf, make([]byte, 16)...)
}
