package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/photos/../pics", filepath.Join(home, "pics")},
		{"/tmp//x/", "/tmp/x"},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLockPathIsStablePerRoot(t *testing.T) {
	a, err := LockPath("/photos/2024")
	if err != nil {
		t.Fatal(err)
	}
	b, err := LockPath("/photos/2024/")
	if err != nil {
		t.Fatal(err)
	}
	c, err := LockPath("/photos/2023")
	if err != nil {
		t.Fatal(err)
	}

	if a != b {
		t.Errorf("same root produced %s and %s", a, b)
	}
	if a == c {
		t.Errorf("different roots share lock %s", a)
	}
	if !strings.HasPrefix(filepath.Base(a), "snappurge-") || filepath.Dir(a) != filepath.Clean(os.TempDir()) {
		t.Errorf("unexpected lock path %s", a)
	}
}
