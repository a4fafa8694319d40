package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path    func(base string) string
		wantErr bool
	}{
		"new directory": {
			path: func(base string) string { return filepath.Join(base, "sub") },
		},
		"nested directories": {
			path: func(base string) string { return filepath.Join(base, "a", "b", "c") },
		},
		"existing directory": {
			path: func(base string) string { return base },
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			base := t.TempDir()
			path := tc.path(base)

			err := EnsureDir(path)
			if (err != nil) != tc.wantErr {
				t.Fatalf("EnsureDir(%q) error = %v, wantErr %v", path, err, tc.wantErr)
			}
			if err == nil {
				info, statErr := os.Stat(path)
				if statErr != nil {
					t.Fatalf("stat created dir: %v", statErr)
				}
				if !info.IsDir() {
					t.Errorf("%q is not a directory", path)
				}
			}
		})
	}
}

func TestEnsureDir_PathIsFile(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	file := filepath.Join(base, "occupied")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := EnsureDir(file); err == nil {
		t.Fatal("expected error when path exists as a file")
	}
}

func TestEnsureDirForFile(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	target := filepath.Join(base, "logs", "agent-stdout.log")

	if err := EnsureDirForFile(target); err != nil {
		t.Fatalf("EnsureDirForFile(%q) error: %v", target, err)
	}

	if err := os.WriteFile(target, []byte("ok"), 0o600); err != nil {
		t.Errorf("file not creatable after EnsureDirForFile: %v", err)
	}
}
