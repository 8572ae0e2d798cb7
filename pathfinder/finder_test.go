package pathfinder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDiscover_MatchesPatternAndSkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Main.java"), "class Main {}")
	writeFile(t, filepath.Join(root, "src", "Readme.md"), "# hi")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")

	f := NewFinder(false)
	matches, err := f.Discover(context.Background(), root, []string{"**/*.java"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d: %v", len(matches), matches)
	}
}

func TestDiscover_HonorsFulmenignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".fulmenignore"), "vendor/\n")
	writeFile(t, filepath.Join(root, "vendor", "Lib.java"), "class Lib {}")
	writeFile(t, filepath.Join(root, "src", "Main.java"), "class Main {}")

	f := NewFinder(false)
	matches, err := f.Discover(context.Background(), root, []string{"**/*.java"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one non-ignored match, got %d: %v", len(matches), matches)
	}
}

func TestDiscover_RejectsInvalidRoot(t *testing.T) {
	f := NewFinder(false)
	if _, err := f.Discover(context.Background(), "../escape", nil); err == nil {
		t.Error("expected a path-traversal root to be rejected")
	}
}
