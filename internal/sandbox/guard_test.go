package sandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/vtcode-go/vtcode/internal/errkind"
)

func TestGuard_BlocksDotDotEscape(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Resolve("../outside.txt")
	if err == nil {
		t.Fatalf("expected error for path escape, got nil")
	}
	if errkind.KindOf(err) != errkind.Sandbox {
		t.Fatalf("expected Sandbox kind, got %v", errkind.KindOf(err))
	}
}

func TestGuard_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink behavior varies on Windows")
	}
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	g, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Resolve(filepath.Join("link", "secret.txt")); err == nil {
		t.Fatalf("expected error for symlink escape, got nil")
	}
}

func TestGuard_AllowsSymlinkInsideWorkspace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink behavior varies on Windows")
	}
	root := t.TempDir()
	target := filepath.Join(root, "real")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	g, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Resolve(filepath.Join("alias", "file.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(target, "file.txt")
	gotReal, _ := filepath.EvalSymlinks(got)
	wantReal, _ := filepath.EvalSymlinks(want)
	if filepath.Clean(gotReal) != filepath.Clean(wantReal) {
		t.Fatalf("expected %q, got %q", wantReal, gotReal)
	}
}

func TestGuard_ResolvesMissingFileUnderExistingDir(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Resolve("new/nested/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(filepath.Dir(got)) == "" {
		t.Fatalf("expected nested path, got %q", got)
	}
}

func TestGuard_EmptyPathResolvesToRoot(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	rootReal, _ := filepath.EvalSymlinks(root)
	gotReal, _ := filepath.EvalSymlinks(got)
	if filepath.Clean(gotReal) != filepath.Clean(rootReal) {
		t.Fatalf("expected root %q, got %q", rootReal, gotReal)
	}
}

func TestGuard_Contains(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Contains(filepath.Join(root, "a", "b")) {
		t.Fatalf("expected path under root to be contained")
	}
	if g.Contains(filepath.Join(filepath.Dir(root), "elsewhere")) {
		t.Fatalf("expected sibling path to be rejected")
	}
}
