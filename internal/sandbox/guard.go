// Package sandbox resolves user-supplied paths against a workspace root,
// rejecting any path that escapes the root directly or via a symlink
// (spec.md §5 invariant 5, §8 testable property 5). The file tools and
// the shell tool route through the same Guard so the check can't be
// accidentally skipped by one of them. MCP tool calls do not pass
// through it.
//
// Grounded on teacher pkg/engine/tools/path.go's resolvePathInWorkspace,
// generalized from a package-private helper used only by the file tools
// into a shared component with its own policy (root set at construction,
// not threaded as a parameter through every call site).
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vtcode-go/vtcode/internal/errkind"
)

// Guard resolves paths against a fixed workspace root.
type Guard struct {
	root     string
	rootReal string
}

// NewGuard builds a Guard rooted at workspaceRoot. The root itself must
// exist; its symlinks are resolved once at construction.
func NewGuard(workspaceRoot string) (*Guard, error) {
	rootAbs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "resolving workspace root %q", workspaceRoot)
	}
	rootAbs = filepath.Clean(rootAbs)

	rootReal, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "resolving workspace root symlinks %q", rootAbs)
	}

	return &Guard{root: rootAbs, rootReal: filepath.Clean(rootReal)}, nil
}

// Root returns the guard's absolute, cleaned workspace root.
func (g *Guard) Root() string { return g.root }

// Resolve maps userPath (absolute or relative to the root) to a real,
// symlink-resolved absolute path guaranteed to live within the workspace
// root. An empty userPath resolves to the root itself. Returns an
// errkind.Sandbox error if the path escapes the root, directly or through
// a symlink anywhere along its ancestry.
func (g *Guard) Resolve(userPath string) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		userPath = "."
	}

	var targetAbs string
	if filepath.IsAbs(userPath) {
		targetAbs = filepath.Clean(userPath)
	} else {
		targetAbs = filepath.Clean(filepath.Join(g.root, userPath))
	}

	if !pathWithinRoot(g.root, targetAbs) {
		return "", errkind.New(errkind.Sandbox, "path escapes workspace: %s", userPath)
	}

	if _, err := os.Lstat(targetAbs); err == nil {
		targetReal, err := filepath.EvalSymlinks(targetAbs)
		if err != nil {
			return "", errkind.Wrap(errkind.IO, err, "resolving symlinks for %q", targetAbs)
		}
		targetReal = filepath.Clean(targetReal)
		if !pathWithinRoot(g.rootReal, targetReal) {
			return "", errkind.New(errkind.Sandbox, "path escapes workspace via symlink: %s", userPath)
		}
		return targetReal, nil
	} else if !os.IsNotExist(err) {
		return "", errkind.Wrap(errkind.IO, err, "statting %q", targetAbs)
	}

	return g.resolveMissing(userPath, targetAbs)
}

// resolveMissing handles a target that does not yet exist (e.g. a file
// about to be created): it walks up to the nearest existing ancestor,
// resolves that ancestor's symlinks, and reattaches the non-existent
// suffix, still checking the result lands within the root.
func (g *Guard) resolveMissing(userPath, targetAbs string) (string, error) {
	parent := filepath.Dir(targetAbs)
	for {
		if _, err := os.Lstat(parent); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return "", errkind.Wrap(errkind.IO, err, "statting parent %q", parent)
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}

	parentReal, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return "", errkind.Wrap(errkind.IO, err, "resolving parent symlinks %q", parent)
	}
	parentReal = filepath.Clean(parentReal)

	suffix, err := filepath.Rel(parent, targetAbs)
	if err != nil {
		return "", errkind.Wrap(errkind.IO, err, "computing suffix for %q", targetAbs)
	}
	if suffix == ".." || strings.HasPrefix(suffix, ".."+string(filepath.Separator)) {
		return "", errkind.New(errkind.Sandbox, "path escapes workspace: %s", userPath)
	}

	targetReal := filepath.Clean(filepath.Join(parentReal, suffix))
	if !pathWithinRoot(g.rootReal, targetReal) {
		return "", errkind.New(errkind.Sandbox, "path escapes workspace via symlink: %s", userPath)
	}
	return targetReal, nil
}

// Contains reports whether an already-resolved absolute path lies within
// the guard's root, without touching the filesystem. Useful for
// validating paths a tool received back from an external process (e.g. an
// MCP server) rather than from user input.
func (g *Guard) Contains(absPath string) bool {
	return pathWithinRoot(g.root, filepath.Clean(absPath)) || pathWithinRoot(g.rootReal, filepath.Clean(absPath))
}

func pathWithinRoot(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
