package tools

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// GlobTool finds files matching a glob pattern. Grounded on teacher
// pkg/engine/tools/glob.go.
type GlobTool struct {
	BaseTool
	guard      *sandbox.Guard
	maxResults int
}

func NewGlobTool(guard *sandbox.Guard) *GlobTool {
	return &GlobTool{
		BaseTool: NewBaseTool(
			"glob",
			"Find files matching a glob pattern (e.g., '**/*.go', 'src/*.js'). Returns matching file paths.",
			[]ParamDef{
				{Name: "pattern", Type: "string", Description: "Glob pattern to match (e.g., **/*.go, src/**/*.ts)", Required: true},
				{Name: "path", Type: "string", Description: "Base directory to search from (default: workspace root)"},
			},
			model.PolicyAllow,
			false,
		),
		guard:      guard,
		maxResults: 100,
	}
}

func (t *GlobTool) Execute(_ context.Context, args model.Args) (Result, error) {
	pattern := GetString(args, "pattern", "")
	if pattern == "" {
		return Failuref("pattern is required"), nil
	}
	basePath := GetString(args, "path", ".")

	absBase, err := t.guard.Resolve(basePath)
	if err != nil {
		return Failure(err), nil
	}
	rootAbs := t.guard.Root()

	var matches []string
	if strings.Contains(pattern, "**") {
		matches, err = t.recursiveGlob(absBase, pattern)
	} else {
		matches, err = filepath.Glob(filepath.Join(absBase, pattern))
	}
	if err != nil {
		return Failure(err), nil
	}

	var relativePaths []string
	for _, match := range matches {
		rel, err := filepath.Rel(rootAbs, match)
		if err != nil {
			rel = match
		}
		relativePaths = append(relativePaths, rel)
	}
	sort.Strings(relativePaths)

	if len(relativePaths) > t.maxResults {
		truncated := relativePaths[:t.maxResults]
		return Success(strings.Join(truncated, "\n") +
			"\n\n... (truncated, showing first " + strconv.Itoa(t.maxResults) + " results)"), nil
	}
	if len(relativePaths) == 0 {
		return Success("no files found matching pattern: " + pattern), nil
	}
	return Success(strings.Join(relativePaths, "\n")), nil
}

func (t *GlobTool) recursiveGlob(basePath, pattern string) ([]string, error) {
	var matches []string

	parts := strings.SplitN(pattern, "**", 2)
	prefix := parts[0]
	suffix := ""
	if len(parts) > 1 {
		suffix = strings.TrimPrefix(parts[1], "/")
		suffix = strings.TrimPrefix(suffix, string(filepath.Separator))
	}

	err := filepath.Walk(basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() && strings.HasPrefix(info.Name(), ".") && info.Name() != "." {
			return filepath.SkipDir
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(basePath, path)
		if err != nil {
			return nil
		}
		if prefix != "" && !strings.HasPrefix(relPath, strings.TrimSuffix(prefix, "/")) {
			return nil
		}
		if suffix != "" {
			matched, _ := filepath.Match(suffix, filepath.Base(path))
			if !matched {
				return nil
			}
		}

		matches = append(matches, path)
		if len(matches) > t.maxResults*2 {
			return filepath.SkipAll
		}
		return nil
	})

	return matches, err
}
