package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// GrepTool searches for text patterns in files. Grounded on teacher
// pkg/engine/tools/grep.go.
type GrepTool struct {
	BaseTool
	guard       *sandbox.Guard
	maxResults  int
	maxFileSize int64
}

func NewGrepTool(guard *sandbox.Guard) *GrepTool {
	return &GrepTool{
		BaseTool: NewBaseTool(
			"grep",
			"Search for text patterns in files. Returns matching lines with file paths and line numbers.",
			[]ParamDef{
				{Name: "pattern", Type: "string", Description: "Text or regex pattern to search for", Required: true},
				{Name: "path", Type: "string", Description: "File or directory to search in (default: workspace root)"},
				{Name: "include", Type: "string", Description: "File glob pattern to include (e.g., *.go, *.js)"},
				{Name: "ignore_case", Type: "boolean", Description: "Case-insensitive search"},
			},
			model.PolicyAllow,
			false,
		),
		guard:       guard,
		maxResults:  50,
		maxFileSize: 1024 * 1024,
	}
}

type grepMatch struct {
	File    string
	Line    int
	Content string
}

func (t *GrepTool) Execute(_ context.Context, args model.Args) (Result, error) {
	pattern := GetString(args, "pattern", "")
	if pattern == "" {
		return Failuref("pattern is required"), nil
	}
	searchPath := GetString(args, "path", ".")
	include := GetString(args, "include", "")
	ignoreCase := GetBool(args, "ignore_case", false)

	absPath, err := t.guard.Resolve(searchPath)
	if err != nil {
		return Failure(err), nil
	}
	rootAbs := t.guard.Root()

	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(pattern))
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Failuref("path not found: %s", searchPath), nil
	}

	var files []string
	if info.IsDir() {
		files, err = t.collectFiles(absPath, include)
		if err != nil {
			return Failure(err), nil
		}
	} else {
		files = []string{absPath}
	}

	var matches []grepMatch
	for _, file := range files {
		if len(matches) >= t.maxResults {
			break
		}
		fileMatches, err := t.searchFile(file, re)
		if err != nil {
			continue
		}
		matches = append(matches, fileMatches...)
	}

	if len(matches) == 0 {
		return Success("no matches found for pattern: " + pattern), nil
	}

	var output strings.Builder
	for i, m := range matches {
		if i >= t.maxResults {
			fmt.Fprintf(&output, "\n... (showing first %d matches)", t.maxResults)
			break
		}
		rel, _ := filepath.Rel(rootAbs, m.File)
		fmt.Fprintf(&output, "%s:%d: %s\n", rel, m.Line, strings.TrimSpace(m.Content))
	}

	return Success(output.String()), nil
}

func (t *GrepTool) collectFiles(dir, include string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") && name != "." {
				return filepath.SkipDir
			}
			if name == "node_modules" || name == "vendor" || name == "__pycache__" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Size() > t.maxFileSize {
			return nil
		}
		if include != "" {
			matched, _ := filepath.Match(include, info.Name())
			if !matched {
				return nil
			}
		}
		if isBinaryFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, err
}

func (t *GrepTool) searchFile(path string, re *regexp.Regexp) ([]grepMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var matches []grepMatch
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, grepMatch{File: path, Line: lineNum, Content: line})
			if len(matches) >= 10 {
				break
			}
		}
	}

	return matches, scanner.Err()
}

var binaryExtensions = map[string]bool{
	".exe": true, ".bin": true, ".so": true, ".dylib": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

func isBinaryFile(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}
