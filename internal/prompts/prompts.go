// Package prompts is the slash-command and custom-prompt registry
// (spec.md §4.11): directories are scanned in precedence order for
// `*.md` files with optional YAML frontmatter; a prompt body may
// reference `$1..$9`, `$NAME`, and `$ARGUMENTS` placeholders that an
// invocation's tokenized arguments fill in.
//
// Grounded on teacher pkg/engine/prompts/loader.go (project-root
// override before embedded default, a name->content cache behind an
// RWMutex), generalized from two fixed prompt names and no frontmatter
// to a full directory scan, YAML frontmatter, and placeholder
// substitution.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.md
var embeddedPrompts embed.FS

// Frontmatter is the optional YAML header a prompt file may carry.
type Frontmatter struct {
	Description  string   `yaml:"description"`
	ArgumentHint string   `yaml:"argument-hint"`
	Required     []string `yaml:"required"`
}

// Prompt is one loaded template: its identity, parsed frontmatter, and
// body with the frontmatter block removed.
type Prompt struct {
	Name        string
	Frontmatter Frontmatter
	Body        string
	// Source is the absolute path it was loaded from, or "" for a
	// built-in prompt served from the embedded filesystem.
	Source string
}

// Registry loads and caches prompts from a precedence-ordered list of
// directories, falling back to the built-ins embedded in the binary.
//
// Grounded on the teacher's project-root-then-embedded fallback order,
// generalized to N directories (e.g. project root, then user config
// dir) instead of one.
type Registry struct {
	dirs  []string
	mu    sync.RWMutex
	cache map[string]*Prompt
}

// NewRegistry returns a Registry that checks dirs in order before
// falling back to the embedded built-ins. Earlier directories win.
func NewRegistry(dirs ...string) *Registry {
	return &Registry{dirs: dirs, cache: make(map[string]*Prompt)}
}

// Get loads (or returns the cached copy of) the prompt named name. A
// user file with the same stem as a built-in overrides it.
func (r *Registry) Get(name string) (*Prompt, error) {
	r.mu.RLock()
	if p, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	p, err := r.load(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[name] = p
	r.mu.Unlock()
	return p, nil
}

func (r *Registry) load(name string) (*Prompt, error) {
	filename := name + ".md"

	for _, dir := range r.dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, filename)
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fm, body := splitFrontmatter(string(raw))
		return &Prompt{Name: name, Frontmatter: fm, Body: body, Source: path}, nil
	}

	raw, err := embeddedPrompts.ReadFile("builtin/" + filename)
	if err != nil {
		return nil, fmt.Errorf("prompts: no prompt named %q", name)
	}
	fm, body := splitFrontmatter(string(raw))
	return &Prompt{Name: name, Frontmatter: fm, Body: body}, nil
}

// ClearCache forces the next Get to re-read from disk/embedded storage.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]*Prompt)
	r.mu.Unlock()
}

// List returns every prompt name visible across the configured
// directories and the built-in set, a user stem taking precedence over
// a built-in of the same name.
func (r *Registry) List() []string {
	seen := make(map[string]bool)
	var names []string

	add := func(stem string) {
		if !seen[stem] {
			seen[stem] = true
			names = append(names, stem)
		}
	}

	for _, dir := range r.dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
				add(strings.TrimSuffix(e.Name(), ".md"))
			}
		}
	}

	_ = fs.WalkDir(embeddedPrompts, "builtin", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".md") {
			add(strings.TrimSuffix(filepath.Base(path), ".md"))
		}
		return nil
	})

	return names
}

const frontmatterDelim = "---"

// splitFrontmatter separates a leading `---`-delimited YAML block from
// the rest of the file. A missing or malformed block yields a zero
// Frontmatter and the original content as the body.
func splitFrontmatter(raw string) (Frontmatter, string) {
	raw = strings.TrimLeft(raw, "﻿")
	if !strings.HasPrefix(raw, frontmatterDelim) {
		return Frontmatter{}, strings.TrimSpace(raw)
	}

	rest := raw[len(frontmatterDelim):]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return Frontmatter{}, strings.TrimSpace(raw)
	}

	header := rest[:end]
	body := rest[end+len("\n"+frontmatterDelim):]
	body = strings.TrimPrefix(body, "\n")

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Frontmatter{}, strings.TrimSpace(raw)
	}
	return fm, strings.TrimSpace(body)
}
