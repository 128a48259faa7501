package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LoadsBuiltin(t *testing.T) {
	r := NewRegistry()
	p, err := r.Get("compress_summary")
	require.NoError(t, err)
	assert.Equal(t, "Summarize the conversation so far for context compaction", p.Frontmatter.Description)
	assert.Contains(t, p.Body, "Summarize the conversation")
	assert.Empty(t, p.Source)
}

func TestRegistry_UserFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	content := "---\ndescription: custom override\n---\nCustom body.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compress_summary.md"), []byte(content), 0o644))

	r := NewRegistry(dir)
	p, err := r.Get("compress_summary")
	require.NoError(t, err)
	assert.Equal(t, "custom override", p.Frontmatter.Description)
	assert.Equal(t, "Custom body.", p.Body)
	assert.NotEmpty(t, p.Source)
}

func TestRegistry_UnknownPromptErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("does_not_exist")
	assert.Error(t, err)
}

func TestRegistry_CachesAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.md")
	require.NoError(t, os.WriteFile(path, []byte("Hello $NAME"), 0o644))

	r := NewRegistry(dir)
	first, err := r.Get("greet")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("Changed"), 0o644))
	second, err := r.Get("greet")
	require.NoError(t, err)
	assert.Same(t, first, second)

	r.ClearCache()
	third, err := r.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, "Changed", third.Body)
}

func TestTokenize_QuotingAndEscapes(t *testing.T) {
	tokens, err := Tokenize(`foo "bar baz" 'single quote' escaped\ space k=v`)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar baz", "single quote", "escaped space", "k=v"}, tokens)
}

func TestTokenize_UnterminatedQuoteErrors(t *testing.T) {
	_, err := Tokenize(`foo "bar`)
	assert.Error(t, err)
}

func TestParseInvocation_SplitsPositionalAndNamed(t *testing.T) {
	inv, err := ParseInvocation("review", `file.go strict=true`)
	require.NoError(t, err)
	assert.Equal(t, []string{"file.go"}, inv.Positional)
	assert.Equal(t, "true", inv.Named["strict"])
	assert.Equal(t, "file.go", inv.Named["TASK"])
}

func TestExpand_SubstitutesPlaceholdersAndPositionals(t *testing.T) {
	p := &Prompt{Name: "greet", Body: "Hello $1, task: $TASK, all: $ARGUMENTS"}
	inv, err := ParseInvocation("greet", "world extra")
	require.NoError(t, err)

	out, err := Expand(p, inv)
	require.NoError(t, err)
	assert.Equal(t, "Hello world, task: world extra, all: world extra", out)
}

func TestExpand_MissingRequiredArgumentErrors(t *testing.T) {
	p := &Prompt{Name: "review", Frontmatter: Frontmatter{Required: []string{"TASK"}, ArgumentHint: "<path>"}, Body: "Review $TASK"}
	inv, err := ParseInvocation("review", "")
	require.NoError(t, err)

	_, err = Expand(p, inv)
	assert.Error(t, err)
}
