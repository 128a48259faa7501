package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtcode-go/vtcode/internal/sandbox"
)

func newGuard(t *testing.T) *sandbox.Guard {
	t.Helper()
	root := t.TempDir()
	g, err := sandbox.NewGuard(root)
	require.NoError(t, err)
	return g
}

func TestEvaluate_BlocksUnknownCommand(t *testing.T) {
	guard := newGuard(t)
	d, err := Evaluate(DefaultPolicyThreshold(), guard, "", []string{"totally-unfamiliar-binary"})
	assert.Error(t, err)
	assert.Equal(t, DispositionBlocked, d.Disposition)
}

func TestEvaluate_BlocksCriticalSeverity(t *testing.T) {
	guard := newGuard(t)
	d, err := Evaluate(DefaultPolicyThreshold(), guard, "", []string{"rm", "-rf", "/"})
	assert.Error(t, err)
	assert.Equal(t, DispositionBlocked, d.Disposition)
	assert.Equal(t, SeverityCritical, d.Severity)
}

func TestEvaluate_AllowsLowSeverity(t *testing.T) {
	guard := newGuard(t)
	d, err := Evaluate(DefaultPolicyThreshold(), guard, "", []string{"base64", "somefile"})
	assert.NoError(t, err)
	assert.Equal(t, DispositionAllowed, d.Disposition)
}

func TestValidateAllowListed_Ls(t *testing.T) {
	guard := newGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(guard.Root(), "a.txt"), []byte("x"), 0644))

	assert.NoError(t, ValidateAllowListed(guard, "", []string{"ls", "-l", "a.txt"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"ls", "--color"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"ls", "missing.txt"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"ls", "../escape"}))
}

func TestValidateAllowListed_Cat(t *testing.T) {
	guard := newGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(guard.Root(), "a.txt"), []byte("hi"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(guard.Root(), "dir"), 0755))

	assert.NoError(t, ValidateAllowListed(guard, "", []string{"cat", "a.txt"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"cat"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"cat", "dir"}))
}

func TestValidateAllowListed_Rg_BlocksPreprocessor(t *testing.T) {
	guard := newGuard(t)
	err := ValidateAllowListed(guard, "", []string{"rg", "--pre", "evil.sh", "pattern"})
	assert.Error(t, err)
}

func TestValidateAllowListed_Rg_RequiresPatternOrListingFlag(t *testing.T) {
	guard := newGuard(t)
	assert.Error(t, ValidateAllowListed(guard, "", []string{"rg"}))
	assert.NoError(t, ValidateAllowListed(guard, "", []string{"rg", "--files"}))
}

func TestValidateAllowListed_Sed_RejectsExecFlags(t *testing.T) {
	guard := newGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(guard.Root(), "a.txt"), []byte("hi"), 0644))

	assert.NoError(t, ValidateAllowListed(guard, "", []string{"sed", "s/a/b/", "a.txt"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"sed", "s/a/b/e", "a.txt"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"sed", "not-a-substitution", "a.txt"}))
}

func TestValidateAllowListed_Which_RejectsPathLikeNames(t *testing.T) {
	guard := newGuard(t)
	assert.NoError(t, ValidateAllowListed(guard, "", []string{"which", "go"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"which", "/usr/bin/go"}))
}

func TestValidateAllowListed_Printenv(t *testing.T) {
	guard := newGuard(t)
	assert.NoError(t, ValidateAllowListed(guard, "", []string{"printenv"}))
	assert.NoError(t, ValidateAllowListed(guard, "", []string{"printenv", "HOME"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"printenv", "invalid key"}))
	assert.Error(t, ValidateAllowListed(guard, "", []string{"printenv", "A", "B"}))
}
