package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vtcode-go/vtcode/internal/tools"
)

func TestCatalog_CloseOnNilIsNoop(t *testing.T) {
	var c *Catalog
	assert.NotPanics(t, func() { c.Close() })
}

func TestCatalog_ServerNamesEmptyByDefault(t *testing.T) {
	c := NewCatalog(tools.NewRegistry(), nil)
	assert.Empty(t, c.ServerNames())
}

func TestCatalog_NotifyDefaultsToNoop(t *testing.T) {
	c := NewCatalog(tools.NewRegistry(), nil)
	assert.NotPanics(t, func() { c.notify("hello") })
}
