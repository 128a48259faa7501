// Package mcp implements the external tool catalog spec.md §6 calls
// "MCP-style external tools": a catalog-refresh channel that connects
// to Model Context Protocol servers, discovers their tools, and wraps
// each one as an mcp_-prefixed internal/tools.Tool so it dispatches
// through the same unified executor as every built-in tool.
//
// Grounded on vanducng-goclaw's internal/mcp Manager (connect/health-
// check/reconnect shape, one serverState per connection) and
// kadirpekel-hector's pkg/tool/mcptoolset (CallTool request/response
// parsing into a tool result). Reconnection backoff uses
// cenkalti/backoff/v5, already wired for provider retries in
// internal/provider/compat, instead of goclaw's hand-rolled doubling.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vtcode-go/vtcode/internal/config"
	"github.com/vtcode-go/vtcode/internal/tools"

	mcpclient "github.com/mark3labs/mcp-go/client"
)

const (
	healthCheckInterval = 30 * time.Second
	defaultToolTimeout  = 60 * time.Second
)

// connection tracks one live MCP server: its client, the tool names it
// contributed to the registry, and reconnect bookkeeping.
type connection struct {
	name      string
	transport string
	client    *mcpclient.Client
	cancel    context.CancelFunc

	mu        sync.Mutex
	connected bool
	toolNames []string
	lastErr   string
}

// Catalog owns every connected MCP server's registered tools. One
// Catalog is built per session, alongside the rest of
// newSessionComponents' wiring.
type Catalog struct {
	registry *tools.Registry
	notify   func(string)

	mu    sync.RWMutex
	conns map[string]*connection
}

// NewCatalog builds an empty catalog bound to registry. notify, if
// non-nil, receives one human-readable line per connect/disconnect/
// reconnect event — cmd wiring passes turn.Engine.Notify so these
// surface as transcript diagnostics (spec.md §6 "emits an MCP event to
// the panel").
func NewCatalog(registry *tools.Registry, notify func(string)) *Catalog {
	if notify == nil {
		notify = func(string) {}
	}
	return &Catalog{
		registry: registry,
		notify:   notify,
		conns:    make(map[string]*connection),
	}
}

// Connect brings up every configured server, skipping (and reporting)
// any that fail rather than aborting the whole catalog — one
// unreachable MCP server should not block a session from starting.
func (c *Catalog) Connect(ctx context.Context, servers []config.MCPServerConfig) {
	for _, srv := range servers {
		if err := c.connectServer(ctx, srv); err != nil {
			c.notify(fmt.Sprintf("mcp: %s: connect failed: %v", srv.Name, err))
		}
	}
}

// ServerNames returns the names of every currently connected server.
func (c *Catalog) ServerNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.conns))
	for name := range c.conns {
		names = append(names, name)
	}
	return names
}

// Close tears down every connection and unregisters its tools. Used on
// session shutdown. Safe to call on a nil *Catalog.
func (c *Catalog) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*connection)
	c.mu.Unlock()

	for name, conn := range conns {
		c.teardown(name, conn)
	}
}

func (c *Catalog) teardown(name string, conn *connection) {
	if conn.cancel != nil {
		conn.cancel()
	}
	if conn.client != nil {
		_ = conn.client.Close()
	}
	conn.mu.Lock()
	names := conn.toolNames
	conn.mu.Unlock()
	for _, toolName := range names {
		c.registry.Unregister(toolName)
	}
	c.notify(fmt.Sprintf("mcp: %s: disconnected", name))
}
