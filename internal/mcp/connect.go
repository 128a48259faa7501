package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vtcode-go/vtcode/internal/config"

	"github.com/cenkalti/backoff/v5"
	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// createClient builds the transport-appropriate MCP client. stdio
// spawns and owns a subprocess; sse and streamable-http dial a URL.
func createClient(srv config.MCPServerConfig) (*mcpclient.Client, error) {
	switch srv.Transport {
	case "stdio":
		env := make([]string, 0, len(srv.Env))
		for k, v := range srv.Env {
			env = append(env, k+"="+v)
		}
		return mcpclient.NewStdioMCPClient(srv.Command, env, srv.Args...)
	case "sse":
		return mcpclient.NewSSEMCPClient(srv.URL)
	case "streamable-http":
		return mcpclient.NewStreamableHttpClient(srv.URL)
	default:
		return nil, fmt.Errorf("unsupported mcp transport %q", srv.Transport)
	}
}

// connectServer dials srv, performs the initialize handshake, lists its
// tools, and registers each one as a mcp_-prefixed tools.Tool.
func (c *Catalog) connectServer(ctx context.Context, srv config.MCPServerConfig) error {
	client, err := createClient(srv)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if srv.Transport != "stdio" {
		if err := client.Start(ctx); err != nil {
			_ = client.Close()
			return fmt.Errorf("start transport: %w", err)
		}
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "vtcode", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	listed, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	conn := &connection{name: srv.Name, transport: srv.Transport, client: client, connected: true}

	prefix := srv.ToolPrefix
	if prefix == "" {
		prefix = srv.Name
	}
	var registered []string
	for _, mt := range listed.Tools {
		bt := newBridgeTool(srv.Name, prefix, mt, client, conn)
		if _, exists := c.registry.Get(bt.Name()); exists {
			c.notify(fmt.Sprintf("mcp: %s: tool %q collides with an existing tool, skipped", srv.Name, bt.Name()))
			continue
		}
		if err := c.registry.Register(bt); err != nil {
			c.notify(fmt.Sprintf("mcp: %s: register %q failed: %v", srv.Name, bt.Name(), err))
			continue
		}
		registered = append(registered, bt.Name())
	}
	conn.toolNames = registered

	hctx, hcancel := context.WithCancel(context.Background())
	conn.cancel = hcancel
	go c.healthLoop(hctx, conn)

	c.mu.Lock()
	c.conns[srv.Name] = conn
	c.mu.Unlock()

	c.notify(fmt.Sprintf("mcp: %s: connected via %s, %d tool(s)", srv.Name, srv.Transport, len(registered)))
	return nil
}

// healthLoop pings the server on an interval, attempting a backed-off
// reconnect sequence when a ping fails for a reason other than the
// server simply not implementing "ping".
func (c *Catalog) healthLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.client.Ping(ctx)
			if err == nil {
				conn.mu.Lock()
				conn.connected, conn.lastErr = true, ""
				conn.mu.Unlock()
				continue
			}
			if strings.Contains(strings.ToLower(err.Error()), "method not found") {
				// Server doesn't implement ping; treat as healthy.
				conn.mu.Lock()
				conn.connected, conn.lastErr = true, ""
				conn.mu.Unlock()
				continue
			}
			conn.mu.Lock()
			conn.connected, conn.lastErr = false, err.Error()
			conn.mu.Unlock()
			c.notify(fmt.Sprintf("mcp: %s: health check failed: %v", conn.name, err))
			c.reconnect(ctx, conn)
		}
	}
}

// reconnect retries a ping with exponential backoff; the transport
// layer underneath mcpclient.Client may itself have already recovered
// by the time the ping succeeds.
func (c *Catalog) reconnect(ctx context.Context, conn *connection) {
	op := func() (struct{}, error) {
		if err := conn.client.Ping(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithMaxTries(6),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
	if err != nil {
		c.notify(fmt.Sprintf("mcp: %s: reconnect exhausted: %v", conn.name, err))
		return
	}
	conn.mu.Lock()
	conn.connected, conn.lastErr = true, ""
	conn.mu.Unlock()
	c.notify(fmt.Sprintf("mcp: %s: reconnected", conn.name))
}
