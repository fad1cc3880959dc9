// Copyright 2025 FinSight AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/finsight/pkg/config"
)

// Manager holds the clients for all configured MCP servers and routes tool
// calls by tool name.
type Manager struct {
	log     *slog.Logger
	clients []*Client

	mu      sync.RWMutex
	toolMap map[string]*Client // tool name -> owning client
}

// NewManager builds clients for each configured server without connecting.
func NewManager(cfgs []config.MCPServerConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{log: log, toolMap: make(map[string]*Client)}
	for _, cfg := range cfgs {
		m.clients = append(m.clients, New(cfg, log))
	}
	return m
}

// Discover connects every server concurrently and builds the tool routing
// table. A server that fails to connect is logged and left out; it does not
// fail the others.
func (m *Manager) Discover(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	type discovery struct {
		client *Client
		tools  []ToolInfo
	}
	results := make(chan discovery, len(m.clients))

	for _, c := range m.clients {
		g.Go(func() error {
			tools, err := c.Tools(gctx)
			if err != nil {
				m.log.Warn("MCP server unavailable", "name", c.Name(), "error", err)
				return nil
			}
			results <- discovery{client: c, tools: tools}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	close(results)

	m.mu.Lock()
	defer m.mu.Unlock()
	for d := range results {
		for _, t := range d.tools {
			m.toolMap[t.Name] = d.client
		}
	}
	return nil
}

// CallTool routes a tool call to the server exposing it.
func (m *Manager) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	m.mu.RLock()
	client, ok := m.toolMap[name]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no MCP server exposes tool %q", name)
	}
	return client.CallTool(ctx, name, args)
}

// HasTool reports whether a tool is routable.
func (m *Manager) HasTool(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.toolMap[name]
	return ok
}

// Close shuts down all server connections.
func (m *Manager) Close() {
	for _, c := range m.clients {
		if err := c.Close(); err != nil {
			m.log.Debug("error closing MCP client", "name", c.Name(), "error", err)
		}
	}
}
