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

// Package mcp provides the client for external MCP tool servers, used by
// the market-data subagent. Stdio servers are driven through the mcp-go
// library; HTTP servers through plain JSON-RPC over the retrying httpclient.
//
// The connection is lazy: it is established on first use, not at
// construction.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/httpclient"
)

const protocolVersion = "2024-11-05"

// ToolInfo describes one tool exposed by a server.
type ToolInfo struct {
	Name        string
	Description string
}

// Client talks to one MCP server.
type Client struct {
	cfg config.MCPServerConfig
	log *slog.Logger

	mu         sync.Mutex
	stdio      *mcpclient.Client
	httpClient *httpclient.Client
	connected  bool
	tools      []ToolInfo

	// sessionID has its own lock: rpc reads and writes it while Connect
	// still holds mu during the connect handshake.
	sessMu    sync.Mutex
	sessionID string
}

// New creates a client for the given server configuration.
func New(cfg config.MCPServerConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, log: log}
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Connect establishes the server connection and discovers its tools.
// Calling Connect on a connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	var err error
	if c.cfg.Transport == "stdio" {
		err = c.connectStdio(ctx)
	} else {
		err = c.connectHTTP(ctx)
	}
	if err != nil {
		return err
	}

	c.connected = true
	c.log.Info("connected to MCP server",
		"name", c.cfg.Name,
		"transport", c.cfg.Transport,
		"tools", len(c.tools),
	)
	return nil
}

// Tools returns the discovered tool list, connecting first if needed.
func (c *Client) Tools(ctx context.Context) ([]ToolInfo, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolInfo, len(c.tools))
	copy(out, c.tools)
	return out, nil
}

// CallTool invokes a named tool and returns the concatenated text content.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if err := c.Connect(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	stdio := c.stdio
	c.mu.Unlock()

	if stdio != nil {
		return c.callStdio(ctx, stdio, name, args)
	}
	return c.callHTTP(ctx, name, args)
}

// Close shuts down the server connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.stdio != nil {
		err := c.stdio.Close()
		c.stdio = nil
		return err
	}
	return nil
}

func (c *Client) connectStdio(ctx context.Context) error {
	env := make([]string, 0, len(c.cfg.Env))
	for k, v := range c.cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	client, err := mcpclient.NewStdioMCPClient(c.cfg.Command, env, c.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ClientInfo = mcpproto.Implementation{
		Name:    "finsight",
		Version: "1.0",
	}
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	listResp, err := client.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to list MCP tools: %w", err)
	}

	tools := make([]ToolInfo, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description})
	}

	c.stdio = client
	c.tools = tools
	return nil
}

func (c *Client) callStdio(ctx context.Context, client *mcpclient.Client, name string, args map[string]any) (string, error) {
	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("MCP call %s failed: %w", name, err)
	}

	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcpproto.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	joined := strings.Join(texts, "\n")
	if resp.IsError {
		if joined == "" {
			joined = "unknown error"
		}
		return "", fmt.Errorf("MCP tool %s: %s", name, joined)
	}
	return joined, nil
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

func (c *Client) connectHTTP(ctx context.Context) error {
	c.httpClient = httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		httpclient.WithMaxRetries(3),
		httpclient.WithBaseDelay(2*time.Second),
		httpclient.WithLogger(c.log),
	)

	initResp, err := c.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      map[string]any{"name": "finsight", "version": "1.0"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize MCP session: %w", err)
	}
	if initResp.Error != nil {
		return fmt.Errorf("MCP initialize error %d: %s", initResp.Error.Code, initResp.Error.Message)
	}

	listResp, err := c.rpc(ctx, "tools/list", map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to list MCP tools: %w", err)
	}
	if listResp.Error != nil {
		return fmt.Errorf("MCP tools/list error %d: %s", listResp.Error.Code, listResp.Error.Message)
	}

	var parsed struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(listResp.Result, &parsed); err != nil {
		return fmt.Errorf("failed to decode tool list: %w", err)
	}
	tools := make([]ToolInfo, 0, len(parsed.Tools))
	for _, t := range parsed.Tools {
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description})
	}
	c.tools = tools
	return nil
}

func (c *Client) callHTTP(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, err := c.rpc(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", fmt.Errorf("MCP call %s failed: %w", name, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("MCP tool %s: %s", name, resp.Error.Message)
	}

	var parsed struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp.Result, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode tool result: %w", err)
	}

	var texts []string
	for _, content := range parsed.Content {
		if content.Type == "text" {
			texts = append(texts, content.Text)
		}
	}
	joined := strings.Join(texts, "\n")
	if parsed.IsError {
		if joined == "" {
			joined = "unknown error"
		}
		return "", fmt.Errorf("MCP tool %s: %s", name, joined)
	}
	return joined, nil
}

func (c *Client) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.sessMu.Lock()
	if c.sessionID != "" {
		req.Header.Set("mcp-session-id", c.sessionID)
	}
	c.sessMu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("mcp-session-id"); sid != "" {
		c.sessMu.Lock()
		c.sessionID = sid
		c.sessMu.Unlock()
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out jsonRPCResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}
