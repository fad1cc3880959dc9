package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/config"
)

// fakeToolServer speaks just enough JSON-RPC to satisfy the HTTP transport.
func fakeToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("mcp-session-id", "test-session")

		var result any
		switch req.Method {
		case "initialize":
			result = map[string]any{"protocolVersion": protocolVersion}
		case "tools/list":
			result = map[string]any{"tools": []map[string]any{
				{"name": "get_quotes", "description": "Fetch quotes"},
			}}
		case "tools/call":
			// Echo back the session id to prove it was carried.
			result = map[string]any{
				"content": []map[string]any{
					{"type": "text", "text": `{"quotes":[{"ticker":"SBER","price":280}]}`},
				},
			}
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		raw, err := json.Marshal(result)
		require.NoError(t, err)
		require.NoError(t, json.NewEncoder(w).Encode(jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  raw,
		}))
	}))
}

func TestClientHTTPTransport(t *testing.T) {
	srv := fakeToolServer(t)
	defer srv.Close()

	c := New(config.MCPServerConfig{
		Name:      "quotes",
		Transport: "http",
		URL:       srv.URL,
	}, nil)
	defer c.Close()

	ctx := context.Background()

	tools, err := c.Tools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_quotes", tools[0].Name)

	out, err := c.CallTool(ctx, "get_quotes", map[string]any{"tickers": []string{"SBER"}})
	require.NoError(t, err)
	assert.Contains(t, out, `"ticker":"SBER"`)
}

// The connect handshake issues rpc calls while the client lock is held;
// the session id from initialize must still reach the tools/list request.
func TestConnectPropagatesSessionID(t *testing.T) {
	var listSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")

		var result any
		switch req.Method {
		case "initialize":
			w.Header().Set("mcp-session-id", "sess-42")
			result = map[string]any{"protocolVersion": protocolVersion}
		case "tools/list":
			listSession = r.Header.Get("mcp-session-id")
			result = map[string]any{"tools": []map[string]any{{"name": "get_quotes"}}}
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		raw, err := json.Marshal(result)
		require.NoError(t, err)
		require.NoError(t, json.NewEncoder(w).Encode(jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  raw,
		}))
	}))
	defer srv.Close()

	c := New(config.MCPServerConfig{Name: "quotes", Transport: "http", URL: srv.URL}, nil)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, "sess-42", listSession)
}

func TestClientHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(config.MCPServerConfig{Name: "quotes", Transport: "http", URL: srv.URL}, nil)
	defer c.Close()

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestClientHTTPToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")

		if req.Method == "tools/call" {
			raw, _ := json.Marshal(map[string]any{
				"isError": true,
				"content": []map[string]any{{"type": "text", "text": "upstream exchange closed"}},
			})
			_ = json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: raw})
			return
		}

		var result any = map[string]any{}
		if req.Method == "tools/list" {
			result = map[string]any{"tools": []map[string]any{{"name": "get_quotes"}}}
		}
		raw, _ := json.Marshal(result)
		_ = json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: raw})
	}))
	defer srv.Close()

	c := New(config.MCPServerConfig{Name: "quotes", Transport: "http", URL: srv.URL}, nil)
	defer c.Close()

	_, err := c.CallTool(context.Background(), "get_quotes", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exchange closed")
}

func TestManagerRoutesByToolName(t *testing.T) {
	srv := fakeToolServer(t)
	defer srv.Close()

	m := NewManager([]config.MCPServerConfig{
		{Name: "quotes", Transport: "http", URL: srv.URL},
		// A dead server must not break discovery of the live one.
		{Name: "dead", Transport: "http", URL: "http://127.0.0.1:1"},
	}, nil)
	defer m.Close()

	require.NoError(t, m.Discover(context.Background()))

	assert.True(t, m.HasTool("get_quotes"))
	assert.False(t, m.HasTool("nonexistent"))

	out, err := m.CallTool(context.Background(), "get_quotes", map[string]any{"tickers": []string{"SBER"}})
	require.NoError(t, err)
	assert.Contains(t, out, "SBER")

	_, err = m.CallTool(context.Background(), "nonexistent", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no MCP server exposes")
}
