package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/toolgate/internal/tooldef"
)

// rpcCapture records the last request a mock server received.
type rpcCapture struct {
	header http.Header
	body   map[string]any
	raw    string
}

func mockServer(t *testing.T, capture *rpcCapture, status int, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		if capture != nil {
			capture.header = r.Header.Clone()
			capture.raw = string(data)
			capture.body = nil
			_ = json.Unmarshal(data, &capture.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProxy(t *testing.T, def tooldef.ToolDefinition) *ProxyExecutor {
	t.Helper()
	if def.Name == "" {
		def.Name = "remote"
	}
	p, err := NewProxyExecutor(def, nil, testLogger())
	if err != nil {
		t.Fatalf("NewProxyExecutor: %v", err)
	}
	return p
}

func TestNewProxyExecutor_RequiresURL(t *testing.T) {
	if _, err := NewProxyExecutor(tooldef.ToolDefinition{Name: "x"}, nil, testLogger()); err == nil {
		t.Error("expected error for missing server_url")
	}
}

func TestProxy_AuthHeaders(t *testing.T) {
	basic := base64.StdEncoding.EncodeToString([]byte("alice:secret"))
	tests := []struct {
		name string
		def  tooldef.ToolDefinition
		want string
	}{
		{"bearer default", tooldef.ToolDefinition{AuthToken: "tok"}, "Bearer tok"},
		{"explicit bearer", tooldef.ToolDefinition{AuthToken: "tok", AuthType: "bearer"}, "Bearer tok"},
		{"basic token", tooldef.ToolDefinition{AuthToken: "dXNlcjpwdw==", AuthType: "basic"}, "Basic dXNlcjpwdw=="},
		{"username password", tooldef.ToolDefinition{Username: "alice", Password: "secret"}, "Basic " + basic},
		{"token wins", tooldef.ToolDefinition{AuthToken: "tok", Username: "alice", Password: "secret"}, "Bearer tok"},
		{"none", tooldef.ToolDefinition{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capture rpcCapture
			srv := mockServer(t, &capture, http.StatusOK, `{"result":"ok"}`)
			tt.def.ServerURL = srv.URL
			p := newProxy(t, tt.def)

			p.CallTool(context.Background(), map[string]any{}, "ping")
			if got := capture.header.Get("Authorization"); got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProxy_CustomHeaders(t *testing.T) {
	var capture rpcCapture
	srv := mockServer(t, &capture, http.StatusOK, `{"result":"ok"}`)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL, Headers: map[string]string{"X-Tenant": "acme"}})

	p.CallTool(context.Background(), nil, "ping")
	if got := capture.header.Get("X-Tenant"); got != "acme" {
		t.Errorf("X-Tenant = %q, want acme", got)
	}
	if got := capture.header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestProxy_BoundToolsCall(t *testing.T) {
	var capture rpcCapture
	srv := mockServer(t, &capture, http.StatusOK, `{"jsonrpc":"2.0","id":"1","result":{"content":[{"type":"text","text":"pong"}]}}`)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})
	bound := NewBoundExecutor(p, "ping")

	if err := bound.ValidateArguments(map[string]any{"anything": true}); err != nil {
		t.Errorf("ValidateArguments: %v", err)
	}
	res := bound.Execute(context.Background(), map[string]any{"host": "example.com"})
	if res.IsError || res.Content != "pong" {
		t.Errorf("res = %+v, want pong", res)
	}

	if capture.body["jsonrpc"] != "2.0" || capture.body["method"] != "tools/call" {
		t.Errorf("request = %v", capture.body)
	}
	if id, _ := capture.body["id"].(string); id == "" {
		t.Error("request id should be set")
	}
	params, _ := capture.body["params"].(map[string]any)
	if params["name"] != "ping" {
		t.Errorf("params.name = %v, want ping", params["name"])
	}
	args, _ := params["arguments"].(map[string]any)
	if args["host"] != "example.com" {
		t.Errorf("params.arguments = %v", params["arguments"])
	}
}

func TestProxy_ForwardsMethodVerbatim(t *testing.T) {
	var capture rpcCapture
	srv := mockServer(t, &capture, http.StatusOK, `{"result":{"resources":[]}}`)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})

	p.Execute(context.Background(), map[string]any{"method": "resources/list", "params": map[string]any{"cursor": "c1"}})
	if capture.body["method"] != "resources/list" {
		t.Errorf("method = %v", capture.body["method"])
	}
	params, _ := capture.body["params"].(map[string]any)
	if params["cursor"] != "c1" {
		t.Errorf("params = %v", capture.body["params"])
	}
}

func TestProxy_ForwardArgumentsPostsBodyVerbatim(t *testing.T) {
	var capture rpcCapture
	srv := mockServer(t, &capture, http.StatusOK, `"done"`)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL, ForwardArguments: true})

	res := p.Execute(context.Background(), map[string]any{"query": "status"})
	if res.Content != "done" {
		t.Errorf("Content = %q, want done", res.Content)
	}
	if capture.raw != `{"query":"status"}` {
		t.Errorf("body = %s, want args verbatim", capture.raw)
	}
}

func TestProxy_UnboundDefaultsToOwnName(t *testing.T) {
	var capture rpcCapture
	srv := mockServer(t, &capture, http.StatusOK, `{"result":"ok"}`)
	p := newProxy(t, tooldef.ToolDefinition{Name: "weather", ServerURL: srv.URL})

	p.Execute(context.Background(), map[string]any{"city": "Perth"})
	params, _ := capture.body["params"].(map[string]any)
	if capture.body["method"] != "tools/call" || params["name"] != "weather" {
		t.Errorf("request = %v", capture.body)
	}
}

func TestProxy_ResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Result
	}{
		{"bare string", `"hello"`, Result{Content: "hello"}},
		{"bare number", `42`, Result{Content: "42"}},
		{"non json text", `plain text`, Result{Content: "plain text"}},
		{"result string", `{"result":"ok"}`, Result{Content: "ok"}},
		{"result content", `{"result":{"content":[{"type":"text","text":"inner"}]}}`, Result{Content: "inner"}},
		{"result content error", `{"result":{"content":[{"type":"text","text":"bad input"}],"isError":true}}`, Result{Content: "bad input", IsError: true}},
		{"content array", `{"content":[{"type":"text","text":"first"},{"type":"text","text":"second"}]}`, Result{Content: "first"}},
		{"error object", `{"error":{"code":-32601,"message":"Method not found"}}`, Result{Content: "Error: Method not found", IsError: true}},
		{"error string", `{"error":"nope"}`, Result{Content: "Error: nope", IsError: true}},
		{"unknown shape", `{"foo":"bar"}`, Result{Content: `{"foo":"bar"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := mockServer(t, nil, http.StatusOK, tt.response)
			p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})
			got := p.CallTool(context.Background(), nil, "x")
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProxy_Non2xxIsTransportError(t *testing.T) {
	srv := mockServer(t, nil, http.StatusInternalServerError, `internal failure`)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})

	res := p.CallTool(context.Background(), nil, "x")
	if !res.IsError {
		t.Fatal("expected error envelope")
	}
	if !strings.Contains(res.Content, "server returned 500") {
		t.Errorf("Content = %q", res.Content)
	}
	if strings.Contains(res.Content, "timed out") {
		t.Errorf("transport error reported as timeout: %q", res.Content)
	}
}

func TestProxy_TimeoutIsDistinct(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL, TimeoutSeconds: 1})
	p.timeout = 100 * time.Millisecond

	start := time.Now()
	res := p.CallTool(context.Background(), nil, "slow")
	if !res.IsError || !strings.Contains(res.Content, "timed out") {
		t.Errorf("res = %+v, want timeout envelope", res)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestProxy_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := newProxy(t, tooldef.ToolDefinition{ServerURL: url})
	res := p.CallTool(context.Background(), nil, "x")
	if !res.IsError || !strings.Contains(res.Content, "server request failed") {
		t.Errorf("res = %+v, want transport error", res)
	}
}

func TestFetchRemoteTools_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"object with tools", `{"tools":[{"name":"ping"},{"name":"echo","description":"Echo"}]}`, []string{"ping", "echo"}},
		{"result envelope", `{"jsonrpc":"2.0","id":"1","result":{"tools":[{"name":"ping"}]}}`, []string{"ping"}},
		{"bare array", `[{"name":"a"},{"name":"b"}]`, []string{"a", "b"}},
		{"result array", `{"result":[{"name":"a"}]}`, []string{"a"}},
		{"malformed", `{"unexpected":true}`, nil},
		{"not json", `<html>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capture rpcCapture
			srv := mockServer(t, &capture, http.StatusOK, tt.response)
			p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})

			tools, err := p.FetchRemoteTools(context.Background())
			if err != nil {
				t.Fatalf("FetchRemoteTools: %v", err)
			}
			if capture.body["method"] != "tools/list" {
				t.Errorf("method = %v, want tools/list", capture.body["method"])
			}
			if len(tools) != len(tt.want) {
				t.Fatalf("got %d tools, want %d", len(tools), len(tt.want))
			}
			for i, name := range tt.want {
				if tools[i].Name != name {
					t.Errorf("tools[%d] = %q, want %q", i, tools[i].Name, name)
				}
			}
		})
	}
}

func TestFetchRemoteTools_CarriesSchema(t *testing.T) {
	srv := mockServer(t, nil, http.StatusOK, `{"tools":[{"name":"ping","description":"Ping a host","inputSchema":{"type":"object","required":["host"]}}]}`)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})

	tools, err := p.FetchRemoteTools(context.Background())
	if err != nil || len(tools) != 1 {
		t.Fatalf("FetchRemoteTools = %v, %v", tools, err)
	}
	if tools[0].Description != "Ping a host" || tools[0].InputSchema["type"] != "object" {
		t.Errorf("tool = %+v", tools[0])
	}
}

func TestFetchRemoteTools_TransportError(t *testing.T) {
	srv := mockServer(t, nil, http.StatusBadGateway, ``)
	p := newProxy(t, tooldef.ToolDefinition{ServerURL: srv.URL})
	if _, err := p.FetchRemoteTools(context.Background()); err == nil {
		t.Error("expected error for 502")
	}
}
