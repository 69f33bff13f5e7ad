package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
	"github.com/bobmcallan/toolgate/internal/tooldef"
)

const (
	// maxResponseSize caps remote response bodies.
	maxResponseSize = 50 << 20
	// DefaultProxyTimeout applies when a definition sets no timeout.
	DefaultProxyTimeout = 30 * time.Second
)

// ProxyExecutor forwards calls to a remote MCP server over HTTP JSON-RPC.
// One instance is shared by every tool discovered from the same server.
type ProxyExecutor struct {
	name       string
	serverURL  string
	headers    http.Header
	forward    bool
	timeout    time.Duration
	httpClient *http.Client
	logger     *common.Logger
}

// NewProxyExecutor builds a proxy for an mcp_server definition. Auth headers
// are fixed here: an auth token (bearer by default, or basic) takes precedence
// over username and password.
func NewProxyExecutor(def tooldef.ToolDefinition, client *http.Client, logger *common.Logger) (*ProxyExecutor, error) {
	if def.ServerURL == "" {
		return nil, apperrors.Newf(apperrors.CodeConfig, "tool %q has no server_url", def.Name)
	}
	if client == nil {
		client = &http.Client{}
	}

	headers := make(http.Header)
	for k, v := range def.Headers {
		headers.Set(k, v)
	}
	switch {
	case def.AuthToken != "" && strings.EqualFold(def.AuthType, tooldef.AuthBasic):
		headers.Set("Authorization", "Basic "+def.AuthToken)
	case def.AuthToken != "":
		headers.Set("Authorization", "Bearer "+def.AuthToken)
	case def.Username != "" || def.Password != "":
		creds := base64.StdEncoding.EncodeToString([]byte(def.Username + ":" + def.Password))
		headers.Set("Authorization", "Basic "+creds)
	}

	return &ProxyExecutor{
		name:       def.Name,
		serverURL:  def.ServerURL,
		headers:    headers,
		forward:    def.ForwardArguments,
		timeout:    def.Timeout(DefaultProxyTimeout),
		httpClient: client,
		logger:     logger,
	}, nil
}

// ValidateArguments is a no-op: the remote server owns its input validation.
func (p *ProxyExecutor) ValidateArguments(map[string]any) error {
	return nil
}

// Execute calls the remote without a bound tool name.
func (p *ProxyExecutor) Execute(ctx context.Context, args map[string]any) Result {
	return p.CallTool(ctx, args, "")
}

// CallTool invokes the remote. With toolName set it issues tools/call. Without
// one, a method argument is forwarded verbatim with its params; otherwise
// forward_arguments posts args as the body, and as a last resort the proxy's
// own name is called through tools/call.
func (p *ProxyExecutor) CallTool(ctx context.Context, args map[string]any, toolName string) Result {
	if args == nil {
		args = map[string]any{}
	}

	var payload any
	switch method, _ := args["method"].(string); {
	case toolName != "":
		payload = newRPCRequest(uuid.NewString(), string(mcp.MethodToolsCall), toolsCallParams{Name: toolName, Arguments: args})
	case method != "":
		payload = newRPCRequest(uuid.NewString(), method, args["params"])
	case p.forward:
		payload = args
	default:
		payload = newRPCRequest(uuid.NewString(), string(mcp.MethodToolsCall), toolsCallParams{Name: p.name, Arguments: args})
	}

	body, err := p.post(ctx, payload)
	if err != nil {
		return ErrorResult(err)
	}
	return normalizeResponse(body)
}

// FetchRemoteTools lists the remote server's tools. Transport failures are
// returned; a malformed response is logged and yields no tools.
func (p *ProxyExecutor) FetchRemoteTools(ctx context.Context) ([]RemoteTool, error) {
	body, err := p.post(ctx, newRPCRequest(uuid.NewString(), string(mcp.MethodToolsList), map[string]any{}))
	if err != nil {
		return nil, err
	}
	tools, ok := parseToolList(body)
	if !ok {
		common.LoggerFrom(ctx, p.logger).Warn().
			Str("server", p.serverURL).
			Int("bytes", len(body)).
			Msg("unrecognized tools/list response")
		return nil, nil
	}
	return tools, nil
}

// post sends payload as JSON and returns the response body. Deadline
// expiry maps to request_timeout; everything else, including non-2xx
// status, maps to transport.
func (p *ProxyExecutor) post(ctx context.Context, payload any) ([]byte, error) {
	logger := common.LoggerFrom(ctx, p.logger)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransport, "failed to marshal request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL, bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransport, "invalid server_url", err)
	}
	for k, vals := range p.headers {
		for _, v := range vals {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cc, ok := common.GetCallContext(ctx); ok && cc.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", cc.CorrelationID)
	}

	logger.Debug().Str("server", p.serverURL).Int("bytes", len(data)).Msg("proxy request")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn().Str("server", p.serverURL).Int64("duration_ms", duration.Milliseconds()).Msg("proxy request timed out")
			return nil, apperrors.Newf(apperrors.CodeRequestTimeout,
				"request to %s timed out after %s", p.serverURL, p.timeout)
		}
		logger.Error().Str("server", p.serverURL).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("proxy request failed")
		return nil, apperrors.Wrap(apperrors.CodeTransport, "server request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Newf(apperrors.CodeRequestTimeout,
				"request to %s timed out after %s", p.serverURL, p.timeout)
		}
		return nil, apperrors.Wrap(apperrors.CodeTransport, "failed to read response", err)
	}

	logger.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("proxy response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.New(apperrors.CodeTransport, statusMessage(resp.StatusCode, body))
	}
	return body, nil
}

func statusMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512] + "..."
	}
	if text == "" {
		return fmt.Sprintf("server returned %d", status)
	}
	return fmt.Sprintf("server returned %d: %s", status, text)
}
