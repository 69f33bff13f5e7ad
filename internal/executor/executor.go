// Package executor turns tool definitions into dispatchable executors: local
// commands run through a backend, remote MCP servers reached over JSON-RPC,
// and discovered remote tools bound to a shared proxy.
package executor

import (
	"context"
	"fmt"
	"strings"
)

// Result is the uniform outcome envelope of every dispatch.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"isError"`
}

// Executor performs one tool's operation.
type Executor interface {
	// ValidateArguments checks args before Execute. It must not block on I/O.
	ValidateArguments(args map[string]any) error
	// Execute runs the tool. Failures are reported in the Result, never returned.
	Execute(ctx context.Context, args map[string]any) Result
}

// TextResult wraps successful output.
func TextResult(content string) Result {
	return Result{Content: content}
}

// ErrorResult wraps err as an error envelope.
func ErrorResult(err error) Result {
	return Result{Content: "Error: " + err.Error(), IsError: true}
}

// ErrorResultf builds an error envelope from a format string.
func ErrorResultf(format string, args ...any) Result {
	return Result{Content: "Error: " + fmt.Sprintf(format, args...), IsError: true}
}

// ValidationErrorResult wraps an argument validation failure.
func ValidationErrorResult(err error) Result {
	return Result{Content: "Validation error: " + err.Error(), IsError: true}
}

// mergeArgs overlays args on defaults into a new map.
func mergeArgs(defaults, args map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(args))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range args {
		merged[k] = v
	}
	return merged
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
