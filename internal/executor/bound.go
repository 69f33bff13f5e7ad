package executor

import "context"

// BoundExecutor dispatches to one named tool on a shared ProxyExecutor.
type BoundExecutor struct {
	proxy      *ProxyExecutor
	remoteName string
}

// NewBoundExecutor binds remoteName to proxy.
func NewBoundExecutor(proxy *ProxyExecutor, remoteName string) *BoundExecutor {
	return &BoundExecutor{proxy: proxy, remoteName: remoteName}
}

// ValidateArguments is a no-op; the remote validates its own input.
func (b *BoundExecutor) ValidateArguments(map[string]any) error {
	return nil
}

// Execute calls the bound remote tool.
func (b *BoundExecutor) Execute(ctx context.Context, args map[string]any) Result {
	return b.proxy.CallTool(ctx, args, b.remoteName)
}
