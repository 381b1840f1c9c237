package paneflow

import "context"

type clientIPContextKey struct{}
type workspaceIDContextKey struct{}
type connectWebviewIDContextKey struct{}
type userAgentContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine records
// it on emitted events for downstream correlation.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithWorkspaceID attaches a workspace identifier to ctx. Operations that
// also receive an explicit workspace id prefer the explicit one.
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceIDContextKey{}, workspaceID)
}

// WithConnectWebviewID attaches a connect webview identifier to ctx.
// Operations that also receive an explicit webview id prefer the explicit
// one.
func WithConnectWebviewID(ctx context.Context, connectWebviewID string) context.Context {
	return context.WithValue(ctx, connectWebviewIDContextKey{}, connectWebviewID)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func workspaceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	workspaceID, _ := ctx.Value(workspaceIDContextKey{}).(string)
	return workspaceID
}

func connectWebviewIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	connectWebviewID, _ := ctx.Value(connectWebviewIDContextKey{}).(string)
	return connectWebviewID
}
