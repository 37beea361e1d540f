package types

import "context"

type ContextKey string

const (
	CtxRequestID   ContextKey = "ctx_request_id"
	CtxTenantID    ContextKey = "ctx_tenant_id"
	CtxWorkspaceID ContextKey = "ctx_workspace_id"
	CtxUserID      ContextKey = "ctx_user_id"
)

// DefaultTenantID and DefaultWorkspaceID are used by scripts and tests that
// run outside a request scope.
const (
	DefaultTenantID    = "00000000-0000-0000-0000-000000000000"
	DefaultWorkspaceID = "ws_00000000000000000000000000"
)

func GetRequestID(ctx context.Context) string {
	return getString(ctx, CtxRequestID)
}

func GetTenantID(ctx context.Context) string {
	return getString(ctx, CtxTenantID)
}

// GetWorkspaceID returns the Sub-CPO workspace the request is scoped to.
// All session and payout reads/writes are workspace scoped.
func GetWorkspaceID(ctx context.Context) string {
	return getString(ctx, CtxWorkspaceID)
}

func GetUserID(ctx context.Context) string {
	return getString(ctx, CtxUserID)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

func SetWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, CtxWorkspaceID, workspaceID)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

func getString(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
