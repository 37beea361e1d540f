package types

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderTenantID      = "X-Tenant-ID"
	HeaderWorkspaceID   = "X-Workspace-ID"
	HeaderAuthorization = "Authorization"
)
