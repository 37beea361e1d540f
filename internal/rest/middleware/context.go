package middleware

import (
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestContextMiddleware seeds the request context with the identifiers the
// rest of the stack reads: request id, tenant and workspace scope.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader(types.HeaderRequestID)
		if requestID == "" {
			requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
		}
		ctx = types.SetRequestID(ctx, requestID)

		if tenantID := c.GetHeader(types.HeaderTenantID); tenantID != "" {
			ctx = types.SetTenantID(ctx, tenantID)
		}
		if workspaceID := c.GetHeader(types.HeaderWorkspaceID); workspaceID != "" {
			ctx = types.SetWorkspaceID(ctx, workspaceID)
		}

		c.Header(types.HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// WorkspaceRequiredMiddleware rejects requests that carry no workspace scope.
// Every session and payout route is workspace scoped.
func WorkspaceRequiredMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if types.GetWorkspaceID(c.Request.Context()) == "" {
			c.AbortWithStatusJSON(400, gin.H{
				"success": false,
				"error": gin.H{
					"message": "workspace header is required",
				},
			})
			return
		}
		c.Next()
	}
}
