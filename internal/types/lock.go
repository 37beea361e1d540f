package types

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock.
type LockScope string

const (
	// LockScopePayoutStatement serializes generate/replace on one statement period.
	LockScopePayoutStatement LockScope = "payout_statement"
	// LockScopeSession serializes settlement reconciliation per session.
	LockScopeSession LockScope = "session"
)

const defaultLockTimeout = 30 * time.Second

// LockRequest asks the postgres client for an advisory xact lock.
// A nil Timeout means the default; zero or negative means fail-fast.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return defaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey builds a deterministic lock key from a scope and parameters.
// Tenant and workspace IDs are taken from the context so locks never collide
// across tenants. Postgres hashes the string internally via hashtext().
func GenerateLockKey(ctx context.Context, scope LockScope, params map[string]interface{}) string {
	merged := make(map[string]interface{})

	if tenantID := GetTenantID(ctx); tenantID != "" {
		merged["tenant_id"] = tenantID
	}
	if workspaceID := GetWorkspaceID(ctx); workspaceID != "" {
		merged["workspace_id"] = workspaceID
	}
	for k, v := range params {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, merged[k]))
	}
	return b.String()
}
