package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The unique index backing idempotent ingestion is partial
// (WHERE hubject_session_id IS NOT NULL). Postgres only accepts a partial
// unique index as the ON CONFLICT arbiter when the clause repeats the index
// predicate; without it the insert fails with SQLSTATE 42P10 at runtime.
func TestSessionInsertQueryConflictArbiter(t *testing.T) {
	query := sessionInsertQuery(true)
	assert.Contains(t, query,
		"ON CONFLICT (hubject_session_id) WHERE hubject_session_id IS NOT NULL DO NOTHING")
	assert.Contains(t, query, "RETURNING id")

	plain := sessionInsertQuery(false)
	assert.NotContains(t, plain, "ON CONFLICT")
	assert.NotContains(t, plain, "RETURNING")
}
