package session

import (
	"context"
	"time"

	"github.com/voltbridge/voltbridge/internal/types"
)

// Repository defines the persistence contract for charging sessions.
type Repository interface {
	// Create inserts a new session.
	Create(ctx context.Context, s *ChargingSession) (*ChargingSession, error)

	// CreateIdempotent inserts a session keyed by its hubject session id.
	// On a uniqueness conflict it fetches and returns the already-stored
	// session instead; created reports which path was taken. The conflict
	// detection is a database uniqueness constraint, not an application-level
	// existence check, so two concurrent creates converge to one row.
	CreateIdempotent(ctx context.Context, s *ChargingSession) (stored *ChargingSession, created bool, err error)

	// Get fetches a session by id.
	Get(ctx context.Context, id string) (*ChargingSession, error)

	// GetByHubjectSessionID fetches a session by its roaming counterpart id.
	GetByHubjectSessionID(ctx context.Context, hubjectSessionID string) (*ChargingSession, error)

	// Update persists all mutable fields of the session.
	Update(ctx context.Context, s *ChargingSession) (*ChargingSession, error)

	// List returns sessions matching the filter.
	List(ctx context.Context, filter *types.ChargingSessionFilter) ([]*ChargingSession, error)

	// Count returns the number of sessions matching the filter.
	Count(ctx context.Context, filter *types.ChargingSessionFilter) (int, error)

	// ListBilledInPeriod returns completed, billed sessions of a workspace
	// whose billed_at falls in [periodStart, periodEnd). This is a coarse
	// prefilter; payout eligibility is decided by the eligibility predicate.
	ListBilledInPeriod(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time) ([]*ChargingSession, error)

	// ClaimForStatement links the given sessions to a payout statement. The
	// write is conditioned on each session's current payout_statement_id
	// being null or already equal to statementID; it fails if any session is
	// claimed by a different statement.
	ClaimForStatement(ctx context.Context, sessionIDs []string, statementID string) error

	// ReleaseClaims unlinks every session claimed by the statement, returning
	// them to the unclaimed pool.
	ReleaseClaims(ctx context.Context, statementID string) error
}
