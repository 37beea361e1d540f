package payout

import (
	"context"
	"time"

	"github.com/voltbridge/voltbridge/internal/types"
)

// Repository defines the persistence contract for payout statements.
type Repository interface {
	// Create inserts a new statement together with its line items.
	Create(ctx context.Context, st *Statement) (*Statement, error)

	// Get fetches a statement by id, line items included.
	Get(ctx context.Context, id string) (*Statement, error)

	// GetByPeriod fetches the statement for the exact
	// (workspace, period_start, period_end) key, if one exists.
	GetByPeriod(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time) (*Statement, error)

	// Update persists the statement's mutable fields (status, totals,
	// issue/payment metadata). Line items are managed through
	// ReplaceLineItems.
	Update(ctx context.Context, st *Statement) (*Statement, error)

	// ReplaceLineItems deletes the statement's existing line items and writes
	// the new set in one atomic unit.
	ReplaceLineItems(ctx context.Context, statementID string, items []*LineItem) error

	// List returns statements matching the filter.
	List(ctx context.Context, filter *types.PayoutStatementFilter) ([]*Statement, error)

	// Count returns the number of statements matching the filter.
	Count(ctx context.Context, filter *types.PayoutStatementFilter) (int, error)
}
