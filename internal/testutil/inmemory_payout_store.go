package testutil

import (
	"context"

	"github.com/voltbridge/voltbridge/internal/domain/payout"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"

	"time"
)

// InMemoryPayoutStore implements payout.Repository.
type InMemoryPayoutStore struct {
	*InMemoryStore[*payout.Statement]
}

// NewInMemoryPayoutStore creates a new in-memory payout statement store.
func NewInMemoryPayoutStore() *InMemoryPayoutStore {
	return &InMemoryPayoutStore{
		InMemoryStore: NewInMemoryStore[*payout.Statement](),
	}
}

func (s *InMemoryPayoutStore) Create(ctx context.Context, st *payout.Statement) (*payout.Statement, error) {
	if st == nil {
		return nil, ierr.NewError("statement cannot be nil").
			WithHint("Statement cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if existing, err := s.GetByPeriod(ctx, st.WorkspaceID, st.PeriodStart, st.PeriodEnd); err == nil && existing != nil {
		return nil, ierr.NewError("statement already exists for this period").
			WithHint("A statement already covers this workspace and period").
			WithReportableDetails(map[string]interface{}{
				"statement_id": existing.ID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, st.ID, st.Copy()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create payout statement").
			WithReportableDetails(map[string]interface{}{
				"id": st.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return st.Copy(), nil
}

func (s *InMemoryPayoutStore) Get(ctx context.Context, id string) (*payout.Statement, error) {
	st, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("payout statement not found").
			WithHint("Payout statement not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return st.Copy(), nil
}

func (s *InMemoryPayoutStore) GetByPeriod(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time) (*payout.Statement, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, st *payout.Statement) bool {
		return st.WorkspaceID == workspaceID &&
			st.PeriodStart.Equal(periodStart) &&
			st.PeriodEnd.Equal(periodEnd) &&
			st.StatementStatus != types.PayoutStatementStatusCancelled
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewError("payout statement not found").
			WithHint("No statement covers this period").
			Mark(ierr.ErrNotFound)
	}
	return matches[0].Copy(), nil
}

func (s *InMemoryPayoutStore) Update(ctx context.Context, st *payout.Statement) (*payout.Statement, error) {
	if st == nil {
		return nil, ierr.NewError("statement cannot be nil").
			WithHint("Statement cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Update(ctx, st.ID, st.Copy()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to update payout statement").
			WithReportableDetails(map[string]interface{}{
				"id": st.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return st.Copy(), nil
}

func (s *InMemoryPayoutStore) ReplaceLineItems(ctx context.Context, statementID string, items []*payout.LineItem) error {
	st, err := s.InMemoryStore.Get(ctx, statementID)
	if err != nil {
		return ierr.NewError("payout statement not found").
			WithHint("Payout statement not found").
			WithReportableDetails(map[string]interface{}{
				"id": statementID,
			}).
			Mark(ierr.ErrNotFound)
	}
	updated := st.Copy()
	updated.LineItems = lo.Map(items, func(li *payout.LineItem, _ int) *payout.LineItem {
		item := *li
		return &item
	})
	if err := s.InMemoryStore.Update(ctx, statementID, updated); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to replace line items").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemoryPayoutStore) List(ctx context.Context, filter *types.PayoutStatementFilter) ([]*payout.Statement, error) {
	if filter == nil {
		filter = types.NewPayoutStatementFilter()
	}
	matches := s.InMemoryStore.List(ctx, payoutFilterFn(filter), payoutSortFn)
	matches = lo.Map(matches, func(st *payout.Statement, _ int) *payout.Statement {
		return st.Copy()
	})
	return paginate(matches, filter.QueryFilter), nil
}

func (s *InMemoryPayoutStore) Count(ctx context.Context, filter *types.PayoutStatementFilter) (int, error) {
	if filter == nil {
		filter = types.NewPayoutStatementFilter()
	}
	return len(s.InMemoryStore.List(ctx, payoutFilterFn(filter), nil)), nil
}

func payoutFilterFn(filter *types.PayoutStatementFilter) func(ctx context.Context, st *payout.Statement) bool {
	return func(_ context.Context, st *payout.Statement) bool {
		if filter.WorkspaceID != "" && st.WorkspaceID != filter.WorkspaceID {
			return false
		}
		if filter.StatementStatus != nil && st.StatementStatus != *filter.StatementStatus {
			return false
		}
		if filter.PeriodStart != nil && st.PeriodStart.Before(*filter.PeriodStart) {
			return false
		}
		if filter.PeriodEnd != nil && st.PeriodEnd.After(*filter.PeriodEnd) {
			return false
		}
		return true
	}
}

func payoutSortFn(a, b *payout.Statement) bool {
	return a.CreatedAt.After(b.CreatedAt)
}
