package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"
)

// InMemorySessionStore implements session.Repository.
type InMemorySessionStore struct {
	*InMemoryStore[*session.ChargingSession]

	// createMu makes CreateIdempotent atomic, standing in for the database
	// uniqueness constraint on hubject_session_id.
	createMu sync.Mutex
}

// NewInMemorySessionStore creates a new in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		InMemoryStore: NewInMemoryStore[*session.ChargingSession](),
	}
}

func (s *InMemorySessionStore) Create(ctx context.Context, cs *session.ChargingSession) (*session.ChargingSession, error) {
	if cs == nil {
		return nil, ierr.NewError("session cannot be nil").
			WithHint("Session cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, cs.ID, cs.Copy()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create session").
			WithReportableDetails(map[string]interface{}{
				"id": cs.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return cs.Copy(), nil
}

func (s *InMemorySessionStore) CreateIdempotent(ctx context.Context, cs *session.ChargingSession) (*session.ChargingSession, bool, error) {
	if cs == nil {
		return nil, false, ierr.NewError("session cannot be nil").
			WithHint("Session cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if cs.HubjectSessionID == nil || *cs.HubjectSessionID == "" {
		return nil, false, ierr.NewError("session has no hubject session id").
			WithHint("Idempotent create requires a roaming session id").
			Mark(ierr.ErrValidation)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.GetByHubjectSessionID(ctx, *cs.HubjectSessionID)
	if err == nil {
		return existing, false, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, false, err
	}

	stored, err := s.Create(ctx, cs)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

func (s *InMemorySessionStore) Get(ctx context.Context, id string) (*session.ChargingSession, error) {
	cs, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("session not found").
			WithHint("Session not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return cs.Copy(), nil
}

func (s *InMemorySessionStore) GetByHubjectSessionID(ctx context.Context, hubjectSessionID string) (*session.ChargingSession, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, cs *session.ChargingSession) bool {
		return cs.HubjectSessionID != nil && *cs.HubjectSessionID == hubjectSessionID
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewError("session not found").
			WithHint("No session with this roaming session id").
			WithReportableDetails(map[string]interface{}{
				"hubject_session_id": hubjectSessionID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return matches[0].Copy(), nil
}

func (s *InMemorySessionStore) Update(ctx context.Context, cs *session.ChargingSession) (*session.ChargingSession, error) {
	if cs == nil {
		return nil, ierr.NewError("session cannot be nil").
			WithHint("Session cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Update(ctx, cs.ID, cs.Copy()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to update session").
			WithReportableDetails(map[string]interface{}{
				"id": cs.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return cs.Copy(), nil
}

func (s *InMemorySessionStore) List(ctx context.Context, filter *types.ChargingSessionFilter) ([]*session.ChargingSession, error) {
	if filter == nil {
		filter = types.NewChargingSessionFilter()
	}
	matches := s.InMemoryStore.List(ctx, sessionFilterFn(filter), sessionSortFn)
	matches = lo.Map(matches, func(cs *session.ChargingSession, _ int) *session.ChargingSession {
		return cs.Copy()
	})
	return paginate(matches, filter.QueryFilter), nil
}

func (s *InMemorySessionStore) Count(ctx context.Context, filter *types.ChargingSessionFilter) (int, error) {
	if filter == nil {
		filter = types.NewChargingSessionFilter()
	}
	return len(s.InMemoryStore.List(ctx, sessionFilterFn(filter), nil)), nil
}

func (s *InMemorySessionStore) ListBilledInPeriod(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time) ([]*session.ChargingSession, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, cs *session.ChargingSession) bool {
		if cs.WorkspaceID != workspaceID {
			return false
		}
		if cs.SessionStatus != types.SessionStatusCompleted || cs.BillingStatus != types.BillingStatusBilled {
			return false
		}
		if cs.BilledAt == nil {
			return false
		}
		return !cs.BilledAt.Before(periodStart) && cs.BilledAt.Before(periodEnd)
	}, sessionSortFn)
	return lo.Map(matches, func(cs *session.ChargingSession, _ int) *session.ChargingSession {
		return cs.Copy()
	}), nil
}

func (s *InMemorySessionStore) ClaimForStatement(ctx context.Context, sessionIDs []string, statementID string) error {
	for _, id := range sessionIDs {
		cs, err := s.InMemoryStore.Get(ctx, id)
		if err != nil {
			return ierr.NewError("session not found").
				WithHint("Session not found").
				WithReportableDetails(map[string]interface{}{
					"id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		// Mirrors the conditional UPDATE: the claim only lands when the
		// session is unclaimed or already linked to this statement.
		if cs.PayoutStatementID != nil && *cs.PayoutStatementID != statementID {
			return ierr.NewError("session is claimed by another statement").
				WithHint("Session is already included in a different payout statement").
				WithReportableDetails(map[string]interface{}{
					"session_id":   id,
					"statement_id": *cs.PayoutStatementID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		updated := cs.Copy()
		updated.PayoutStatementID = lo.ToPtr(statementID)
		if err := s.InMemoryStore.Update(ctx, id, updated); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to claim session").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (s *InMemorySessionStore) ReleaseClaims(ctx context.Context, statementID string) error {
	claimed := s.InMemoryStore.List(ctx, func(_ context.Context, cs *session.ChargingSession) bool {
		return cs.PayoutStatementID != nil && *cs.PayoutStatementID == statementID
	}, nil)
	for _, cs := range claimed {
		updated := cs.Copy()
		updated.PayoutStatementID = nil
		if err := s.InMemoryStore.Update(ctx, cs.ID, updated); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to release session claim").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func sessionFilterFn(filter *types.ChargingSessionFilter) func(ctx context.Context, cs *session.ChargingSession) bool {
	return func(_ context.Context, cs *session.ChargingSession) bool {
		if filter.WorkspaceID != "" && cs.WorkspaceID != filter.WorkspaceID {
			return false
		}
		if filter.SessionStatus != nil && cs.SessionStatus != *filter.SessionStatus {
			return false
		}
		if filter.BillingStatus != nil && cs.BillingStatus != *filter.BillingStatus {
			return false
		}
		if filter.ClearingStatus != nil && cs.ClearingStatus != *filter.ClearingStatus {
			return false
		}
		if filter.RoamingType != nil && cs.RoamingType != *filter.RoamingType {
			return false
		}
		if filter.BilledAfter != nil && (cs.BilledAt == nil || cs.BilledAt.Before(*filter.BilledAfter)) {
			return false
		}
		if filter.BilledBefore != nil && (cs.BilledAt == nil || !cs.BilledAt.Before(*filter.BilledBefore)) {
			return false
		}
		if filter.PayoutStatement != nil && (cs.PayoutStatementID == nil || *cs.PayoutStatementID != *filter.PayoutStatement) {
			return false
		}
		return true
	}
}

func sessionSortFn(a, b *session.ChargingSession) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func paginate[T any](items []T, filter *types.QueryFilter) []T {
	if filter == nil || filter.IsUnlimited() {
		return items
	}
	offset := filter.GetOffset()
	if offset >= len(items) {
		return nil
	}
	end := offset + filter.GetLimit()
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
