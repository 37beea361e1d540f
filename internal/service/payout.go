package service

import (
	"context"
	"time"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	"github.com/voltbridge/voltbridge/internal/domain/payout"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/voltbridge/voltbridge/internal/webhook"
	"github.com/voltbridge/voltbridge/internal/webhook/payload"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// payoutPreviewCap bounds the number of line items returned by a dry run.
const payoutPreviewCap = 10

// PayoutService aggregates settled sessions into payable statements and
// drives the statement lifecycle.
type PayoutService interface {
	GeneratePayoutStatement(ctx context.Context, req *dto.GeneratePayoutStatementRequest) (*dto.GeneratePayoutStatementResponse, error)

	// RecalculatePayoutStatement resums totals strictly from the statement's
	// existing line items. It is a drift-correction operation, not a refresh:
	// sessions that became eligible after the last full generation are not
	// picked up.
	RecalculatePayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error)

	IssuePayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error)
	MarkPayoutPaid(ctx context.Context, id string, req *dto.MarkPayoutPaidRequest) (*dto.PayoutStatementResponse, error)
	CancelPayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error)

	GetPayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error)
	GetPayoutStatements(ctx context.Context, filter *types.PayoutStatementFilter) (*dto.ListPayoutStatementsResponse, error)
}

type payoutService struct {
	ServiceParams
}

func NewPayoutService(params ServiceParams) PayoutService {
	return &payoutService{ServiceParams: params}
}

func (svc *payoutService) GeneratePayoutStatement(ctx context.Context, req *dto.GeneratePayoutStatementRequest) (*dto.GeneratePayoutStatementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	workspaceID := types.GetWorkspaceID(ctx)
	if workspaceID == "" {
		return nil, ierr.NewError("workspace id is required").
			WithHint("Payout generation must be workspace scoped").
			Mark(ierr.ErrValidation)
	}

	existing, err := svc.PayoutRepo.GetByPeriod(ctx, workspaceID, req.PeriodStart, req.PeriodEnd)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if existing != nil && existing.StatementStatus != types.PayoutStatementStatusDraft &&
		req.Mode == types.PayoutGenerationModeCommit {
		return nil, ierr.NewError("statement for this period is already finalized").
			WithHint("A finalized period cannot be regenerated").
			WithReportableDetails(map[string]interface{}{
				"statement_id":     existing.ID,
				"statement_status": string(existing.StatementStatus),
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	regeneratedID := ""
	if existing != nil && existing.StatementStatus == types.PayoutStatementStatusDraft {
		regeneratedID = existing.ID
	}

	eligible, err := svc.collectEligible(ctx, workspaceID, req.PeriodStart, req.PeriodEnd, regeneratedID)
	if err != nil {
		return nil, err
	}

	totals, err := aggregateTotals(eligible)
	if err != nil {
		return nil, err
	}

	if req.Mode == types.PayoutGenerationModeDryRun {
		return svc.buildPreview(workspaceID, req, eligible, totals), nil
	}

	statement, err := svc.commitStatement(ctx, workspaceID, req, existing, eligible, totals)
	if err != nil {
		return nil, err
	}
	return &dto.GeneratePayoutStatementResponse{
		Mode:      types.PayoutGenerationModeCommit,
		Statement: statement,
	}, nil
}

// collectEligible prefilters billed sessions of the period through the
// repository and applies the eligibility predicate.
func (svc *payoutService) collectEligible(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time, statementID string) ([]*session.ChargingSession, error) {
	candidates, err := svc.SessionRepo.ListBilledInPeriod(ctx, workspaceID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	return lo.Filter(candidates, func(s *session.ChargingSession, _ int) bool {
		return payout.Eligible(s, periodStart, periodEnd, statementID)
	}), nil
}

type statementTotals struct {
	sessions  int
	energyKwh decimal.Decimal
	gross     decimal.Decimal
	msFee     decimal.Decimal
	earning   decimal.Decimal
	currency  string
}

// aggregateTotals sums session money and enforces the currency-consistency
// invariant: a statement never mixes currencies.
func aggregateTotals(sessions []*session.ChargingSession) (statementTotals, error) {
	totals := statementTotals{
		energyKwh: decimal.Zero,
		gross:     decimal.Zero,
		msFee:     decimal.Zero,
		earning:   decimal.Zero,
	}
	for _, s := range sessions {
		if totals.currency == "" {
			totals.currency = s.Currency
		} else if s.Currency != totals.currency {
			return statementTotals{}, ierr.NewError("eligible sessions span multiple currencies").
				WithHint("A payout statement cannot mix currencies; split the period per currency").
				WithReportableDetails(map[string]interface{}{
					"currency_a": totals.currency,
					"currency_b": s.Currency,
				}).
				Mark(ierr.ErrCurrencyMismatch)
		}
		totals.sessions++
		totals.energyKwh = totals.energyKwh.Add(s.EnergyKwh)
		totals.gross = totals.gross.Add(s.GrossAmount)
		totals.msFee = totals.msFee.Add(s.MsFeeAmount)
		totals.earning = totals.earning.Add(s.SubCpoEarningAmount)
	}
	if totals.currency == "" {
		totals.currency = types.DefaultCurrency
	}
	return totals, nil
}

func (svc *payoutService) buildPreview(workspaceID string, req *dto.GeneratePayoutStatementRequest, eligible []*session.ChargingSession, totals statementTotals) *dto.GeneratePayoutStatementResponse {
	preview := make([]*payout.LineItem, 0, payoutPreviewCap)
	for _, s := range eligible {
		if len(preview) == payoutPreviewCap {
			break
		}
		preview = append(preview, payout.NewLineItemFromSession("", s, types.BaseModel{}))
	}
	return &dto.GeneratePayoutStatementResponse{
		Mode: types.PayoutGenerationModeDryRun,
		Preview: &dto.PayoutPreview{
			WorkspaceID:      workspaceID,
			PeriodStart:      req.PeriodStart,
			PeriodEnd:        req.PeriodEnd,
			TotalSessions:    totals.sessions,
			TotalEnergyKwh:   totals.energyKwh,
			TotalGrossAmount: totals.gross,
			TotalMsFeeAmount: totals.msFee,
			TotalEarning:     totals.earning,
			Currency:         totals.currency,
			Preview:          preview,
		},
	}
}

// commitStatement writes the statement, its line items and the session claims
// as one atomic unit under an advisory lock, so concurrent generations over
// overlapping periods cannot double-claim a session and a failed replace
// leaves the prior DRAFT fully recoverable.
func (svc *payoutService) commitStatement(ctx context.Context, workspaceID string, req *dto.GeneratePayoutStatementRequest, existing *payout.Statement, eligible []*session.ChargingSession, totals statementTotals) (*payout.Statement, error) {
	var result *payout.Statement

	err := svc.DB.WithTx(ctx, func(txCtx context.Context) error {
		lockKey := types.GenerateLockKey(txCtx, types.LockScopePayoutStatement, map[string]interface{}{
			"period_start": req.PeriodStart.UTC().Format(time.RFC3339),
			"period_end":   req.PeriodEnd.UTC().Format(time.RFC3339),
		})
		if err := svc.DB.LockKey(txCtx, types.LockRequest{Key: lockKey}); err != nil {
			return ierr.WithError(err).
				WithHint("Another generation for this period is in progress").
				Mark(ierr.ErrDatabase)
		}

		statement := existing
		if statement == nil {
			statement = &payout.Statement{
				ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYOUT_STATEMENT),
				WorkspaceID:     workspaceID,
				PeriodStart:     req.PeriodStart,
				PeriodEnd:       req.PeriodEnd,
				StatementStatus: types.PayoutStatementStatusDraft,
				BaseModel:       types.GetDefaultBaseModel(txCtx),
			}
		} else {
			// Full replace of a DRAFT: release every current claim before
			// relinking the freshly computed set.
			if err := svc.SessionRepo.ReleaseClaims(txCtx, statement.ID); err != nil {
				return err
			}
		}

		applyTotals(statement, totals)

		items := lo.Map(eligible, func(s *session.ChargingSession, _ int) *payout.LineItem {
			return payout.NewLineItemFromSession(statement.ID, s, types.GetDefaultBaseModel(txCtx))
		})
		statement.LineItems = items

		var err error
		if existing == nil {
			result, err = svc.PayoutRepo.Create(txCtx, statement)
		} else {
			if err = svc.PayoutRepo.ReplaceLineItems(txCtx, statement.ID, items); err != nil {
				return err
			}
			result, err = svc.PayoutRepo.Update(txCtx, statement)
		}
		if err != nil {
			return err
		}

		sessionIDs := lo.Map(eligible, func(s *session.ChargingSession, _ int) string { return s.ID })
		return svc.SessionRepo.ClaimForStatement(txCtx, sessionIDs, statement.ID)
	})
	if err != nil {
		return nil, err
	}

	svc.Logger.WithContext(ctx).Infow("generated payout statement",
		"statement_id", result.ID,
		"total_sessions", result.TotalSessions,
		"total_earning", result.TotalEarning.String(),
		"currency", result.Currency,
	)
	return result, nil
}

func applyTotals(st *payout.Statement, totals statementTotals) {
	st.TotalSessions = totals.sessions
	st.TotalEnergyKwh = totals.energyKwh
	st.TotalGrossAmount = totals.gross
	st.TotalMsFeeAmount = totals.msFee
	st.TotalEarning = totals.earning
	st.Currency = totals.currency
	st.UpdatedAt = time.Now().UTC()
}

func (svc *payoutService) RecalculatePayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error) {
	st, err := svc.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.StatementStatus != types.PayoutStatementStatusDraft {
		return nil, invalidStatementTransition(st, "recalculate", types.PayoutStatementStatusDraft)
	}

	totals := statementTotals{
		energyKwh: decimal.Zero,
		gross:     decimal.Zero,
		msFee:     decimal.Zero,
		earning:   decimal.Zero,
		currency:  st.Currency,
	}
	for _, li := range st.LineItems {
		totals.sessions++
		totals.energyKwh = totals.energyKwh.Add(li.EnergyKwh)
		totals.gross = totals.gross.Add(li.GrossAmount)
		totals.msFee = totals.msFee.Add(li.MsFeeAmount)
		totals.earning = totals.earning.Add(li.SubCpoEarningAmount)
	}
	applyTotals(st, totals)

	updated, err := svc.PayoutRepo.Update(ctx, st)
	if err != nil {
		return nil, err
	}
	return &dto.PayoutStatementResponse{Statement: updated}, nil
}

func (svc *payoutService) IssuePayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error) {
	st, err := svc.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.StatementStatus != types.PayoutStatementStatusDraft {
		return nil, invalidStatementTransition(st, "issue", types.PayoutStatementStatusDraft)
	}

	st.StatementStatus = types.PayoutStatementStatusIssued
	st.IssuedAt = lo.ToPtr(time.Now().UTC())
	st.UpdatedAt = time.Now().UTC()

	updated, err := svc.PayoutRepo.Update(ctx, st)
	if err != nil {
		return nil, err
	}
	svc.publishStatementEvent(ctx, webhook.EventPayoutStatementIssued, updated)
	return &dto.PayoutStatementResponse{Statement: updated}, nil
}

func (svc *payoutService) MarkPayoutPaid(ctx context.Context, id string, req *dto.MarkPayoutPaidRequest) (*dto.PayoutStatementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	st, err := svc.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.StatementStatus != types.PayoutStatementStatusIssued {
		return nil, invalidStatementTransition(st, "mark paid", types.PayoutStatementStatusIssued)
	}

	st.StatementStatus = types.PayoutStatementStatusPaid
	st.PaidAt = lo.ToPtr(lo.FromPtrOr(req.PaidAt, time.Now().UTC()))
	st.PaymentReference = lo.ToPtr(req.PaymentReference)
	if req.PaidAmount != nil {
		st.PaidAmount = req.PaidAmount
	} else {
		st.PaidAmount = lo.ToPtr(st.TotalEarning)
	}
	st.UpdatedAt = time.Now().UTC()

	updated, err := svc.PayoutRepo.Update(ctx, st)
	if err != nil {
		return nil, err
	}
	svc.publishStatementEvent(ctx, webhook.EventPayoutStatementPaid, updated)
	return &dto.PayoutStatementResponse{Statement: updated}, nil
}

func (svc *payoutService) CancelPayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error) {
	st, err := svc.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.StatementStatus != types.PayoutStatementStatusDraft &&
		st.StatementStatus != types.PayoutStatementStatusIssued {
		return nil, ierr.NewError("statement cannot be cancelled").
			WithHint("Only a draft or issued statement can be cancelled").
			WithReportableDetails(map[string]interface{}{
				"statement_id":     st.ID,
				"statement_status": string(st.StatementStatus),
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	var updated *payout.Statement
	err = svc.DB.WithTx(ctx, func(txCtx context.Context) error {
		// Cancellation returns every claimed session to the unclaimed pool.
		if err := svc.SessionRepo.ReleaseClaims(txCtx, st.ID); err != nil {
			return err
		}
		st.StatementStatus = types.PayoutStatementStatusCancelled
		st.UpdatedAt = time.Now().UTC()

		var uerr error
		updated, uerr = svc.PayoutRepo.Update(txCtx, st)
		return uerr
	})
	if err != nil {
		return nil, err
	}

	svc.publishStatementEvent(ctx, webhook.EventPayoutStatementCancelled, updated)
	return &dto.PayoutStatementResponse{Statement: updated}, nil
}

func (svc *payoutService) GetPayoutStatement(ctx context.Context, id string) (*dto.PayoutStatementResponse, error) {
	st, err := svc.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PayoutStatementResponse{Statement: st}, nil
}

func (svc *payoutService) GetPayoutStatements(ctx context.Context, filter *types.PayoutStatementFilter) (*dto.ListPayoutStatementsResponse, error) {
	if filter == nil {
		filter = types.NewPayoutStatementFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	// Reads are always workspace scoped.
	filter.WorkspaceID = types.GetWorkspaceID(ctx)

	statements, err := svc.PayoutRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(statements, func(st *payout.Statement, _ int) *dto.PayoutStatementResponse {
		return &dto.PayoutStatementResponse{Statement: st}
	})
	return &dto.ListPayoutStatementsResponse{
		Items: items,
		Pagination: types.PaginationResponse{
			Limit:  filter.GetLimit(),
			Offset: filter.GetOffset(),
			Total:  len(items),
		},
	}, nil
}

// getOwned fetches a statement and enforces workspace ownership: a statement
// is never returned for a workspace that does not own it.
func (svc *payoutService) getOwned(ctx context.Context, id string) (*payout.Statement, error) {
	if id == "" {
		return nil, ierr.NewError("statement id is required").
			WithHint("Please provide a valid payout statement ID").
			Mark(ierr.ErrValidation)
	}
	workspaceID := types.GetWorkspaceID(ctx)
	if workspaceID == "" {
		return nil, ierr.NewError("workspace id is required").
			WithHint("Payout statement reads must be workspace scoped").
			Mark(ierr.ErrValidation)
	}
	st, err := svc.PayoutRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.WorkspaceID != workspaceID {
		return nil, ierr.NewError("payout statement not found").
			WithHint("Payout statement not found").
			WithReportableDetails(map[string]interface{}{
				"statement_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return st, nil
}

func invalidStatementTransition(st *payout.Statement, operation string, required types.PayoutStatementStatus) error {
	return ierr.NewErrorf("statement must be %s to %s", required, operation).
		WithHintf("Operation requires a %s statement", required).
		WithReportableDetails(map[string]interface{}{
			"statement_id":     st.ID,
			"statement_status": string(st.StatementStatus),
			"required_status":  string(required),
		}).
		Mark(ierr.ErrInvalidOperation)
}

func (svc *payoutService) publishStatementEvent(ctx context.Context, eventName string, st *payout.Statement) {
	if err := svc.WebhookPublisher.Publish(ctx, eventName, payload.NewPayoutStatementEventPayload(st)); err != nil {
		svc.Logger.WithContext(ctx).Warnw("failed to publish payout webhook",
			"statement_id", st.ID, "event_name", eventName, "error", err)
	}
}
