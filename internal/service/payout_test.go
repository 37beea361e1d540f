package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/testutil"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/voltbridge/voltbridge/internal/webhook"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PayoutServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	service     PayoutService
	publisher   *testutil.RecordingPublisher
	periodStart time.Time
	periodEnd   time.Time
}

func TestPayoutService(t *testing.T) {
	suite.Run(t, new(PayoutServiceTestSuite))
}

func (s *PayoutServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.publisher = testutil.NewRecordingPublisher()
	s.service = NewPayoutService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		SessionRepo:      s.GetStores().SessionRepo,
		PayoutRepo:       s.GetStores().PayoutRepo,
		TariffResolver:   testutil.NewFakeTariffResolver(),
		PaymentGateway:   testutil.NewFakePaymentGateway(),
		WebhookPublisher: s.publisher,
	})
	s.periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.periodEnd = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
}

// seedEligibleSession stores a captured local session billed inside the
// period, earning 3.99 on a 4.70 gross.
func (s *PayoutServiceTestSuite) seedEligibleSession(n int) *session.ChargingSession {
	billedAt := s.periodStart.Add(time.Duration(n) * 24 * time.Hour)
	cs := &session.ChargingSession{
		ID:                  fmt.Sprintf("sess_payout_%d", n),
		WorkspaceID:         types.GetWorkspaceID(s.GetContext()),
		StationID:           "station-1",
		StationName:         "Main Street 1",
		SessionStatus:       types.SessionStatusCompleted,
		StartTime:           billedAt.Add(-time.Hour),
		EnergyKwh:           decimal.NewFromInt(10),
		DurationSeconds:     1200,
		BillingStatus:       types.BillingStatusBilled,
		GrossAmount:         decimal.RequireFromString("4.70"),
		MsFeeAmount:         decimal.RequireFromString("0.71"),
		SubCpoEarningAmount: decimal.RequireFromString("3.99"),
		Currency:            "EUR",
		BilledAt:            lo.ToPtr(billedAt),
		RoamingType:         types.RoamingTypeNone,
		ClearingStatus:      types.ClearingStatusPending,
		PaymentStatus:       types.PaymentStatusCaptured,
		PaidAt:              lo.ToPtr(billedAt.Add(time.Minute)),
		BaseModel:           types.GetDefaultBaseModel(s.GetContext()),
	}
	stored, err := s.GetStores().SessionRepo.Create(s.GetContext(), cs)
	s.Require().NoError(err)
	return stored
}

func (s *PayoutServiceTestSuite) generate(mode types.PayoutGenerationMode) (*dto.GeneratePayoutStatementResponse, error) {
	return s.service.GeneratePayoutStatement(s.GetContext(), &dto.GeneratePayoutStatementRequest{
		PeriodStart: s.periodStart,
		PeriodEnd:   s.periodEnd,
		Mode:        mode,
	})
}

func (s *PayoutServiceTestSuite) TestDryRunComputesTotalsWithoutWriting() {
	for i := 0; i < 3; i++ {
		s.seedEligibleSession(i)
	}

	resp, err := s.generate(types.PayoutGenerationModeDryRun)
	s.NoError(err)
	s.Equal(types.PayoutGenerationModeDryRun, resp.Mode)
	s.Nil(resp.Statement)

	preview := resp.Preview
	s.Equal(3, preview.TotalSessions)
	s.True(preview.TotalEnergyKwh.Equal(decimal.NewFromInt(30)))
	s.True(preview.TotalGrossAmount.Equal(decimal.RequireFromString("14.10")))
	s.True(preview.TotalMsFeeAmount.Equal(decimal.RequireFromString("2.13")))
	s.True(preview.TotalEarning.Equal(decimal.RequireFromString("11.97")))
	s.Len(preview.Preview, 3)

	// Nothing persisted, nothing claimed.
	count, err := s.GetStores().PayoutRepo.Count(s.GetContext(), nil)
	s.NoError(err)
	s.Zero(count)
	stored, err := s.GetStores().SessionRepo.Get(s.GetContext(), "sess_payout_0")
	s.NoError(err)
	s.Nil(stored.PayoutStatementID)
}

func (s *PayoutServiceTestSuite) TestDryRunPreviewIsCapped() {
	for i := 0; i < 15; i++ {
		s.seedEligibleSession(i)
	}
	resp, err := s.generate(types.PayoutGenerationModeDryRun)
	s.NoError(err)
	s.Equal(15, resp.Preview.TotalSessions)
	s.Len(resp.Preview.Preview, payoutPreviewCap)
}

func (s *PayoutServiceTestSuite) TestCommitCreatesDraftAndClaimsSessions() {
	for i := 0; i < 2; i++ {
		s.seedEligibleSession(i)
	}

	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)
	st := resp.Statement
	s.Equal(types.PayoutStatementStatusDraft, st.StatementStatus)
	s.Equal(2, st.TotalSessions)
	s.True(st.TotalEarning.Equal(decimal.RequireFromString("7.98")))
	s.Len(st.LineItems, 2)

	for i := 0; i < 2; i++ {
		cs, err := s.GetStores().SessionRepo.Get(s.GetContext(), fmt.Sprintf("sess_payout_%d", i))
		s.NoError(err)
		s.Require().NotNil(cs.PayoutStatementID)
		s.Equal(st.ID, *cs.PayoutStatementID)
	}
}

func (s *PayoutServiceTestSuite) TestRegenerateDraftReplacesLineItems() {
	s.seedEligibleSession(0)
	first, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)

	// A new session becomes eligible; regenerating the same period reuses the
	// DRAFT and pulls both.
	s.seedEligibleSession(1)
	second, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)
	s.Equal(first.Statement.ID, second.Statement.ID)
	s.Equal(2, second.Statement.TotalSessions)
	s.Len(second.Statement.LineItems, 2)
}

func (s *PayoutServiceTestSuite) TestIneligibleSessionsAreExcluded() {
	s.seedEligibleSession(0)

	outbound := s.seedEligibleSession(1)
	outbound.RoamingType = types.RoamingTypeOutbound
	_, err := s.GetStores().SessionRepo.Update(s.GetContext(), outbound)
	s.Require().NoError(err)

	uncaptured := s.seedEligibleSession(2)
	uncaptured.PaymentStatus = types.PaymentStatusHold
	uncaptured.PaidAt = nil
	_, err = s.GetStores().SessionRepo.Update(s.GetContext(), uncaptured)
	s.Require().NoError(err)

	resp, err := s.generate(types.PayoutGenerationModeDryRun)
	s.NoError(err)
	s.Equal(1, resp.Preview.TotalSessions)
}

func (s *PayoutServiceTestSuite) TestInboundSessionsRequireSettlement() {
	inbound := s.seedEligibleSession(0)
	inbound.RoamingType = types.RoamingTypeInbound
	inbound.PaymentStatus = types.PaymentStatusNone
	inbound.PaidAt = nil
	_, err := s.GetStores().SessionRepo.Update(s.GetContext(), inbound)
	s.Require().NoError(err)

	resp, err := s.generate(types.PayoutGenerationModeDryRun)
	s.NoError(err)
	s.Zero(resp.Preview.TotalSessions)

	inbound.ClearingStatus = types.ClearingStatusSettled
	inbound.SettledAt = lo.ToPtr(s.periodStart.Add(time.Hour))
	_, err = s.GetStores().SessionRepo.Update(s.GetContext(), inbound)
	s.Require().NoError(err)

	resp, err = s.generate(types.PayoutGenerationModeDryRun)
	s.NoError(err)
	s.Equal(1, resp.Preview.TotalSessions)
}

func (s *PayoutServiceTestSuite) TestCurrencyMixRejected() {
	s.seedEligibleSession(0)
	sek := s.seedEligibleSession(1)
	sek.Currency = "SEK"
	_, err := s.GetStores().SessionRepo.Update(s.GetContext(), sek)
	s.Require().NoError(err)

	_, err = s.generate(types.PayoutGenerationModeCommit)
	s.Error(err)
	s.True(ierr.IsCurrencyMismatch(err))
}

func (s *PayoutServiceTestSuite) TestFinalizedPeriodCannotBeRegenerated() {
	s.seedEligibleSession(0)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)

	_, err = s.service.IssuePayoutStatement(s.GetContext(), resp.Statement.ID)
	s.NoError(err)

	_, err = s.generate(types.PayoutGenerationModeCommit)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// Dry runs over the finalized period remain allowed.
	_, err = s.generate(types.PayoutGenerationModeDryRun)
	s.NoError(err)
}

func (s *PayoutServiceTestSuite) TestRecalculateResumsFromLineItems() {
	s.seedEligibleSession(0)
	s.seedEligibleSession(1)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)
	st := resp.Statement

	// Simulate drift in the stored totals.
	st.TotalEarning = decimal.Zero
	st.TotalSessions = 0
	_, err = s.GetStores().PayoutRepo.Update(s.GetContext(), st)
	s.Require().NoError(err)

	recalced, err := s.service.RecalculatePayoutStatement(s.GetContext(), st.ID)
	s.NoError(err)
	s.Equal(2, recalced.TotalSessions)
	s.True(recalced.TotalEarning.Equal(decimal.RequireFromString("7.98")))
}

func (s *PayoutServiceTestSuite) TestLifecycleDraftIssuedPaid() {
	s.seedEligibleSession(0)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)
	id := resp.Statement.ID

	issued, err := s.service.IssuePayoutStatement(s.GetContext(), id)
	s.NoError(err)
	s.Equal(types.PayoutStatementStatusIssued, issued.StatementStatus)
	s.NotNil(issued.IssuedAt)

	paid, err := s.service.MarkPayoutPaid(s.GetContext(), id, &dto.MarkPayoutPaidRequest{
		PaymentReference: "bank-tx-001",
	})
	s.NoError(err)
	s.Equal(types.PayoutStatementStatusPaid, paid.StatementStatus)
	s.NotNil(paid.PaidAt)
	s.Equal("bank-tx-001", *paid.PaymentReference)
	// Paid amount defaults to the earned total.
	s.True(paid.PaidAmount.Equal(paid.TotalEarning))

	events := s.publisher.EventNames()
	s.Contains(events, webhook.EventPayoutStatementIssued)
	s.Contains(events, webhook.EventPayoutStatementPaid)
}

func (s *PayoutServiceTestSuite) TestInvalidTransitions() {
	s.seedEligibleSession(0)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)
	id := resp.Statement.ID

	// DRAFT cannot be marked paid.
	_, err = s.service.MarkPayoutPaid(s.GetContext(), id, &dto.MarkPayoutPaidRequest{PaymentReference: "x"})
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.IssuePayoutStatement(s.GetContext(), id)
	s.NoError(err)

	// ISSUED cannot be issued again or recalculated.
	_, err = s.service.IssuePayoutStatement(s.GetContext(), id)
	s.True(ierr.IsInvalidOperation(err))
	_, err = s.service.RecalculatePayoutStatement(s.GetContext(), id)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.MarkPayoutPaid(s.GetContext(), id, &dto.MarkPayoutPaidRequest{PaymentReference: "x"})
	s.NoError(err)

	// PAID is terminal.
	_, err = s.service.CancelPayoutStatement(s.GetContext(), id)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PayoutServiceTestSuite) TestCancelReleasesClaims() {
	s.seedEligibleSession(0)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)

	cancelled, err := s.service.CancelPayoutStatement(s.GetContext(), resp.Statement.ID)
	s.NoError(err)
	s.Equal(types.PayoutStatementStatusCancelled, cancelled.StatementStatus)

	cs, err := s.GetStores().SessionRepo.Get(s.GetContext(), "sess_payout_0")
	s.NoError(err)
	s.Nil(cs.PayoutStatementID)
	s.Contains(s.publisher.EventNames(), webhook.EventPayoutStatementCancelled)

	// The period is free again for a new statement.
	regenerated, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)
	s.NotEqual(resp.Statement.ID, regenerated.Statement.ID)
}

func (s *PayoutServiceTestSuite) TestClaimedSessionExcludedFromOtherPeriods() {
	s.seedEligibleSession(0)
	_, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)

	// An overlapping period sees no unclaimed sessions.
	resp, err := s.service.GeneratePayoutStatement(s.GetContext(), &dto.GeneratePayoutStatementRequest{
		PeriodStart: s.periodStart,
		PeriodEnd:   s.periodStart.Add(15 * 24 * time.Hour),
		Mode:        types.PayoutGenerationModeDryRun,
	})
	s.NoError(err)
	s.Zero(resp.Preview.TotalSessions)
}

func (s *PayoutServiceTestSuite) TestWorkspaceOwnershipEnforced() {
	s.seedEligibleSession(0)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)

	foreignCtx := types.SetWorkspaceID(s.GetContext(), "ws_other")
	_, err = s.service.GetPayoutStatement(foreignCtx, resp.Statement.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PayoutServiceTestSuite) TestReadsRequireWorkspaceScope() {
	s.seedEligibleSession(0)
	resp, err := s.generate(types.PayoutGenerationModeCommit)
	s.NoError(err)

	// A context without a workspace never falls through to an unscoped read.
	_, err = s.service.GetPayoutStatement(context.Background(), resp.Statement.ID)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PayoutServiceTestSuite) TestGenerateValidation() {
	_, err := s.service.GeneratePayoutStatement(s.GetContext(), &dto.GeneratePayoutStatementRequest{
		PeriodStart: s.periodEnd,
		PeriodEnd:   s.periodStart,
		Mode:        types.PayoutGenerationModeCommit,
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.GeneratePayoutStatement(s.GetContext(), &dto.GeneratePayoutStatementRequest{
		PeriodStart: s.periodStart,
		PeriodEnd:   s.periodEnd,
		Mode:        "bogus",
	})
	s.True(ierr.IsValidation(err))
}
