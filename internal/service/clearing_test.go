package service

import (
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

type ClearingServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	service   ClearingService
	publisher *testutil.RecordingPublisher
}

func TestClearingService(t *testing.T) {
	suite.Run(t, new(ClearingServiceTestSuite))
}

func (s *ClearingServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.publisher = testutil.NewRecordingPublisher()
	s.service = NewClearingService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		SessionRepo:      s.GetStores().SessionRepo,
		PayoutRepo:       s.GetStores().PayoutRepo,
		TariffResolver:   testutil.NewFakeTariffResolver(),
		PaymentGateway:   testutil.NewFakePaymentGateway(),
		WebhookPublisher: s.publisher,
	})
}

// seedBilledSession stores a completed, billed inbound session awaiting
// clearing: 10 kWh over 20 minutes for a 4.70 gross.
func (s *ClearingServiceTestSuite) seedBilledSession() *session.ChargingSession {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cs := &session.ChargingSession{
		ID:                  "sess_clearing_1",
		WorkspaceID:         types.GetWorkspaceID(s.GetContext()),
		StationID:           "station-1",
		SessionStatus:       types.SessionStatusCompleted,
		HubjectSessionID:    lo.ToPtr("hubject-evt-100"),
		StartTime:           start,
		EndTime:             lo.ToPtr(start.Add(20 * time.Minute)),
		EnergyKwh:           decimal.NewFromInt(10),
		DurationSeconds:     1200,
		BillingStatus:       types.BillingStatusBilled,
		GrossAmount:         decimal.RequireFromString("4.70"),
		MsFeeAmount:         decimal.RequireFromString("0.71"),
		SubCpoEarningAmount: decimal.RequireFromString("3.99"),
		Currency:            "EUR",
		BilledAt:            lo.ToPtr(start.Add(21 * time.Minute)),
		RoamingType:         types.RoamingTypeInbound,
		RoamingProvider:     "hubject",
		ClearingStatus:      types.ClearingStatusPending,
		PaymentStatus:       types.PaymentStatusNone,
		BaseModel:           types.GetDefaultBaseModel(s.GetContext()),
	}
	stored, err := s.GetStores().SessionRepo.Create(s.GetContext(), cs)
	s.Require().NoError(err)
	return stored
}

func (s *ClearingServiceTestSuite) matchingRequest(cs *session.ChargingSession) *dto.ReconcileSettlementRequest {
	return &dto.ReconcileSettlementRequest{
		SessionID:         cs.ID,
		CounterpartID:     *cs.HubjectSessionID,
		CdrData:           dtoCdr(decimal.RequireFromString("4.70"), decimal.NewFromInt(10), 1200, cs.StartTime),
		ClearingReference: "clr-ref-1",
		SettledAt:         cs.StartTime.Add(48 * time.Hour),
	}
}

func (s *ClearingServiceTestSuite) TestReconcileMatchSettlesSession() {
	cs := s.seedBilledSession()
	req := s.matchingRequest(cs)
	req.CdrData.NetAmount = lo.ToPtr(decimal.RequireFromString("4.50"))

	resp, err := s.service.ReconcileSettlement(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.Report.Match)

	settled := resp.Session
	s.Equal(types.ClearingStatusSettled, settled.ClearingStatus)
	s.NotNil(settled.SettledAt)
	s.Equal("clr-ref-1", *settled.ClearingReference)
	s.Nil(settled.DisputeReason)

	// The CDR amounts are adopted as authoritative.
	s.True(settled.RoamingGrossAmount.Equal(decimal.RequireFromString("4.70")))
	s.True(settled.RoamingNetAmount.Equal(decimal.RequireFromString("4.50")))
	s.Contains(s.publisher.EventNames(), webhook.EventSessionSettled)
}

func (s *ClearingServiceTestSuite) TestReconcileMismatchDisputesWithoutOverwriting() {
	cs := s.seedBilledSession()
	req := s.matchingRequest(cs)
	req.CdrData.EnergyKwh = decimal.RequireFromString("10.25")
	req.CdrData.GrossAmount = decimal.RequireFromString("5.90")

	resp, err := s.service.ReconcileSettlement(s.GetContext(), req)
	s.NoError(err)
	s.False(resp.Report.Match)

	disputed := resp.Session
	s.Equal(types.ClearingStatusDisputed, disputed.ClearingStatus)
	s.NotNil(disputed.DisputeReason)
	s.Contains(*disputed.DisputeReason, "energy_kwh")
	s.Contains(*disputed.DisputeReason, "gross_amount")

	// Locally computed amounts stay authoritative.
	s.True(disputed.GrossAmount.Equal(decimal.RequireFromString("4.70")))
	s.True(disputed.EnergyKwh.Equal(decimal.NewFromInt(10)))
	s.Nil(disputed.SettledAt)
	s.Contains(s.publisher.EventNames(), webhook.EventSessionDisputed)
}

func (s *ClearingServiceTestSuite) TestDisputedSessionCanBeReReconciled() {
	cs := s.seedBilledSession()

	bad := s.matchingRequest(cs)
	bad.CdrData.GrossAmount = decimal.NewFromInt(9)
	resp, err := s.service.ReconcileSettlement(s.GetContext(), bad)
	s.NoError(err)
	s.Equal(types.ClearingStatusDisputed, resp.Session.ClearingStatus)

	// A corrected settlement resolves the dispute.
	resp, err = s.service.ReconcileSettlement(s.GetContext(), s.matchingRequest(cs))
	s.NoError(err)
	s.Equal(types.ClearingStatusSettled, resp.Session.ClearingStatus)
	s.Nil(resp.Session.DisputeReason)
}

func (s *ClearingServiceTestSuite) TestSettledSessionIsFinal() {
	cs := s.seedBilledSession()

	_, err := s.service.ReconcileSettlement(s.GetContext(), s.matchingRequest(cs))
	s.NoError(err)

	_, err = s.service.ReconcileSettlement(s.GetContext(), s.matchingRequest(cs))
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ClearingServiceTestSuite) TestCounterpartMismatchIsRejected() {
	cs := s.seedBilledSession()
	req := s.matchingRequest(cs)
	req.CounterpartID = "hubject-evt-999"

	_, err := s.service.ReconcileSettlement(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsIdempotencyConflict(err))

	stored, err := s.GetStores().SessionRepo.Get(s.GetContext(), cs.ID)
	s.NoError(err)
	s.Equal(types.ClearingStatusPending, stored.ClearingStatus)
}

func (s *ClearingServiceTestSuite) TestUnknownSession() {
	req := s.matchingRequest(&session.ChargingSession{
		ID:               "sess_missing",
		HubjectSessionID: lo.ToPtr("hubject-evt-0"),
		StartTime:        time.Now().UTC(),
	})
	_, err := s.service.ReconcileSettlement(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
