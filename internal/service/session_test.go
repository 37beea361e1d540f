package service

import (
	"testing"
	"time"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	"github.com/voltbridge/voltbridge/internal/domain/clearing"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/testutil"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/voltbridge/voltbridge/internal/webhook"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SessionServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	service   SessionService
	resolver  *testutil.FakeTariffResolver
	gateway   *testutil.FakePaymentGateway
	publisher *testutil.RecordingPublisher
}

func TestSessionService(t *testing.T) {
	suite.Run(t, new(SessionServiceTestSuite))
}

func (s *SessionServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.resolver = testutil.NewFakeTariffResolver()
	s.gateway = testutil.NewFakePaymentGateway()
	s.publisher = testutil.NewRecordingPublisher()
	s.service = NewSessionService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		SessionRepo:      s.GetStores().SessionRepo,
		PayoutRepo:       s.GetStores().PayoutRepo,
		TariffResolver:   s.resolver,
		PaymentGateway:   s.gateway,
		WebhookPublisher: s.publisher,
	})
}

func (s *SessionServiceTestSuite) inboundRequest() *dto.CreateInboundSessionRequest {
	return &dto.CreateInboundSessionRequest{
		HubjectSessionID: "hubject-evt-001",
		StationID:        "station-1",
		StationName:      "Main Street 1",
		ConnectorID:      "connector-2",
		EndUserID:        "driver-42",
		StartTime:        time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		MeterStart:       lo.ToPtr(int64(1000)),
	}
}

func (s *SessionServiceTestSuite) TestCreateInboundSession() {
	resp, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)
	s.Equal(types.SessionStatusActive, resp.SessionStatus)
	s.Equal(types.RoamingTypeInbound, resp.RoamingType)
	s.Equal(types.ClearingStatusPending, resp.ClearingStatus)
	s.Equal(types.PaymentStatusNone, resp.PaymentStatus)
	s.Equal(types.BillingStatusNotBilled, resp.BillingStatus)
	s.Equal("hubject", resp.RoamingProvider)
	s.NotNil(resp.TariffSnapshot)
	s.Equal("EUR", resp.Currency)
	s.Equal(1, s.resolver.Calls)
}

func (s *SessionServiceTestSuite) TestCreateInboundSessionIsIdempotent() {
	first, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)

	second, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	count, err := s.GetStores().SessionRepo.Count(s.GetContext(), types.NewChargingSessionFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *SessionServiceTestSuite) TestCreateInboundSessionWithProvidedTariff() {
	req := s.inboundRequest()
	req.Tariff = &s.resolver.Snapshot

	_, err := s.service.CreateInboundSession(s.GetContext(), req)
	s.NoError(err)
	s.Equal(0, s.resolver.Calls, "resolver must not run when the tariff is supplied")
}

func (s *SessionServiceTestSuite) TestCreateInboundSessionResolverFailure() {
	s.resolver.Err = ierr.NewError("tariff backend down").Mark(ierr.ErrHTTPClient)
	_, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SessionServiceTestSuite) TestCloseInboundSessionBillsFromMeterDelta() {
	created, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)

	resp, err := s.service.CloseInboundSession(s.GetContext(), &dto.CloseInboundSessionRequest{
		SessionID: created.ID,
		MeterStop: 11000, // 10 kWh from a 1000 Wh start
		EndTime:   lo.ToPtr(created.StartTime.Add(20 * time.Minute)),
	})
	s.NoError(err)

	s.Equal(types.SessionStatusCompleted, resp.SessionStatus)
	s.Equal(types.BillingStatusBilled, resp.BillingStatus)
	s.True(resp.EnergyKwh.Equal(decimal.NewFromInt(10)), "energy: %s", resp.EnergyKwh)
	s.Equal(int64(1200), resp.DurationSeconds)

	// 10 kWh * 0.45 + 0.20 start fee = 4.70; 15% fee = 0.71; earning = 3.99.
	s.True(resp.GrossAmount.Equal(decimal.RequireFromString("4.70")), "gross: %s", resp.GrossAmount)
	s.True(resp.MsFeeAmount.Equal(decimal.RequireFromString("0.71")))
	s.True(resp.SubCpoEarningAmount.Equal(decimal.RequireFromString("3.99")))
	s.NotNil(resp.BilledAt)
	s.NotEmpty(resp.BillingRecord)

	// Clearing stays pending until the roaming settlement arrives.
	s.Equal(types.ClearingStatusPending, resp.ClearingStatus)
	s.Contains(s.publisher.EventNames(), webhook.EventSessionClosed)
}

func (s *SessionServiceTestSuite) TestCloseInboundSessionBillingErrorDoesNotBlockClosure() {
	req := s.inboundRequest()
	req.Tariff = &s.resolver.Snapshot
	created, err := s.service.CreateInboundSession(s.GetContext(), req)
	s.NoError(err)

	// Corrupt the frozen snapshot in the store so billing fails at close.
	stored, err := s.GetStores().SessionRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	stored.TariffSnapshot.MsFeePercent = decimal.NewFromInt(250)
	_, err = s.GetStores().SessionRepo.Update(s.GetContext(), stored)
	s.NoError(err)

	resp, err := s.service.CloseInboundSession(s.GetContext(), &dto.CloseInboundSessionRequest{
		SessionID: created.ID,
		MeterStop: 5000,
	})
	s.NoError(err)
	s.Equal(types.SessionStatusCompleted, resp.SessionStatus)
	s.Equal(types.BillingStatusBillingError, resp.BillingStatus)
	s.NotNil(resp.BillingError)
	s.Nil(resp.BilledAt)
}

func (s *SessionServiceTestSuite) TestCloseInboundSessionRejectsNonActive() {
	created, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)

	closeReq := &dto.CloseInboundSessionRequest{SessionID: created.ID, MeterStop: 2000}
	_, err = s.service.CloseInboundSession(s.GetContext(), closeReq)
	s.NoError(err)

	_, err = s.service.CloseInboundSession(s.GetContext(), closeReq)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SessionServiceTestSuite) outboundRequest() *dto.CreateOutboundSessionRequest {
	return &dto.CreateOutboundSessionRequest{
		HubjectSessionID: "hubject-evt-900",
		ExternalStation:  "ext-station-7",
		EndUserID:        "driver-42",
		EstimatedAmount:  decimal.RequireFromString("25.00"),
	}
}

func (s *SessionServiceTestSuite) TestCreateOutboundSessionPlacesHold() {
	resp, err := s.service.CreateOutboundSession(s.GetContext(), s.outboundRequest())
	s.NoError(err)
	s.Equal(types.RoamingTypeOutbound, resp.RoamingType)
	s.Equal(types.PaymentStatusHold, resp.PaymentStatus)
	s.NotNil(resp.PaymentIntentID)
	s.Equal(1, s.gateway.HoldCalls)
	s.True(s.gateway.LastHold.Equal(decimal.RequireFromString("25.00")))
}

func (s *SessionServiceTestSuite) TestCreateOutboundSessionIsIdempotent() {
	first, err := s.service.CreateOutboundSession(s.GetContext(), s.outboundRequest())
	s.NoError(err)

	second, err := s.service.CreateOutboundSession(s.GetContext(), s.outboundRequest())
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// Only the create that won the insert authorizes funds; the duplicate
	// returns the stored session without touching the gateway.
	s.Equal(1, s.gateway.HoldCalls)
	s.NotNil(second.PaymentIntentID)
	s.Equal(*first.PaymentIntentID, *second.PaymentIntentID)

	count, err := s.GetStores().SessionRepo.Count(s.GetContext(), types.NewChargingSessionFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *SessionServiceTestSuite) TestCreateOutboundSessionHoldFailureStillCreates() {
	s.gateway.HoldErr = testutil.ErrGatewayUnavailable

	resp, err := s.service.CreateOutboundSession(s.GetContext(), s.outboundRequest())
	s.NoError(err)
	s.Equal(types.PaymentStatusFailed, resp.PaymentStatus)
	s.NotNil(resp.PaymentError)
	s.Nil(resp.PaymentIntentID)
	s.Equal(types.SessionStatusActive, resp.SessionStatus)
}

func (s *SessionServiceTestSuite) TestCloseOutboundSessionAdoptsCdrAndCaptures() {
	created, err := s.service.CreateOutboundSession(s.GetContext(), s.outboundRequest())
	s.NoError(err)

	resp, err := s.service.CloseOutboundSession(s.GetContext(), &dto.CloseOutboundSessionRequest{
		SessionID: created.ID,
		Cdr: dtoCdr(decimal.RequireFromString("18.40"), decimal.RequireFromString("7.5"), 1800,
			created.StartTime),
	})
	s.NoError(err)

	s.Equal(types.SessionStatusCompleted, resp.SessionStatus)
	s.Equal(types.BillingStatusBilled, resp.BillingStatus)
	s.True(resp.EnergyKwh.Equal(decimal.RequireFromString("7.5")))
	s.Equal(int64(1800), resp.DurationSeconds)

	// Nothing is earned on a foreign station.
	s.True(resp.GrossAmount.Equal(decimal.RequireFromString("18.40")))
	s.True(resp.SubCpoEarningAmount.IsZero())
	s.True(resp.MsFeeAmount.Equal(resp.GrossAmount))

	s.Equal(types.PaymentStatusCaptured, resp.PaymentStatus)
	s.NotNil(resp.PaidAt)
	s.Equal(1, s.gateway.CaptureCalls)
	s.True(s.gateway.LastCapture.Equal(resp.GrossAmount))
}

func (s *SessionServiceTestSuite) TestCloseOutboundSessionCaptureFailureKeepsBilling() {
	created, err := s.service.CreateOutboundSession(s.GetContext(), s.outboundRequest())
	s.NoError(err)

	s.gateway.CaptureErr = testutil.ErrGatewayUnavailable
	resp, err := s.service.CloseOutboundSession(s.GetContext(), &dto.CloseOutboundSessionRequest{
		SessionID: created.ID,
		Cdr:       dtoCdr(decimal.RequireFromString("12.00"), decimal.NewFromInt(5), 900, created.StartTime),
	})
	s.NoError(err)
	s.Equal(types.BillingStatusBilled, resp.BillingStatus)
	s.Equal(types.PaymentStatusFailed, resp.PaymentStatus)
	s.NotNil(resp.PaymentError)
}

func (s *SessionServiceTestSuite) TestMatchCdrWithSessionRoutesByHubjectID() {
	created, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)

	_, err = s.service.CloseInboundSession(s.GetContext(), &dto.CloseInboundSessionRequest{
		SessionID: created.ID,
		MeterStop: 11000,
		EndTime:   lo.ToPtr(created.StartTime.Add(20 * time.Minute)),
	})
	s.NoError(err)

	resp, err := s.service.MatchCdrWithSession(s.GetContext(), &dto.MatchCdrRequest{
		HubjectSessionID: "hubject-evt-001",
		CdrData: dtoCdr(decimal.RequireFromString("4.70"), decimal.NewFromInt(10), 1200,
			created.StartTime),
		SettledAt: time.Now().UTC(),
	})
	s.NoError(err)
	s.True(resp.Report.Match)
	s.Equal(types.ClearingStatusSettled, resp.Session.ClearingStatus)
}

func (s *SessionServiceTestSuite) TestMatchCdrWithUnknownHubjectID() {
	_, err := s.service.MatchCdrWithSession(s.GetContext(), &dto.MatchCdrRequest{
		HubjectSessionID: "hubject-unknown",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SessionServiceTestSuite) TestListSessionsScopedToWorkspace() {
	_, err := s.service.CreateInboundSession(s.GetContext(), s.inboundRequest())
	s.NoError(err)

	foreignCtx := types.SetWorkspaceID(s.GetContext(), "ws_other")
	req := s.inboundRequest()
	req.HubjectSessionID = "hubject-evt-002"
	_, err = s.service.CreateInboundSession(foreignCtx, req)
	s.NoError(err)

	resp, err := s.service.ListSessions(s.GetContext(), nil)
	s.NoError(err)
	s.Len(resp.Items, 1)

	foreign, err := s.service.ListSessions(foreignCtx, nil)
	s.NoError(err)
	s.Len(foreign.Items, 1)
}

func dtoCdr(gross, energy decimal.Decimal, durationSeconds int64, start time.Time) clearing.CDR {
	return clearing.CDR{
		EnergyKwh:       energy,
		DurationSeconds: durationSeconds,
		GrossAmount:     gross,
		Currency:        "EUR",
		StartTime:       start,
	}
}

func (s *SessionServiceTestSuite) TestValidationErrors() {
	_, err := s.service.CreateInboundSession(s.GetContext(), &dto.CreateInboundSessionRequest{StationID: "x"})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateOutboundSession(s.GetContext(), &dto.CreateOutboundSessionRequest{HubjectSessionID: "h"})
	s.True(ierr.IsValidation(err))

	_, err = s.service.GetSession(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}
