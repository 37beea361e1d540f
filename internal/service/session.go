package service

import (
	"context"
	"time"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	"github.com/voltbridge/voltbridge/internal/domain/billing"
	"github.com/voltbridge/voltbridge/internal/domain/clearing"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/voltbridge/voltbridge/internal/webhook"
	"github.com/voltbridge/voltbridge/internal/webhook/payload"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// SessionService owns the roaming session lifecycle: creation and closing of
// inbound and outbound sessions, and routing of incoming CDRs to the clearing
// engine.
type SessionService interface {
	CreateInboundSession(ctx context.Context, req *dto.CreateInboundSessionRequest) (*dto.SessionResponse, error)
	CloseInboundSession(ctx context.Context, req *dto.CloseInboundSessionRequest) (*dto.SessionResponse, error)
	CreateOutboundSession(ctx context.Context, req *dto.CreateOutboundSessionRequest) (*dto.SessionResponse, error)
	CloseOutboundSession(ctx context.Context, req *dto.CloseOutboundSessionRequest) (*dto.SessionResponse, error)

	// MatchCdrWithSession locates a session by its roaming counterpart id and
	// delegates to the clearing engine.
	MatchCdrWithSession(ctx context.Context, req *dto.MatchCdrRequest) (*dto.SettlementResponse, error)

	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, filter *types.ChargingSessionFilter) (*dto.ListSessionsResponse, error)
}

type sessionService struct {
	ServiceParams
	billing  BillingService
	clearing ClearingService
}

func NewSessionService(params ServiceParams) SessionService {
	return &sessionService{
		ServiceParams: params,
		billing:       NewBillingService(params),
		clearing:      NewClearingService(params),
	}
}

func (svc *sessionService) CreateInboundSession(ctx context.Context, req *dto.CreateInboundSessionRequest) (*dto.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := svc.resolveTariff(ctx, req)
	if err != nil {
		return nil, err
	}

	s := req.ToSession(ctx, svc.Config.Roaming.Provider, snapshot)

	// The uniqueness constraint on hubject_session_id makes this safe under
	// concurrent duplicate deliveries; a second create returns the stored row.
	stored, created, err := svc.SessionRepo.CreateIdempotent(ctx, s)
	if err != nil {
		return nil, err
	}
	if !created {
		svc.Logger.WithContext(ctx).Infow("inbound session already exists, returning stored session",
			"session_id", stored.ID, "hubject_session_id", req.HubjectSessionID)
	}
	return &dto.SessionResponse{ChargingSession: stored}, nil
}

func (svc *sessionService) resolveTariff(ctx context.Context, req *dto.CreateInboundSessionRequest) (snapshot tariff.Snapshot, err error) {
	if req.Tariff != nil {
		snapshot = req.Tariff.WithDefaults()
		return snapshot, snapshot.Validate()
	}

	at := req.StartTime
	if at.IsZero() {
		at = time.Now().UTC()
	}
	resolved, err := svc.TariffResolver.Resolve(ctx, types.GetWorkspaceID(ctx), req.StationID, req.ConnectorID, at)
	if err != nil {
		return snapshot, ierr.WithError(err).
			WithHint("Failed to resolve the active tariff for the station").
			WithReportableDetails(map[string]interface{}{
				"station_id": req.StationID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	snapshot = resolved.WithDefaults()
	return snapshot, snapshot.Validate()
}

func (svc *sessionService) CloseInboundSession(ctx context.Context, req *dto.CloseInboundSessionRequest) (*dto.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s, err := svc.SessionRepo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if s.SessionStatus != types.SessionStatusActive {
		return nil, ierr.NewError("session is not active").
			WithHint("Only an active session can be closed").
			WithReportableDetails(map[string]interface{}{
				"session_id":     s.ID,
				"session_status": string(s.SessionStatus),
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	endTime := lo.FromPtrOr(req.EndTime, time.Now().UTC())
	meterStart := lo.FromPtrOr(s.MeterStart, 0)

	s.EndTime = lo.ToPtr(endTime)
	s.MeterStop = lo.ToPtr(req.MeterStop)
	s.EnergyKwh = billing.EnergyFromMeterDelta(meterStart, req.MeterStop)
	s.DurationSeconds = int64(endTime.Sub(s.StartTime).Seconds())
	s.IdleSeconds = req.IdleSeconds

	// Billing failure must never block session closure: the error is recorded
	// and the session still completes, leaving clearing PENDING as usual.
	if _, err := svc.billing.BillSession(ctx, s); err != nil {
		svc.Logger.WithContext(ctx).Errorw("billing failed on inbound close",
			"session_id", s.ID, "error", err)
		s.BillingStatus = types.BillingStatusBillingError
		s.BillingError = lo.ToPtr(err.Error())
	} else {
		s.BilledAt = lo.ToPtr(time.Now().UTC())
	}

	s.SessionStatus = types.SessionStatusCompleted
	s.UpdatedAt = time.Now().UTC()

	updated, err := svc.SessionRepo.Update(ctx, s)
	if err != nil {
		return nil, err
	}
	svc.publishSessionEvent(ctx, webhook.EventSessionClosed, updated)

	svc.Logger.WithContext(ctx).Infow("closed inbound session",
		"session_id", updated.ID,
		"energy_kwh", updated.EnergyKwh.String(),
		"billing_status", string(updated.BillingStatus),
	)
	return &dto.SessionResponse{ChargingSession: updated}, nil
}

func (svc *sessionService) CreateOutboundSession(ctx context.Context, req *dto.CreateOutboundSessionRequest) (*dto.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s := req.ToSession(ctx, svc.Config.Roaming.Provider)

	// Insert first: only the create that wins the uniqueness race places the
	// hold, so a duplicate delivery never double-authorizes the driver's funds.
	stored, created, err := svc.SessionRepo.CreateIdempotent(ctx, s)
	if err != nil {
		return nil, err
	}
	if !created {
		svc.Logger.WithContext(ctx).Infow("outbound session already exists, returning stored session",
			"session_id", stored.ID, "hubject_session_id", req.HubjectSessionID)
		return &dto.SessionResponse{ChargingSession: stored}, nil
	}

	// Hold failure is non-fatal: the session is still created and the hold
	// can be retried later.
	hold, err := svc.PaymentGateway.CreateHold(ctx, req.EndUserID, req.EstimatedAmount, stored.Currency)
	if err != nil {
		svc.Logger.WithContext(ctx).Warnw("payment hold failed on outbound create",
			"hubject_session_id", req.HubjectSessionID, "error", err)
		stored.PaymentStatus = types.PaymentStatusFailed
		stored.PaymentError = lo.ToPtr(err.Error())
	} else {
		stored.PaymentStatus = types.PaymentStatusHold
		stored.PaymentIntentID = lo.ToPtr(hold.PaymentIntentID)
	}
	stored.UpdatedAt = time.Now().UTC()

	updated, err := svc.SessionRepo.Update(ctx, stored)
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{ChargingSession: updated}, nil
}

func (svc *sessionService) CloseOutboundSession(ctx context.Context, req *dto.CloseOutboundSessionRequest) (*dto.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s, err := svc.SessionRepo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if s.SessionStatus != types.SessionStatusActive {
		return nil, ierr.NewError("session is not active").
			WithHint("Only an active session can be closed").
			WithReportableDetails(map[string]interface{}{
				"session_id":     s.ID,
				"session_status": string(s.SessionStatus),
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	// The CDR is authoritative for outbound telemetry.
	s.EnergyKwh = req.Cdr.EnergyKwh
	s.DurationSeconds = req.Cdr.DurationSeconds
	s.EndTime = lo.ToPtr(lo.FromPtrOr(req.EndTime, time.Now().UTC()))
	if req.Cdr.Currency != "" {
		s.Currency = req.Cdr.Currency
	}

	svc.billOutbound(ctx, s, req.Cdr)

	s.SessionStatus = types.SessionStatusCompleted
	s.UpdatedAt = time.Now().UTC()

	// Capture only once billing is committed state on the session; capture
	// failure is recorded without rolling billing back.
	if s.BillingStatus == types.BillingStatusBilled {
		svc.captureOutbound(ctx, s)
	}

	updated, err := svc.SessionRepo.Update(ctx, s)
	if err != nil {
		return nil, err
	}
	svc.publishSessionEvent(ctx, webhook.EventSessionClosed, updated)

	svc.Logger.WithContext(ctx).Infow("closed outbound session",
		"session_id", updated.ID,
		"billing_status", string(updated.BillingStatus),
		"payment_status", string(updated.PaymentStatus),
	)
	return &dto.SessionResponse{ChargingSession: updated}, nil
}

// billOutbound computes billing from the CDR-sourced telemetry. The local
// operator does not own the remote station and earns nothing from the session,
// so the operator earning is forced to zero and the platform keeps the gross.
func (svc *sessionService) billOutbound(ctx context.Context, s *session.ChargingSession, cdr clearing.CDR) {
	if s.TariffSnapshot == nil {
		// No local tariff was frozen at creation; the CDR gross stands alone.
		s.GrossAmount = types.RoundToCents(cdr.GrossAmount)
		s.MsFeeAmount = s.GrossAmount
		s.SubCpoEarningAmount = decimal.Zero
		s.BillingStatus = types.BillingStatusBilled
		s.BilledAt = lo.ToPtr(time.Now().UTC())
		return
	}

	if _, err := svc.billing.BillSession(ctx, s); err != nil {
		svc.Logger.WithContext(ctx).Errorw("billing failed on outbound close",
			"session_id", s.ID, "error", err)
		s.BillingStatus = types.BillingStatusBillingError
		s.BillingError = lo.ToPtr(err.Error())
		return
	}

	s.SubCpoEarningAmount = decimal.Zero
	s.MsFeeAmount = s.GrossAmount
	s.BilledAt = lo.ToPtr(time.Now().UTC())
}

func (svc *sessionService) captureOutbound(ctx context.Context, s *session.ChargingSession) {
	capture, err := svc.PaymentGateway.CapturePayment(ctx, s.ID, s.GrossAmount)
	if err != nil {
		svc.Logger.WithContext(ctx).Warnw("payment capture failed on outbound close",
			"session_id", s.ID, "error", err)
		s.PaymentStatus = types.PaymentStatusFailed
		s.PaymentError = lo.ToPtr(err.Error())
		return
	}
	s.PaymentStatus = types.PaymentStatusCaptured
	s.PaidAt = lo.ToPtr(time.Now().UTC())
	svc.Logger.WithContext(ctx).Debugw("captured outbound payment",
		"session_id", s.ID, "amount", capture.Amount.String())
}

func (svc *sessionService) MatchCdrWithSession(ctx context.Context, req *dto.MatchCdrRequest) (*dto.SettlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s, err := svc.SessionRepo.GetByHubjectSessionID(ctx, req.HubjectSessionID)
	if err != nil {
		return nil, err
	}

	return svc.clearing.ReconcileSettlement(ctx, &dto.ReconcileSettlementRequest{
		SessionID:         s.ID,
		CounterpartID:     req.HubjectSessionID,
		CdrData:           req.CdrData,
		ClearingReference: req.ClearingReference,
		SettledAt:         req.SettledAt,
	})
}

func (svc *sessionService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("session id is required").
			WithHint("Please provide a valid session ID").
			Mark(ierr.ErrValidation)
	}
	s, err := svc.SessionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{ChargingSession: s}, nil
}

func (svc *sessionService) ListSessions(ctx context.Context, filter *types.ChargingSessionFilter) (*dto.ListSessionsResponse, error) {
	if filter == nil {
		filter = types.NewChargingSessionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if filter.WorkspaceID == "" {
		filter.WorkspaceID = types.GetWorkspaceID(ctx)
	}

	sessions, err := svc.SessionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(sessions, func(s *session.ChargingSession, _ int) *dto.SessionResponse {
		return &dto.SessionResponse{ChargingSession: s}
	})
	return &dto.ListSessionsResponse{
		Items: items,
		Pagination: types.PaginationResponse{
			Limit:  filter.GetLimit(),
			Offset: filter.GetOffset(),
			Total:  len(items),
		},
	}, nil
}

func (svc *sessionService) publishSessionEvent(ctx context.Context, eventName string, s *session.ChargingSession) {
	if err := svc.WebhookPublisher.Publish(ctx, eventName, payload.NewSessionEventPayload(s)); err != nil {
		svc.Logger.WithContext(ctx).Warnw("failed to publish session webhook",
			"session_id", s.ID, "event_name", eventName, "error", err)
	}
}
