package service

import (
	"context"
	"strings"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	"github.com/voltbridge/voltbridge/internal/domain/clearing"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/voltbridge/voltbridge/internal/webhook"
	"github.com/voltbridge/voltbridge/internal/webhook/payload"
	"github.com/samber/lo"
)

// ClearingService reconciles locally recorded sessions against the roaming
// clearinghouse's authoritative settlement records.
type ClearingService interface {
	// ReconcileSettlement verifies the envelope's CDR against the session and
	// transitions its clearing status. A match settles the session and adopts
	// the CDR's financial values; a mismatch marks it DISPUTED and leaves the
	// locally computed amounts untouched.
	ReconcileSettlement(ctx context.Context, req *dto.ReconcileSettlementRequest) (*dto.SettlementResponse, error)
}

type clearingService struct {
	ServiceParams
}

func NewClearingService(params ServiceParams) ClearingService {
	return &clearingService{ServiceParams: params}
}

func (svc *clearingService) ReconcileSettlement(ctx context.Context, req *dto.ReconcileSettlementRequest) (*dto.SettlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	envelope := req.ToEnvelope()
	if err := envelope.Validate(); err != nil {
		return nil, err
	}

	s, err := svc.SessionRepo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if s.HubjectSessionID == nil || *s.HubjectSessionID != envelope.CounterpartID {
		return nil, ierr.NewError("settlement counterpart id does not match session").
			WithHint("The settlement references a different roaming session").
			WithReportableDetails(map[string]interface{}{
				"session_id":     s.ID,
				"counterpart_id": envelope.CounterpartID,
			}).
			Mark(ierr.ErrIdempotencyConflict)
	}

	// A settled session is final; a disputed one may be re-reconciled with a
	// corrected settlement.
	if s.ClearingStatus == types.ClearingStatusSettled {
		return nil, ierr.NewError("session is already settled").
			WithHint("A settled session cannot be reconciled again").
			WithReportableDetails(map[string]interface{}{
				"session_id":      s.ID,
				"clearing_status": string(s.ClearingStatus),
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	report := clearing.VerifyCdrMatch(s, envelope.CdrData)

	var eventName string
	if report.Match {
		svc.applySettled(s, envelope)
		eventName = webhook.EventSessionSettled
	} else {
		svc.applyDisputed(s, envelope, report)
		eventName = webhook.EventSessionDisputed
	}

	updated, err := svc.SessionRepo.Update(ctx, s)
	if err != nil {
		return nil, err
	}

	if err := svc.WebhookPublisher.Publish(ctx, eventName, payload.NewSessionEventPayload(updated)); err != nil {
		svc.Logger.WithContext(ctx).Warnw("failed to publish settlement webhook",
			"session_id", updated.ID, "event_name", eventName, "error", err)
	}

	svc.Logger.WithContext(ctx).Infow("reconciled settlement",
		"session_id", updated.ID,
		"clearing_status", string(updated.ClearingStatus),
		"match", report.Match,
	)
	return &dto.SettlementResponse{Session: updated, Report: report}, nil
}

// applySettled adopts the CDR as authoritative: the session's own telemetry
// and gross are overwritten with the external values.
func (svc *clearingService) applySettled(s *session.ChargingSession, envelope clearing.SettlementEnvelope) {
	amounts := clearing.CalculateClearingAmounts(s, envelope.CdrData)

	s.EnergyKwh = envelope.CdrData.EnergyKwh
	s.DurationSeconds = envelope.CdrData.DurationSeconds
	s.GrossAmount = amounts.GrossAmount
	if envelope.CdrData.Currency != "" {
		s.Currency = envelope.CdrData.Currency
	}

	s.ClearingStatus = types.ClearingStatusSettled
	s.RoamingGrossAmount = lo.ToPtr(amounts.GrossAmount)
	s.RoamingNetAmount = lo.ToPtr(amounts.NetAmount)
	s.ClearingReference = lo.ToPtr(clearingReference(envelope))
	s.SettledAt = lo.ToPtr(envelope.SettledAt)
	s.DisputeReason = nil
}

// applyDisputed records the mismatch without touching financial fields: the
// locally computed amounts remain authoritative pending manual resolution.
func (svc *clearingService) applyDisputed(s *session.ChargingSession, envelope clearing.SettlementEnvelope, report clearing.MatchReport) {
	s.ClearingStatus = types.ClearingStatusDisputed
	s.DisputeReason = lo.ToPtr(strings.Join(report.Mismatches, "; "))

	// External amounts are stored for visibility only.
	s.RoamingGrossAmount = lo.ToPtr(envelope.CdrData.GrossAmount)
	if envelope.CdrData.NetAmount != nil {
		s.RoamingNetAmount = lo.ToPtr(*envelope.CdrData.NetAmount)
	}
	s.ClearingReference = lo.ToPtr(clearingReference(envelope))
}

func clearingReference(envelope clearing.SettlementEnvelope) string {
	if envelope.ClearingReference != "" {
		return envelope.ClearingReference
	}
	if envelope.CdrData.ClearingReference != "" {
		return envelope.CdrData.ClearingReference
	}
	return types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLEARING_REFERENCE)
}
