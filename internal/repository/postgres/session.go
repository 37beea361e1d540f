package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/postgres"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/jackc/pgx/v5"
)

// sessionColumns is the canonical column list shared by every session query.
const sessionColumns = `
	id, workspace_id, station_id, station_name, connector_id, end_user_id,
	session_status, hubject_session_id,
	start_time, end_time, meter_start, meter_stop,
	energy_kwh, duration_seconds, idle_seconds,
	tariff_snapshot,
	billing_status, gross_amount, ms_fee_amount, sub_cpo_earning_amount,
	currency, billed_at, billing_error, billing_record,
	roaming_type, roaming_provider,
	clearing_status, clearing_reference, dispute_reason,
	roaming_gross_amount, roaming_net_amount, settled_at,
	payment_status, payment_intent_id, payment_error, paid_at,
	payout_statement_id,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

type sessionRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewSessionRepository returns a pgx-backed session repository.
func NewSessionRepository(client *postgres.Client, log *logger.Logger) session.Repository {
	return &sessionRepository{client: client, log: log}
}

func (r *sessionRepository) Create(ctx context.Context, s *session.ChargingSession) (*session.ChargingSession, error) {
	if err := r.insert(ctx, s, false); err != nil {
		if isUniqueViolation(err) {
			return nil, ierr.WithError(err).
				WithHint("A session with this id already exists").
				WithReportableDetails(map[string]interface{}{
					"id": s.ID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return nil, wrapDBError(err, "Failed to create session")
	}
	return s, nil
}

func (r *sessionRepository) CreateIdempotent(ctx context.Context, s *session.ChargingSession) (*session.ChargingSession, bool, error) {
	if s.HubjectSessionID == nil || *s.HubjectSessionID == "" {
		return nil, false, ierr.NewError("session has no hubject session id").
			WithHint("Idempotent create requires a roaming session id").
			Mark(ierr.ErrValidation)
	}

	err := r.insert(ctx, s, true)
	if err == nil {
		return s, true, nil
	}
	// ON CONFLICT DO NOTHING yields no row; any concurrent duplicate collapses
	// onto the stored session.
	if isNoRows(err) {
		stored, gerr := r.GetByHubjectSessionID(ctx, *s.HubjectSessionID)
		if gerr != nil {
			return nil, false, gerr
		}
		return stored, false, nil
	}
	return nil, false, wrapDBError(err, "Failed to create session")
}

// sessionInsertQuery builds the INSERT statement. The unique index on
// hubject_session_id is partial, so the ON CONFLICT clause must repeat the
// index predicate for Postgres to accept it as the conflict arbiter.
func sessionInsertQuery(onConflictNothing bool) string {
	query := `
		INSERT INTO charging_sessions (` + strings.TrimSpace(sessionColumns) + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43)`
	if onConflictNothing {
		query += `
		ON CONFLICT (hubject_session_id) WHERE hubject_session_id IS NOT NULL DO NOTHING
		RETURNING id`
	}
	return query
}

func (r *sessionRepository) insert(ctx context.Context, s *session.ChargingSession, onConflictNothing bool) error {
	snapshotBlob, err := marshalSnapshot(s.TariffSnapshot)
	if err != nil {
		return err
	}

	query := sessionInsertQuery(onConflictNothing)

	args := []any{
		s.ID, s.WorkspaceID, s.StationID, s.StationName, s.ConnectorID, s.EndUserID,
		s.SessionStatus, s.HubjectSessionID,
		s.StartTime, s.EndTime, s.MeterStart, s.MeterStop,
		s.EnergyKwh, s.DurationSeconds, s.IdleSeconds,
		snapshotBlob,
		s.BillingStatus, s.GrossAmount, s.MsFeeAmount, s.SubCpoEarningAmount,
		s.Currency, s.BilledAt, s.BillingError, s.BillingRecord,
		s.RoamingType, s.RoamingProvider,
		s.ClearingStatus, s.ClearingReference, s.DisputeReason,
		s.RoamingGrossAmount, s.RoamingNetAmount, s.SettledAt,
		s.PaymentStatus, s.PaymentIntentID, s.PaymentError, s.PaidAt,
		s.PayoutStatementID,
		s.TenantID, s.Status, s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy,
	}

	q := r.client.Querier(ctx)
	if onConflictNothing {
		var id string
		return q.QueryRow(ctx, query, args...).Scan(&id)
	}
	_, err = q.Exec(ctx, query, args...)
	return err
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*session.ChargingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM charging_sessions WHERE id = $1 AND status != $2`
	s, err := scanSession(r.client.Querier(ctx).QueryRow(ctx, query, id, types.StatusDeleted))
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("session not found").
				WithHint("Session not found").
				WithReportableDetails(map[string]interface{}{
					"id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "Failed to fetch session")
	}
	return s, nil
}

func (r *sessionRepository) GetByHubjectSessionID(ctx context.Context, hubjectSessionID string) (*session.ChargingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM charging_sessions WHERE hubject_session_id = $1 AND status != $2`
	s, err := scanSession(r.client.Querier(ctx).QueryRow(ctx, query, hubjectSessionID, types.StatusDeleted))
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("session not found").
				WithHint("No session with this roaming session id").
				WithReportableDetails(map[string]interface{}{
					"hubject_session_id": hubjectSessionID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "Failed to fetch session")
	}
	return s, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *session.ChargingSession) (*session.ChargingSession, error) {
	snapshotBlob, err := marshalSnapshot(s.TariffSnapshot)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE charging_sessions SET
			session_status = $2,
			end_time = $3, meter_stop = $4,
			energy_kwh = $5, duration_seconds = $6, idle_seconds = $7,
			tariff_snapshot = $8,
			billing_status = $9, gross_amount = $10, ms_fee_amount = $11,
			sub_cpo_earning_amount = $12, currency = $13,
			billed_at = $14, billing_error = $15, billing_record = $16,
			clearing_status = $17, clearing_reference = $18, dispute_reason = $19,
			roaming_gross_amount = $20, roaming_net_amount = $21, settled_at = $22,
			payment_status = $23, payment_intent_id = $24, payment_error = $25, paid_at = $26,
			payout_statement_id = $27,
			status = $28, updated_at = $29, updated_by = $30
		WHERE id = $1`

	tag, err := r.client.Querier(ctx).Exec(ctx, query,
		s.ID, s.SessionStatus,
		s.EndTime, s.MeterStop,
		s.EnergyKwh, s.DurationSeconds, s.IdleSeconds,
		snapshotBlob,
		s.BillingStatus, s.GrossAmount, s.MsFeeAmount,
		s.SubCpoEarningAmount, s.Currency,
		s.BilledAt, s.BillingError, s.BillingRecord,
		s.ClearingStatus, s.ClearingReference, s.DisputeReason,
		s.RoamingGrossAmount, s.RoamingNetAmount, s.SettledAt,
		s.PaymentStatus, s.PaymentIntentID, s.PaymentError, s.PaidAt,
		s.PayoutStatementID,
		s.Status, time.Now().UTC(), s.UpdatedBy,
	)
	if err != nil {
		return nil, wrapDBError(err, "Failed to update session")
	}
	if tag.RowsAffected() == 0 {
		return nil, ierr.NewError("session not found").
			WithHint("Session not found").
			WithReportableDetails(map[string]interface{}{
				"id": s.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return s, nil
}

func (r *sessionRepository) List(ctx context.Context, filter *types.ChargingSessionFilter) ([]*session.ChargingSession, error) {
	if filter == nil {
		filter = types.NewChargingSessionFilter()
	}
	where, args := sessionWhere(filter)

	query := `SELECT ` + sessionColumns + ` FROM charging_sessions ` + where +
		` ORDER BY created_at DESC`
	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	rows, err := r.client.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list sessions")
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *sessionRepository) Count(ctx context.Context, filter *types.ChargingSessionFilter) (int, error) {
	if filter == nil {
		filter = types.NewChargingSessionFilter()
	}
	where, args := sessionWhere(filter)

	var count int
	err := r.client.Querier(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM charging_sessions `+where, args...).Scan(&count)
	if err != nil {
		return 0, wrapDBError(err, "Failed to count sessions")
	}
	return count, nil
}

func (r *sessionRepository) ListBilledInPeriod(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time) ([]*session.ChargingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM charging_sessions
		WHERE workspace_id = $1
		  AND session_status = $2
		  AND billing_status = $3
		  AND billed_at >= $4 AND billed_at < $5
		  AND status != $6
		ORDER BY billed_at ASC`

	rows, err := r.client.Querier(ctx).Query(ctx, query,
		workspaceID, types.SessionStatusCompleted, types.BillingStatusBilled,
		periodStart, periodEnd, types.StatusDeleted)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list billed sessions")
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *sessionRepository) ClaimForStatement(ctx context.Context, sessionIDs []string, statementID string) error {
	if len(sessionIDs) == 0 {
		return nil
	}

	// Conditional write: the claim only lands on sessions that are unclaimed
	// or already linked to this statement. A shortfall in affected rows means
	// another statement holds a claim.
	tag, err := r.client.Querier(ctx).Exec(ctx, `
		UPDATE charging_sessions
		SET payout_statement_id = $1, updated_at = $2
		WHERE id = ANY($3)
		  AND (payout_statement_id IS NULL OR payout_statement_id = $1)`,
		statementID, time.Now().UTC(), sessionIDs)
	if err != nil {
		return wrapDBError(err, "Failed to claim sessions")
	}
	if int(tag.RowsAffected()) != len(sessionIDs) {
		return ierr.NewError("session is claimed by another statement").
			WithHint("Some sessions are already included in a different payout statement").
			WithReportableDetails(map[string]interface{}{
				"statement_id": statementID,
				"requested":    len(sessionIDs),
				"claimed":      tag.RowsAffected(),
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *sessionRepository) ReleaseClaims(ctx context.Context, statementID string) error {
	_, err := r.client.Querier(ctx).Exec(ctx, `
		UPDATE charging_sessions
		SET payout_statement_id = NULL, updated_at = $2
		WHERE payout_statement_id = $1`,
		statementID, time.Now().UTC())
	if err != nil {
		return wrapDBError(err, "Failed to release session claims")
	}
	return nil
}

func sessionWhere(filter *types.ChargingSessionFilter) (string, []any) {
	conds := []string{"status != $1"}
	args := []any{types.StatusDeleted}

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.WorkspaceID != "" {
		add("workspace_id = $%d", filter.WorkspaceID)
	}
	if filter.SessionStatus != nil {
		add("session_status = $%d", *filter.SessionStatus)
	}
	if filter.BillingStatus != nil {
		add("billing_status = $%d", *filter.BillingStatus)
	}
	if filter.ClearingStatus != nil {
		add("clearing_status = $%d", *filter.ClearingStatus)
	}
	if filter.RoamingType != nil {
		add("roaming_type = $%d", *filter.RoamingType)
	}
	if filter.BilledAfter != nil {
		add("billed_at >= $%d", *filter.BilledAfter)
	}
	if filter.BilledBefore != nil {
		add("billed_at < $%d", *filter.BilledBefore)
	}
	if filter.PayoutStatement != nil {
		add("payout_statement_id = $%d", *filter.PayoutStatement)
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func marshalSnapshot(snapshot *tariff.Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return snapshot.Marshal()
}

func scanSessions(rows pgx.Rows) ([]*session.ChargingSession, error) {
	var sessions []*session.ChargingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrapDBError(err, "Failed to scan session")
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "Failed to read sessions")
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*session.ChargingSession, error) {
	var s session.ChargingSession
	var snapshotBlob []byte

	err := row.Scan(
		&s.ID, &s.WorkspaceID, &s.StationID, &s.StationName, &s.ConnectorID, &s.EndUserID,
		&s.SessionStatus, &s.HubjectSessionID,
		&s.StartTime, &s.EndTime, &s.MeterStart, &s.MeterStop,
		&s.EnergyKwh, &s.DurationSeconds, &s.IdleSeconds,
		&snapshotBlob,
		&s.BillingStatus, &s.GrossAmount, &s.MsFeeAmount, &s.SubCpoEarningAmount,
		&s.Currency, &s.BilledAt, &s.BillingError, &s.BillingRecord,
		&s.RoamingType, &s.RoamingProvider,
		&s.ClearingStatus, &s.ClearingReference, &s.DisputeReason,
		&s.RoamingGrossAmount, &s.RoamingNetAmount, &s.SettledAt,
		&s.PaymentStatus, &s.PaymentIntentID, &s.PaymentError, &s.PaidAt,
		&s.PayoutStatementID,
		&s.TenantID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(snapshotBlob) > 0 {
		snapshot, err := tariff.UnmarshalSnapshot(snapshotBlob)
		if err != nil {
			return nil, err
		}
		s.TariffSnapshot = &snapshot
	}
	return &s, nil
}
