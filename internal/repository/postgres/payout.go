package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/payout"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/postgres"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/jackc/pgx/v5"
)

const statementColumns = `
	id, workspace_id, period_start, period_end, statement_status,
	total_sessions, total_energy_kwh, total_gross_amount, total_ms_fee_amount,
	total_earning, currency,
	issued_at, paid_at, payment_reference, paid_amount,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const lineItemColumns = `
	id, statement_id, session_id, session_start_time, station_label,
	energy_kwh, gross_amount, ms_fee_amount, sub_cpo_earning_amount, currency,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

type payoutRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewPayoutRepository returns a pgx-backed payout statement repository.
func NewPayoutRepository(client *postgres.Client, log *logger.Logger) payout.Repository {
	return &payoutRepository{client: client, log: log}
}

func (r *payoutRepository) Create(ctx context.Context, st *payout.Statement) (*payout.Statement, error) {
	query := `
		INSERT INTO payout_statements (` + strings.TrimSpace(statementColumns) + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21)`

	_, err := r.client.Querier(ctx).Exec(ctx, query,
		st.ID, st.WorkspaceID, st.PeriodStart, st.PeriodEnd, st.StatementStatus,
		st.TotalSessions, st.TotalEnergyKwh, st.TotalGrossAmount, st.TotalMsFeeAmount,
		st.TotalEarning, st.Currency,
		st.IssuedAt, st.PaidAt, st.PaymentReference, st.PaidAmount,
		st.TenantID, st.Status, st.CreatedAt, st.UpdatedAt, st.CreatedBy, st.UpdatedBy,
	)
	if err != nil {
		// The partial unique index on (workspace_id, period_start, period_end)
		// for non-cancelled statements enforces one live statement per period.
		if isUniqueViolation(err) {
			return nil, ierr.WithError(err).
				WithHint("A statement already covers this workspace and period").
				Mark(ierr.ErrAlreadyExists)
		}
		return nil, wrapDBError(err, "Failed to create payout statement")
	}

	if err := r.insertLineItems(ctx, st.ID, st.LineItems); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *payoutRepository) Get(ctx context.Context, id string) (*payout.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM payout_statements WHERE id = $1 AND status != $2`
	st, err := scanStatement(r.client.Querier(ctx).QueryRow(ctx, query, id, types.StatusDeleted))
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("payout statement not found").
				WithHint("Payout statement not found").
				WithReportableDetails(map[string]interface{}{
					"id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "Failed to fetch payout statement")
	}

	items, err := r.listLineItems(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	st.LineItems = items
	return st, nil
}

func (r *payoutRepository) GetByPeriod(ctx context.Context, workspaceID string, periodStart, periodEnd time.Time) (*payout.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM payout_statements
		WHERE workspace_id = $1 AND period_start = $2 AND period_end = $3
		  AND statement_status != $4 AND status != $5`
	st, err := scanStatement(r.client.Querier(ctx).QueryRow(ctx, query,
		workspaceID, periodStart, periodEnd,
		types.PayoutStatementStatusCancelled, types.StatusDeleted))
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("payout statement not found").
				WithHint("No statement covers this period").
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "Failed to fetch payout statement")
	}

	items, err := r.listLineItems(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	st.LineItems = items
	return st, nil
}

func (r *payoutRepository) Update(ctx context.Context, st *payout.Statement) (*payout.Statement, error) {
	query := `
		UPDATE payout_statements SET
			statement_status = $2,
			total_sessions = $3, total_energy_kwh = $4, total_gross_amount = $5,
			total_ms_fee_amount = $6, total_earning = $7, currency = $8,
			issued_at = $9, paid_at = $10, payment_reference = $11, paid_amount = $12,
			status = $13, updated_at = $14, updated_by = $15
		WHERE id = $1`

	tag, err := r.client.Querier(ctx).Exec(ctx, query,
		st.ID, st.StatementStatus,
		st.TotalSessions, st.TotalEnergyKwh, st.TotalGrossAmount,
		st.TotalMsFeeAmount, st.TotalEarning, st.Currency,
		st.IssuedAt, st.PaidAt, st.PaymentReference, st.PaidAmount,
		st.Status, time.Now().UTC(), st.UpdatedBy,
	)
	if err != nil {
		return nil, wrapDBError(err, "Failed to update payout statement")
	}
	if tag.RowsAffected() == 0 {
		return nil, ierr.NewError("payout statement not found").
			WithHint("Payout statement not found").
			WithReportableDetails(map[string]interface{}{
				"id": st.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return st, nil
}

func (r *payoutRepository) ReplaceLineItems(ctx context.Context, statementID string, items []*payout.LineItem) error {
	q := r.client.Querier(ctx)
	if _, err := q.Exec(ctx,
		`DELETE FROM payout_statement_line_items WHERE statement_id = $1`, statementID); err != nil {
		return wrapDBError(err, "Failed to clear statement line items")
	}
	return r.insertLineItems(ctx, statementID, items)
}

func (r *payoutRepository) insertLineItems(ctx context.Context, statementID string, items []*payout.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO payout_statement_line_items (` + strings.TrimSpace(lineItemColumns) + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	q := r.client.Querier(ctx)
	for _, li := range items {
		_, err := q.Exec(ctx, query,
			li.ID, statementID, li.SessionID, li.SessionStartTime, li.StationLabel,
			li.EnergyKwh, li.GrossAmount, li.MsFeeAmount, li.SubCpoEarningAmount, li.Currency,
			li.TenantID, li.Status, li.CreatedAt, li.UpdatedAt, li.CreatedBy, li.UpdatedBy,
		)
		if err != nil {
			return wrapDBError(err, "Failed to insert statement line item")
		}
	}
	return nil
}

func (r *payoutRepository) listLineItems(ctx context.Context, statementID string) ([]*payout.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM payout_statement_line_items
		WHERE statement_id = $1 ORDER BY session_start_time ASC`

	rows, err := r.client.Querier(ctx).Query(ctx, query, statementID)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list statement line items")
	}
	defer rows.Close()

	var items []*payout.LineItem
	for rows.Next() {
		var li payout.LineItem
		if err := rows.Scan(
			&li.ID, &li.StatementID, &li.SessionID, &li.SessionStartTime, &li.StationLabel,
			&li.EnergyKwh, &li.GrossAmount, &li.MsFeeAmount, &li.SubCpoEarningAmount, &li.Currency,
			&li.TenantID, &li.Status, &li.CreatedAt, &li.UpdatedAt, &li.CreatedBy, &li.UpdatedBy,
		); err != nil {
			return nil, wrapDBError(err, "Failed to scan statement line item")
		}
		items = append(items, &li)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "Failed to read statement line items")
	}
	return items, nil
}

func (r *payoutRepository) List(ctx context.Context, filter *types.PayoutStatementFilter) ([]*payout.Statement, error) {
	if filter == nil {
		filter = types.NewPayoutStatementFilter()
	}
	where, args := payoutWhere(filter)

	query := `SELECT ` + statementColumns + ` FROM payout_statements ` + where +
		` ORDER BY created_at DESC`
	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	rows, err := r.client.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list payout statements")
	}
	defer rows.Close()

	var statements []*payout.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, wrapDBError(err, "Failed to scan payout statement")
		}
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "Failed to read payout statements")
	}
	return statements, nil
}

func (r *payoutRepository) Count(ctx context.Context, filter *types.PayoutStatementFilter) (int, error) {
	if filter == nil {
		filter = types.NewPayoutStatementFilter()
	}
	where, args := payoutWhere(filter)

	var count int
	err := r.client.Querier(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM payout_statements `+where, args...).Scan(&count)
	if err != nil {
		return 0, wrapDBError(err, "Failed to count payout statements")
	}
	return count, nil
}

func payoutWhere(filter *types.PayoutStatementFilter) (string, []any) {
	conds := []string{"status != $1"}
	args := []any{types.StatusDeleted}

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.WorkspaceID != "" {
		add("workspace_id = $%d", filter.WorkspaceID)
	}
	if filter.StatementStatus != nil {
		add("statement_status = $%d", *filter.StatementStatus)
	}
	if filter.PeriodStart != nil {
		add("period_start >= $%d", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		add("period_end <= $%d", *filter.PeriodEnd)
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanStatement(row pgx.Row) (*payout.Statement, error) {
	var st payout.Statement
	err := row.Scan(
		&st.ID, &st.WorkspaceID, &st.PeriodStart, &st.PeriodEnd, &st.StatementStatus,
		&st.TotalSessions, &st.TotalEnergyKwh, &st.TotalGrossAmount, &st.TotalMsFeeAmount,
		&st.TotalEarning, &st.Currency,
		&st.IssuedAt, &st.PaidAt, &st.PaymentReference, &st.PaidAmount,
		&st.TenantID, &st.Status, &st.CreatedAt, &st.UpdatedAt, &st.CreatedBy, &st.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
