package shift

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const shiftColumns = `id, tenant_id, branch_id, register_id, shift_number, status, opening_balance,
	started_by, started_at, ended_by, ended_at,
	order_count, customer_count, total_sales, total_discounts, total_tax, total_refunds,
	cash_sales, card_sales, other_sales, cash_refunds,
	expected_cash, expected_card, expected_other,
	actual_cash, actual_card, actual_other,
	variance_cash, variance_card, variance_other, total_variance, variance_warning,
	notes, created_at, updated_at`

func (r *postgresRepo) CreateShift(ctx context.Context, s *Shift) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Per-branch daily sequence for the human-readable shift number.
	var seq int
	day := time.Now().Format("20060102")
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)+1 FROM shifts
		WHERE tenant_id=$1 AND branch_id=$2 AND started_at::date = CURRENT_DATE`,
		s.TenantID, s.BranchID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("shift sequence: %w", err)
	}
	s.ShiftNumber = fmt.Sprintf("SHF-%s-%02d", day, seq)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shifts (id, tenant_id, branch_id, register_id, shift_number, status, opening_balance, started_by, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		s.ID, s.TenantID, s.BranchID, nullableString(s.RegisterID), s.ShiftNumber, s.Status, s.OpeningBalance, s.StartedBy)
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}

	if err := insertAudit(ctx, tx, s, "open"); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, tenantID, shiftID uuid.UUID) (*Shift, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id=$1 AND tenant_id=$2`, shiftID, tenantID)
	return scanShift(row)
}

func (r *postgresRepo) GetOpenShift(ctx context.Context, tenantID, branchID uuid.UUID) (*Shift, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE tenant_id=$1 AND branch_id=$2 AND status='open'`,
		tenantID, branchID)
	return scanShift(row)
}

func (r *postgresRepo) WindowTotals(ctx context.Context, tenantID, branchID uuid.UUID, from, to time.Time) (*WindowTotals, error) {
	w := &WindowTotals{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status != 'refunded'),
		       COALESCE(SUM(guest_count) FILTER (WHERE status != 'refunded'),0),
		       COALESCE(SUM(total) FILTER (WHERE status != 'refunded'),0),
		       COALESCE(SUM(discount_amount) FILTER (WHERE status != 'refunded'),0),
		       COALESCE(SUM(tax_amount) FILTER (WHERE status != 'refunded'),0),
		       COALESCE(SUM(total) FILTER (WHERE status = 'refunded'),0)
		FROM orders
		WHERE tenant_id=$1 AND branch_id=$2 AND created_at >= $3 AND created_at < $4
		  AND status NOT IN ('cancelled','voided')`,
		tenantID, branchID, from, to).
		Scan(&w.OrderCount, &w.CustomerCount, &w.TotalSales, &w.TotalDiscounts, &w.TotalTax, &w.TotalRefunds)
	if err != nil {
		return nil, fmt.Errorf("order window: %w", err)
	}

	var paymentCount int
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(amount) FILTER (WHERE method='cash' AND status='completed'),0),
		       COALESCE(SUM(amount) FILTER (WHERE method='card' AND status='completed'),0),
		       COALESCE(SUM(amount) FILTER (WHERE method NOT IN ('cash','card') AND status='completed'),0),
		       COALESCE(SUM(amount) FILTER (WHERE method='cash' AND status='refunded'),0)
		FROM payments
		WHERE tenant_id=$1 AND branch_id=$2 AND created_at >= $3 AND created_at < $4`,
		tenantID, branchID, from, to).
		Scan(&paymentCount, &w.CashSales, &w.CardSales, &w.OtherSales, &w.CashRefunds)
	if err != nil {
		return nil, fmt.Errorf("payment window: %w", err)
	}
	w.HasTenderBreakdown = paymentCount > 0
	return w, nil
}

func (r *postgresRepo) CloseShift(ctx context.Context, s *Shift, action string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM shifts WHERE id=$1 AND tenant_id=$2 FOR UPDATE`,
		s.ID, s.TenantID).Scan(&status)
	if err != nil {
		return err
	}
	if status != StatusOpen {
		return fmt.Errorf("shift_not_open: shift %s is %s", s.ShiftNumber, status)
	}

	if err := updateFigures(ctx, tx, s); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, s, action); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) ReconcileShift(ctx context.Context, s *Shift) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM shifts WHERE id=$1 AND tenant_id=$2 FOR UPDATE`,
		s.ID, s.TenantID).Scan(&status)
	if err != nil {
		return err
	}
	if status != StatusClosed {
		return fmt.Errorf("shift_not_closed: shift %s is %s", s.ShiftNumber, status)
	}

	if err := updateFigures(ctx, tx, s); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, s, "reconcile"); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) ListByBranch(ctx context.Context, tenantID, branchID uuid.UUID, limit int) ([]*Shift, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts
		WHERE tenant_id=$1 AND branch_id=$2 ORDER BY started_at DESC LIMIT $3`,
		tenantID, branchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

func (r *postgresRepo) ListAudit(ctx context.Context, tenantID, shiftID uuid.UUID) ([]*AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.shift_id, a.action, a.actor_id, a.figures, a.created_at
		FROM shift_audit a JOIN shifts s ON s.id = a.shift_id
		WHERE a.shift_id=$1 AND s.tenant_id=$2 ORDER BY a.created_at ASC`,
		shiftID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		rec := &AuditRecord{}
		if err := rows.Scan(&rec.ID, &rec.ShiftID, &rec.Action, &rec.ActorID, &rec.Figures, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func updateFigures(ctx context.Context, tx *sql.Tx, s *Shift) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE shifts SET
			status=$1, ended_by=$2, ended_at=COALESCE(ended_at, NOW()),
			order_count=$3, customer_count=$4, total_sales=$5, total_discounts=$6, total_tax=$7, total_refunds=$8,
			cash_sales=$9, card_sales=$10, other_sales=$11, cash_refunds=$12,
			expected_cash=$13, expected_card=$14, expected_other=$15,
			actual_cash=$16, actual_card=$17, actual_other=$18,
			variance_cash=$19, variance_card=$20, variance_other=$21, total_variance=$22, variance_warning=$23,
			notes=$24, updated_at=NOW()
		WHERE id=$25 AND tenant_id=$26`,
		s.Status, s.EndedBy,
		s.OrderCount, s.CustomerCount, s.TotalSales, s.TotalDiscounts, s.TotalTax, s.TotalRefunds,
		s.CashSales, s.CardSales, s.OtherSales, s.CashRefunds,
		s.ExpectedCash, s.ExpectedCard, s.ExpectedOther,
		s.ActualCash, s.ActualCard, s.ActualOther,
		s.VarianceCash, s.VarianceCard, s.VarianceOther, s.TotalVariance, s.VarianceWarning,
		nullableString(s.Notes), s.ID, s.TenantID)
	if err != nil {
		return fmt.Errorf("update shift figures: %w", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, s *Shift, action string) error {
	actor := s.StartedBy
	if s.EndedBy != nil {
		actor = *s.EndedBy
	}
	figures, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal audit figures: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO shift_audit (id, shift_id, action, actor_id, figures)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), s.ID, action, actor, figures)
	if err != nil {
		return fmt.Errorf("insert shift audit: %w", err)
	}
	return nil
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanShift(row rowScanner) (*Shift, error) {
	s := &Shift{}
	var registerID, notes sql.NullString
	var endedBy sql.NullString
	var endedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.TenantID, &s.BranchID, &registerID, &s.ShiftNumber, &s.Status, &s.OpeningBalance,
		&s.StartedBy, &s.StartedAt, &endedBy, &endedAt,
		&s.OrderCount, &s.CustomerCount, &s.TotalSales, &s.TotalDiscounts, &s.TotalTax, &s.TotalRefunds,
		&s.CashSales, &s.CardSales, &s.OtherSales, &s.CashRefunds,
		&s.ExpectedCash, &s.ExpectedCard, &s.ExpectedOther,
		&s.ActualCash, &s.ActualCard, &s.ActualOther,
		&s.VarianceCash, &s.VarianceCard, &s.VarianceOther, &s.TotalVariance, &s.VarianceWarning,
		&notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.RegisterID = registerID.String
	s.Notes = notes.String
	if endedBy.Valid {
		id, err := uuid.Parse(endedBy.String)
		if err == nil {
			s.EndedBy = &id
		}
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
