package loyalty

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetOrderSnapshot(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderSnapshot, error) {
	o := &OrderSnapshot{}
	var customerID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, subtotal, total
		FROM orders WHERE id=$1 AND tenant_id=$2`, orderID, tenantID).
		Scan(&o.ID, &customerID, &o.Subtotal, &o.Total)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		cid, err := uuid.Parse(customerID.String)
		if err == nil {
			o.CustomerID = &cid
		}
	}
	return o, nil
}

const programColumns = `id, tenant_id, name, type, active, earn_rate, points_per_unit,
	ladder, stamp_goal, min_order_amount, created_at, updated_at`

func (r *postgresRepo) ListActivePrograms(ctx context.Context, tenantID uuid.UUID) ([]*Program, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+programColumns+` FROM loyalty_programs WHERE tenant_id=$1 AND active=true`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []*Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (r *postgresRepo) GetProgram(ctx context.Context, tenantID, programID uuid.UUID) (*Program, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM loyalty_programs WHERE id=$1 AND tenant_id=$2`, programID, tenantID)
	return scanProgram(row)
}

func (r *postgresRepo) GetMember(ctx context.Context, tenantID, programID, customerID uuid.UUID) (*Member, error) {
	m := &Member{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, program_id, customer_id, points_balance, cashback_balance, stamps, visit_count, created_at, updated_at
		FROM loyalty_members WHERE tenant_id=$1 AND program_id=$2 AND customer_id=$3`,
		tenantID, programID, customerID).
		Scan(&m.ID, &m.TenantID, &m.ProgramID, &m.CustomerID,
			&m.PointsBalance, &m.CashbackBalance, &m.Stamps, &m.VisitCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresRepo) ListMembers(ctx context.Context, tenantID, customerID uuid.UUID) ([]*Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, program_id, customer_id, points_balance, cashback_balance, stamps, visit_count, created_at, updated_at
		FROM loyalty_members WHERE tenant_id=$1 AND customer_id=$2`, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProgramID, &m.CustomerID,
			&m.PointsBalance, &m.CashbackBalance, &m.Stamps, &m.VisitCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *postgresRepo) HasOrderEntry(ctx context.Context, tenantID, programID, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM loyalty_ledger
			WHERE tenant_id=$1 AND program_id=$2 AND order_id=$3
			  AND type IN ('earn_points','earn_cashback','earn_stamp'))`,
		tenantID, programID, orderID).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) RecordAccrual(ctx context.Context, entry *LedgerEntry, a *Accrual) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var memberID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM loyalty_members
		WHERE tenant_id=$1 AND program_id=$2 AND customer_id=$3 FOR UPDATE`,
		entry.TenantID, entry.ProgramID, entry.CustomerID).Scan(&memberID)
	if err != nil {
		return err
	}

	// Re-check under the lock: a concurrent close may have already accrued.
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM loyalty_ledger
			WHERE tenant_id=$1 AND program_id=$2 AND order_id=$3
			  AND type IN ('earn_points','earn_cashback','earn_stamp'))`,
		entry.TenantID, entry.ProgramID, entry.OrderID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := insertLedger(ctx, tx, entry); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE loyalty_members
		SET points_balance = points_balance + $1,
		    cashback_balance = cashback_balance + $2,
		    stamps = stamps + $3,
		    visit_count = visit_count + 1,
		    updated_at = NOW()
		WHERE id = $4`,
		a.Points, a.Cashback, a.Stamps, memberID)
	if err != nil {
		return fmt.Errorf("update member balances: %w", err)
	}
	return tx.Commit()
}

func (r *postgresRepo) RecordConversion(ctx context.Context, entry *LedgerEntry, v *Voucher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var memberID uuid.UUID
	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT id, points_balance FROM loyalty_members
		WHERE tenant_id=$1 AND program_id=$2 AND customer_id=$3 FOR UPDATE`,
		entry.TenantID, entry.ProgramID, entry.CustomerID).Scan(&memberID, &balance)
	if err != nil {
		return err
	}
	if balance < -entry.Points {
		return fmt.Errorf("insufficient_points: balance %d, requested %d", balance, -entry.Points)
	}

	if err := insertLedger(ctx, tx, entry); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE loyalty_members
		SET points_balance = points_balance + $1, updated_at = NOW()
		WHERE id = $2`, entry.Points, memberID)
	if err != nil {
		return fmt.Errorf("deduct points: %w", err)
	}

	allowed := make([]string, len(v.AllowedCustomerIDs))
	for i, id := range v.AllowedCustomerIDs {
		allowed[i] = id.String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vouchers (id, tenant_id, code, discount_type, value, max_discount_amount,
			min_order_amount, uses_remaining, active, expires_at, allowed_customer_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.TenantID, v.Code, v.DiscountType, v.Value, v.MaxDiscountAmount,
		v.MinOrderAmount, v.UsesRemaining, v.Active, v.ExpiresAt, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}
	return tx.Commit()
}

func (r *postgresRepo) GetVoucherByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Voucher, error) {
	v := &Voucher{}
	var allowed pq.StringArray
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, code, discount_type, value, max_discount_amount,
			min_order_amount, uses_remaining, active, expires_at, allowed_customer_ids, created_at
		FROM vouchers WHERE tenant_id=$1 AND code=$2`, tenantID, code).
		Scan(&v.ID, &v.TenantID, &v.Code, &v.DiscountType, &v.Value, &v.MaxDiscountAmount,
			&v.MinOrderAmount, &v.UsesRemaining, &v.Active, &expiresAt, &allowed, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		v.ExpiresAt = &t
	}
	for _, s := range allowed {
		id, err := uuid.Parse(s)
		if err == nil {
			v.AllowedCustomerIDs = append(v.AllowedCustomerIDs, id)
		}
	}
	return v, nil
}

func (r *postgresRepo) ListCustomerVouchers(ctx context.Context, tenantID, customerID uuid.UUID) ([]*Voucher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, code, discount_type, value, max_discount_amount,
			min_order_amount, uses_remaining, active, expires_at, allowed_customer_ids, created_at
		FROM vouchers
		WHERE tenant_id=$1 AND active=true AND uses_remaining > 0
		  AND $2 = ANY(allowed_customer_ids)
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC`, tenantID, customerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vouchers []*Voucher
	for rows.Next() {
		v := &Voucher{}
		var allowed pq.StringArray
		var expiresAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.TenantID, &v.Code, &v.DiscountType, &v.Value, &v.MaxDiscountAmount,
			&v.MinOrderAmount, &v.UsesRemaining, &v.Active, &expiresAt, &allowed, &v.CreatedAt); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			v.ExpiresAt = &t
		}
		for _, s := range allowed {
			id, err := uuid.Parse(s)
			if err == nil {
				v.AllowedCustomerIDs = append(v.AllowedCustomerIDs, id)
			}
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

func (r *postgresRepo) ConsumeVoucher(ctx context.Context, tenantID, voucherID uuid.UUID, entry *LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT uses_remaining FROM vouchers WHERE id=$1 AND tenant_id=$2 FOR UPDATE`,
		voucherID, tenantID).Scan(&remaining)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		return fmt.Errorf("voucher_exhausted: no uses remaining")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE vouchers SET uses_remaining = uses_remaining - 1 WHERE id=$1`, voucherID)
	if err != nil {
		return fmt.Errorf("consume voucher: %w", err)
	}

	if entry != nil {
		if err := insertLedger(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *postgresRepo) ListLedger(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, program_id, customer_id, order_id, type, points, amount, stamps, note, created_at
		FROM loyalty_ledger WHERE tenant_id=$1 AND customer_id=$2
		ORDER BY created_at DESC LIMIT $3`, tenantID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		e := &LedgerEntry{}
		var orderID, note sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ProgramID, &e.CustomerID,
			&orderID, &e.Type, &e.Points, &e.Amount, &e.Stamps, &note, &e.CreatedAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			id, err := uuid.Parse(orderID.String)
			if err == nil {
				e.OrderID = &id
			}
		}
		e.Note = note.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertLedger(ctx context.Context, tx *sql.Tx, e *LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_ledger (id, tenant_id, program_id, customer_id, order_id, type, points, amount, stamps, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.TenantID, e.ProgramID, e.CustomerID, e.OrderID, e.Type, e.Points, e.Amount, e.Stamps,
		sql.NullString{String: e.Note, Valid: e.Note != ""})
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanProgram(row rowScanner) (*Program, error) {
	p := &Program{}
	var ladder []byte
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Type, &p.Active,
		&p.EarnRate, &p.PointsPerUnit, &ladder, &p.StampGoal, &p.MinOrderAmount,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(ladder) > 0 {
		if err := json.Unmarshal(ladder, &p.Ladder); err != nil {
			return nil, fmt.Errorf("decode ladder: %w", err)
		}
	}
	return p, nil
}
