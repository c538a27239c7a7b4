package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id, tenant_id, branch_id, customer_id, table_id, order_number, order_type, status, guest_count,
	subtotal, discount_amount, discount_mode, discount_type, discount_value,
	tax_percent, tax_amount, service_percent, service_amount, commission_percent, commission_amount, total,
	payment_status, payment_method, aggregator_id, fired_line_ids, held_line_ids,
	idempotency_token, notes, created_by, created_at, updated_at, closed_at`

// CreateOrder inserts the order and all its lines inside a single transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, tenant_id, branch_id, customer_id, table_id, order_number, order_type, status, guest_count,
		   subtotal, discount_amount, discount_mode, discount_type, discount_value,
		   tax_percent, tax_amount, service_percent, service_amount, commission_percent, commission_amount, total,
		   payment_status, payment_method, aggregator_id, fired_line_ids, held_line_ids,
		   idempotency_token, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)`,
		o.ID, o.TenantID, o.BranchID, o.CustomerID, o.TableID, o.OrderNumber, o.Type, o.Status, o.GuestCount,
		o.Subtotal, o.DiscountAmount, o.DiscountMode, o.DiscountType, o.DiscountValue,
		o.TaxPercent, o.TaxAmount, o.ServicePercent, o.ServiceAmount, o.CommissionPercent, o.CommissionAmount, o.Total,
		o.PaymentStatus, o.PaymentMethod, o.AggregatorID, uuidArray(o.FiredLineIDs), uuidArray(o.HeldLineIDs),
		nullableString(o.IdempotencyToken), o.Notes, o.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, ln := range o.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, product_name, unit_price, quantity, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			ln.ID, o.ID, ln.ProductID, ln.ProductName, ln.UnitPrice, ln.Quantity, ln.Subtotal)
		if err != nil {
			return fmt.Errorf("insert order_line: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 AND tenant_id=$2`, id, tenantID))
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.listLines(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) GetByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number=$1 AND tenant_id=$2`, orderNumber, tenantID))
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.listLines(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) GetByToken(ctx context.Context, tenantID uuid.UUID, token string) (*Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_token=$1 AND tenant_id=$2`, token, tenantID))
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.listLines(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListByBranch(ctx context.Context, tenantID, branchID uuid.UUID, status string) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id=$1 AND branch_id=$2`
	args := []interface{}{tenantID, branchID}
	if status != "" {
		query += ` AND status=$3`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status, closedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, closed_at=COALESCE($2, closed_at), updated_at=NOW()
		 WHERE id=$3 AND tenant_id=$4`,
		status, closedAt, id, tenantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepo) scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var customerID, tableID sql.NullString
	var token, method sql.NullString
	var fired, held []string
	var closedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.TenantID, &o.BranchID, &customerID, &tableID, &o.OrderNumber, &o.Type, &o.Status, &o.GuestCount,
		&o.Subtotal, &o.DiscountAmount, &o.DiscountMode, &o.DiscountType, &o.DiscountValue,
		&o.TaxPercent, &o.TaxAmount, &o.ServicePercent, &o.ServiceAmount, &o.CommissionPercent, &o.CommissionAmount, &o.Total,
		&o.PaymentStatus, &method, &o.AggregatorID, pq.Array(&fired), pq.Array(&held),
		&token, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		cid, _ := uuid.Parse(customerID.String)
		o.CustomerID = &cid
	}
	if tableID.Valid {
		tid, _ := uuid.Parse(tableID.String)
		o.TableID = &tid
	}
	if method.Valid {
		o.PaymentMethod = method.String
	}
	if token.Valid {
		o.IdempotencyToken = token.String
	}
	if closedAt.Valid {
		o.ClosedAt = &closedAt.Time
	}
	o.FiredLineIDs = parseUUIDs(fired)
	o.HeldLineIDs = parseUUIDs(held)
	return o, nil
}

func (r *postgresRepo) listLines(ctx context.Context, orderID uuid.UUID) ([]*Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, subtotal, created_at
		FROM order_lines WHERE order_id=$1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*Line
	for rows.Next() {
		ln := &Line{}
		if err := rows.Scan(&ln.ID, &ln.OrderID, &ln.ProductID, &ln.ProductName,
			&ln.UnitPrice, &ln.Quantity, &ln.Subtotal, &ln.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func uuidArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}

func parseUUIDs(strs []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
