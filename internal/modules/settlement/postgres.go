package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetOrderTotals(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderTotals, error) {
	o := &OrderTotals{}
	var customerID sql.NullString
	var method sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, payment_status, payment_method, total, customer_id
		FROM orders WHERE id=$1 AND tenant_id=$2`, orderID, tenantID).
		Scan(&o.ID, &o.Status, &o.PaymentStatus, &method, &o.Total, &customerID)
	if err != nil {
		return nil, err
	}
	if method.Valid {
		o.PaymentMethod = method.String
	}
	if customerID.Valid {
		cid, _ := uuid.Parse(customerID.String)
		o.CustomerID = &cid
	}
	return o, nil
}

func (r *postgresRepo) ApplyPayments(ctx context.Context, tenantID, orderID uuid.UUID, payments []*Payment, method string, parts int) (*Outcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status order.Status
	var paymentStatus order.PaymentStatus
	var existingMethod sql.NullString
	var total float64
	err = tx.QueryRowContext(ctx, `
		SELECT status, payment_status, payment_method, total
		FROM orders WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, orderID, tenantID).
		Scan(&status, &paymentStatus, &existingMethod, &total)
	if err != nil {
		return nil, err
	}

	// A concurrent settlement won the lock first: idempotent no-op.
	if paymentStatus == order.PaymentPaid {
		return &Outcome{AlreadyPaid: true, Method: existingMethod.String}, nil
	}

	// Re-check mutability under the lock: a concurrent void/cancel wins.
	if status.Terminal() {
		return nil, fmt.Errorf("order_not_settleable: order is %s", status)
	}

	// Re-check the amount rule against the locked total.
	amounts := make([]float64, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	if err := ValidateAmounts(total, amounts, parts); err != nil {
		return nil, err
	}

	for _, p := range payments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (id, tenant_id, branch_id, order_id, method, amount, status, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			p.ID, p.TenantID, p.BranchID, p.OrderID, p.Method, p.Amount, p.Status, p.CreatedBy)
		if err != nil {
			return nil, fmt.Errorf("insert payment: %w", err)
		}
	}

	newStatus := status
	if status == order.StatusOpen || status == order.StatusHeld || status == order.StatusSent {
		newStatus = order.StatusClosed
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_status=$1, payment_method=$2, status=$3,
		    closed_at=CASE WHEN $3='closed' AND closed_at IS NULL THEN NOW() ELSE closed_at END,
		    updated_at=NOW()
		WHERE id=$4 AND tenant_id=$5`,
		order.PaymentPaid, method, newStatus, orderID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("update order settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Outcome{Method: method}, nil
}

func (r *postgresRepo) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, branch_id, order_id, method, amount, status, created_by, created_at
		FROM payments WHERE order_id=$1 AND tenant_id=$2 ORDER BY created_at ASC`, orderID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p := &Payment{}
		if err := rows.Scan(&p.ID, &p.TenantID, &p.BranchID, &p.OrderID,
			&p.Method, &p.Amount, &p.Status, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
