package kitchen

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetOrderKitchen(ctx context.Context, tenantID, orderID uuid.UUID) (*State, []LineRef, error) {
	st := &State{OrderID: orderID}
	var fired, held []string
	err := r.db.QueryRowContext(ctx, `
		SELECT status, fired_line_ids, held_line_ids
		FROM orders WHERE id=$1 AND tenant_id=$2`, orderID, tenantID).
		Scan(&st.Status, pq.Array(&fired), pq.Array(&held))
	if err != nil {
		return nil, nil, err
	}
	st.FiredLineIDs = parseUUIDs(fired)
	st.HeldLineIDs = parseUUIDs(held)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id FROM order_lines WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var lines []LineRef
	for rows.Next() {
		var ln LineRef
		if err := rows.Scan(&ln.ID, &ln.ProductID); err != nil {
			return nil, nil, err
		}
		lines = append(lines, ln)
	}
	return st, lines, rows.Err()
}

// UpdateKitchenState rewrites the fired/held sets under a row lock. The
// status guard inside the transaction rejects writes that raced a settlement.
func (r *postgresRepo) UpdateKitchenState(ctx context.Context, tenantID, orderID uuid.UUID, fired, held []uuid.UUID, status order.Status) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current order.Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id=$1 AND tenant_id=$2 FOR UPDATE`,
		orderID, tenantID).Scan(&current)
	if err != nil {
		return err
	}
	if current.Terminal() {
		return fmt.Errorf("order_immutable: order is %s", current)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET fired_line_ids=$1, held_line_ids=$2, status=$3, updated_at=NOW()
		WHERE id=$4 AND tenant_id=$5`,
		stringArray(fired), stringArray(held), status, orderID, tenantID)
	if err != nil {
		return fmt.Errorf("update kitchen state: %w", err)
	}

	return tx.Commit()
}

// ── helpers ──────────────────────────────────────────────────────────────────

func stringArray(ids []uuid.UUID) interface{} {
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
