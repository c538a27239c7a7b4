package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const stockColumns = `id, tenant_id, branch_id, name, unit, quantity, reorder_level, created_at, updated_at`

func (r *postgresRepo) ListStock(ctx context.Context, tenantID, branchID uuid.UUID) ([]*StockItem, error) {
	return r.listStock(ctx, `SELECT `+stockColumns+` FROM stock_items
		WHERE tenant_id=$1 AND branch_id=$2 ORDER BY name`, tenantID, branchID)
}

func (r *postgresRepo) ListLowStock(ctx context.Context, tenantID, branchID uuid.UUID) ([]*StockItem, error) {
	return r.listStock(ctx, `SELECT `+stockColumns+` FROM stock_items
		WHERE tenant_id=$1 AND branch_id=$2 AND quantity <= reorder_level ORDER BY name`, tenantID, branchID)
}

func (r *postgresRepo) listStock(ctx context.Context, query string, args ...interface{}) ([]*StockItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StockItem
	for rows.Next() {
		item := &StockItem{}
		if err := rows.Scan(&item.ID, &item.TenantID, &item.BranchID, &item.Name, &item.Unit,
			&item.Quantity, &item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) GetOrderLines(ctx context.Context, tenantID, orderID uuid.UUID) ([]*OrderLineQty, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.product_id, l.quantity
		FROM order_lines l JOIN orders o ON o.id = l.order_id
		WHERE l.order_id=$1 AND o.tenant_id=$2`, orderID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*OrderLineQty
	for rows.Next() {
		l := &OrderLineQty{}
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) ComponentsFor(ctx context.Context, tenantID uuid.UUID, productIDs []int64) ([]*RecipeComponent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, product_id, stock_item_id, qty_per_unit
		FROM recipe_components WHERE tenant_id=$1 AND product_id = ANY($2)`,
		tenantID, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var components []*RecipeComponent
	for rows.Next() {
		c := &RecipeComponent{}
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ProductID, &c.StockItemID, &c.QtyPerUnit); err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

func (r *postgresRepo) HasDeduction(ctx context.Context, tenantID, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM stock_movements
			WHERE tenant_id=$1 AND order_id=$2 AND reason='sale')`,
		tenantID, orderID).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) ApplyMovements(ctx context.Context, movements []*Movement) error {
	if len(movements) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range movements {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, tenant_id, branch_id, stock_item_id, order_id, delta, reason, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			m.ID, m.TenantID, m.BranchID, m.StockItemID, m.OrderID, m.Delta, m.Reason, m.CreatedBy)
		if err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE stock_items SET quantity = quantity + $1, updated_at = NOW()
			WHERE id=$2 AND tenant_id=$3`,
			m.Delta, m.StockItemID, m.TenantID)
		if err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
	}
	return tx.Commit()
}
