package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

type fakeRepo struct {
	stock      map[uuid.UUID]*StockItem
	components []*RecipeComponent
	lines      map[uuid.UUID][]*OrderLineQty
	movements  []*Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stock: map[uuid.UUID]*StockItem{}, lines: map[uuid.UUID][]*OrderLineQty{}}
}

func (f *fakeRepo) ListStock(ctx context.Context, tenantID, branchID uuid.UUID) ([]*StockItem, error) {
	var out []*StockItem
	for _, item := range f.stock {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRepo) ListLowStock(ctx context.Context, tenantID, branchID uuid.UUID) ([]*StockItem, error) {
	var out []*StockItem
	for _, item := range f.stock {
		if item.Quantity <= item.ReorderLevel {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetOrderLines(ctx context.Context, tenantID, orderID uuid.UUID) ([]*OrderLineQty, error) {
	return f.lines[orderID], nil
}

func (f *fakeRepo) ComponentsFor(ctx context.Context, tenantID uuid.UUID, productIDs []int64) ([]*RecipeComponent, error) {
	wanted := map[int64]bool{}
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []*RecipeComponent
	for _, c := range f.components {
		if wanted[c.ProductID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) HasDeduction(ctx context.Context, tenantID, orderID uuid.UUID) (bool, error) {
	for _, m := range f.movements {
		if m.OrderID != nil && *m.OrderID == orderID && m.Reason == "sale" {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ApplyMovements(ctx context.Context, movements []*Movement) error {
	for _, m := range movements {
		f.movements = append(f.movements, m)
		if item, ok := f.stock[m.StockItemID]; ok {
			item.Quantity += m.Delta
		}
	}
	return nil
}

func testContext(role auth.Role) auth.Context {
	return auth.Context{TenantID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: role}
}

func TestOrderClosedDeductsComponents(t *testing.T) {
	repo := newFakeRepo()
	flour := &StockItem{ID: uuid.New(), Name: "flour", Unit: "kg", Quantity: 10}
	cheese := &StockItem{ID: uuid.New(), Name: "cheese", Unit: "kg", Quantity: 5}
	repo.stock[flour.ID] = flour
	repo.stock[cheese.ID] = cheese
	repo.components = []*RecipeComponent{
		{ProductID: 1, StockItemID: flour.ID, QtyPerUnit: 0.25},
		{ProductID: 1, StockItemID: cheese.ID, QtyPerUnit: 0.10},
	}
	orderID := uuid.New()
	repo.lines[orderID] = []*OrderLineQty{{ProductID: 1, Quantity: 2}}
	svc := NewService(repo)

	require.NoError(t, svc.OrderClosed(context.Background(), testContext(auth.RoleCashier), orderID))
	assert.Equal(t, 9.5, flour.Quantity)
	assert.InDelta(t, 4.8, cheese.Quantity, 0.000001)
	assert.Len(t, repo.movements, 2)
}

func TestOrderClosedIdempotent(t *testing.T) {
	repo := newFakeRepo()
	flour := &StockItem{ID: uuid.New(), Name: "flour", Quantity: 10}
	repo.stock[flour.ID] = flour
	repo.components = []*RecipeComponent{{ProductID: 1, StockItemID: flour.ID, QtyPerUnit: 1}}
	orderID := uuid.New()
	repo.lines[orderID] = []*OrderLineQty{{ProductID: 1, Quantity: 1}}
	svc := NewService(repo)
	ac := testContext(auth.RoleCashier)

	require.NoError(t, svc.OrderClosed(context.Background(), ac, orderID))
	require.NoError(t, svc.OrderClosed(context.Background(), ac, orderID))
	assert.Equal(t, 9.0, flour.Quantity)
	assert.Len(t, repo.movements, 1)
}

func TestOrderClosedNoRecipeNoMovement(t *testing.T) {
	repo := newFakeRepo()
	orderID := uuid.New()
	repo.lines[orderID] = []*OrderLineQty{{ProductID: 99, Quantity: 3}}
	svc := NewService(repo)

	require.NoError(t, svc.OrderClosed(context.Background(), testContext(auth.RoleCashier), orderID))
	assert.Empty(t, repo.movements)
}

func TestAdjustRequiresElevatedRole(t *testing.T) {
	repo := newFakeRepo()
	flour := &StockItem{ID: uuid.New(), Name: "flour", Quantity: 2}
	repo.stock[flour.ID] = flour
	svc := NewService(repo)

	err := svc.Adjust(context.Background(), testContext(auth.RoleWaiter),
		AdjustRequest{StockItemID: flour.ID.String(), Delta: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	require.NoError(t, svc.Adjust(context.Background(), testContext(auth.RoleManager),
		AdjustRequest{StockItemID: flour.ID.String(), Delta: 5, Reason: "restock"}))
	assert.Equal(t, 7.0, flour.Quantity)
}
