package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
	"github.com/mkandawire/servipos-backend/internal/modules/pricing"
)

type fakeRepo struct {
	byID    map[uuid.UUID]*Order
	byToken map[string]*Order
	created int
	failErr error

	// tokenLookupMisses makes the next N GetByToken calls miss, simulating a
	// concurrent create whose row is not yet visible to the pre-check.
	tokenLookupMisses int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*Order{}, byToken: map[string]*Order{}}
}

func (f *fakeRepo) CreateOrder(ctx context.Context, o *Order) error {
	if f.failErr != nil {
		return f.failErr
	}
	if o.IdempotencyToken != "" {
		if _, exists := f.byToken[o.IdempotencyToken]; exists {
			return errors.New(`pq: duplicate key value violates unique constraint "orders_token_key"`)
		}
		f.byToken[o.IdempotencyToken] = o
	}
	f.byID[o.ID] = o
	f.created++
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error) {
	o, ok := f.byID[id]
	if !ok || o.TenantID != tenantID {
		return nil, errors.New("sql: no rows in result set")
	}
	return o, nil
}

func (f *fakeRepo) GetByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Order, error) {
	for _, o := range f.byID {
		if o.OrderNumber == number && o.TenantID == tenantID {
			return o, nil
		}
	}
	return nil, errors.New("sql: no rows in result set")
}

func (f *fakeRepo) GetByToken(ctx context.Context, tenantID uuid.UUID, token string) (*Order, error) {
	if f.tokenLookupMisses > 0 {
		f.tokenLookupMisses--
		return nil, errors.New("sql: no rows in result set")
	}
	o, ok := f.byToken[token]
	if !ok || o.TenantID != tenantID {
		return nil, errors.New("sql: no rows in result set")
	}
	return o, nil
}

func (f *fakeRepo) ListByBranch(ctx context.Context, tenantID, branchID uuid.UUID, status string) ([]*Order, error) {
	var out []*Order
	for _, o := range f.byID {
		if o.TenantID == tenantID && o.BranchID == branchID && (status == "" || string(o.Status) == status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status, closedAt *time.Time) error {
	o, ok := f.byID[id]
	if !ok || o.TenantID != tenantID {
		return errors.New("sql: no rows in result set")
	}
	o.Status = status
	if closedAt != nil {
		o.ClosedAt = closedAt
	}
	return nil
}

type fakePricing struct{}

func (fakePricing) Quote(ctx context.Context, ac auth.Context, req pricing.QuoteRequest) (*pricing.TotalsBreakdown, error) {
	if len(req.Lines) == 0 {
		return nil, errors.New("no_lines: order must contain at least one line")
	}
	subtotals := make([]float64, len(req.Lines))
	var subtotal float64
	for i, ln := range req.Lines {
		qty := ln.Quantity
		if qty == 0 {
			qty = 1
		}
		subtotals[i] = ln.UnitPrice * float64(qty)
		subtotal += subtotals[i]
	}
	return &pricing.TotalsBreakdown{
		LineSubtotals: subtotals,
		Subtotal:      subtotal,
		Base:          subtotal,
		TaxPercent:    10,
		TaxAmount:     subtotal * 0.1,
		Total:         subtotal * 1.1,
	}, nil
}

func testContext() auth.Context {
	return auth.Context{TenantID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: auth.RoleCashier}
}

func testRequest() CreateOrderRequest {
	return CreateOrderRequest{
		OrderType: "takeaway",
		Lines: []pricing.Line{
			{ProductID: 1, ProductName: "Burger", UnitPrice: 10, Quantity: 2},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakePricing{})
	ac := testContext()

	o, err := svc.Create(context.Background(), ac, testRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, ac.TenantID, o.TenantID)
	assert.Equal(t, 20.0, o.Subtotal)
	assert.Equal(t, 22.0, o.Total)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 20.0, o.Lines[0].Subtotal)
	assert.Contains(t, o.OrderNumber, "ORD-")
	assert.Empty(t, o.FiredLineIDs)
}

func TestCreateOrderFinalizeFiresAllLines(t *testing.T) {
	svc := NewService(newFakeRepo(), fakePricing{})
	req := testRequest()
	req.Finalize = true

	o, err := svc.Create(context.Background(), testContext(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, o.Status)
	assert.Len(t, o.FiredLineIDs, 1)
}

func TestCreateOrderIdempotencyToken(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakePricing{})
	ac := testContext()
	req := testRequest()
	req.IdempotencyToken = "pos-7-seq-42"

	first, err := svc.Create(context.Background(), ac, req)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), ac, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.created)
}

func TestCreateOrderTokenRaceResolvesToWinner(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakePricing{})
	ac := testContext()

	// The winner is persisted but the loser's pre-check misses it: the unique
	// index violation must resolve to the winner's order.
	winner := &Order{ID: uuid.New(), TenantID: ac.TenantID, IdempotencyToken: "tok"}
	repo.byToken["tok"] = winner
	repo.byID[winner.ID] = winner
	repo.tokenLookupMisses = 1

	req := testRequest()
	req.IdempotencyToken = "tok"
	createdBefore := repo.created

	o, err := svc.Create(context.Background(), ac, req)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, o.ID)
	assert.Equal(t, createdBefore, repo.created)
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakePricing{})
	ac := testContext()

	o, err := svc.Create(context.Background(), ac, testRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), ac, o.ID.String(), UpdateStatusRequest{Status: "sent"})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), ac, o.ID.String(), UpdateStatusRequest{Status: "served"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_transition")
}

func TestClosedOrderIsImmutable(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakePricing{})
	ac := testContext()

	o, err := svc.Create(context.Background(), ac, testRequest())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), ac, o.ID.String(), UpdateStatusRequest{Status: "closed"})
	require.NoError(t, err)
	assert.NotNil(t, repo.byID[o.ID].ClosedAt)

	// closed orders admit only the refund transition
	_, err = svc.UpdateStatus(context.Background(), ac, o.ID.String(), UpdateStatusRequest{Status: "open"})
	require.Error(t, err)

	_, err = svc.UpdateStatus(context.Background(), ac, o.ID.String(), UpdateStatusRequest{Status: "refunded"})
	require.NoError(t, err)
}

func TestCrossTenantAccessImpossible(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakePricing{})
	ac := testContext()

	o, err := svc.Create(context.Background(), ac, testRequest())
	require.NoError(t, err)

	other := testContext()
	_, err = svc.Get(context.Background(), other, o.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_not_found")
}
