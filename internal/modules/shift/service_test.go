package shift

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

type fakeRepo struct {
	shifts  map[uuid.UUID]*Shift
	window  WindowTotals
	audit   []string
	created int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{shifts: map[uuid.UUID]*Shift{}}
}

func (f *fakeRepo) CreateShift(ctx context.Context, s *Shift) error {
	for _, existing := range f.shifts {
		if existing.BranchID == s.BranchID && existing.Status == StatusOpen {
			return errors.New("pq: duplicate key value violates unique constraint")
		}
	}
	f.created++
	s.ShiftNumber = fmt.Sprintf("SHF-%s-%02d", time.Now().Format("20060102"), f.created)
	cp := *s
	f.shifts[s.ID] = &cp
	f.audit = append(f.audit, "open")
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, tenantID, shiftID uuid.UUID) (*Shift, error) {
	s, ok := f.shifts[shiftID]
	if !ok || s.TenantID != tenantID {
		return nil, errors.New("sql: no rows in result set")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) GetOpenShift(ctx context.Context, tenantID, branchID uuid.UUID) (*Shift, error) {
	for _, s := range f.shifts {
		if s.TenantID == tenantID && s.BranchID == branchID && s.Status == StatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, errors.New("sql: no rows in result set")
}

func (f *fakeRepo) WindowTotals(ctx context.Context, tenantID, branchID uuid.UUID, from, to time.Time) (*WindowTotals, error) {
	w := f.window
	return &w, nil
}

func (f *fakeRepo) CloseShift(ctx context.Context, s *Shift, action string) error {
	stored := f.shifts[s.ID]
	if stored.Status != StatusOpen {
		return fmt.Errorf("shift_not_open: shift %s is %s", stored.ShiftNumber, stored.Status)
	}
	cp := *s
	f.shifts[s.ID] = &cp
	f.audit = append(f.audit, action)
	return nil
}

func (f *fakeRepo) ReconcileShift(ctx context.Context, s *Shift) error {
	stored := f.shifts[s.ID]
	if stored.Status != StatusClosed {
		return fmt.Errorf("shift_not_closed: shift %s is %s", stored.ShiftNumber, stored.Status)
	}
	cp := *s
	f.shifts[s.ID] = &cp
	f.audit = append(f.audit, "reconcile")
	return nil
}

func (f *fakeRepo) ListByBranch(ctx context.Context, tenantID, branchID uuid.UUID, limit int) ([]*Shift, error) {
	var out []*Shift
	for _, s := range f.shifts {
		if s.TenantID == tenantID && s.BranchID == branchID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAudit(ctx context.Context, tenantID, shiftID uuid.UUID) ([]*AuditRecord, error) {
	var out []*AuditRecord
	for _, action := range f.audit {
		out = append(out, &AuditRecord{ShiftID: shiftID, Action: action})
	}
	return out, nil
}

func testContext(role auth.Role) auth.Context {
	return auth.Context{TenantID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: role}
}

func ptr(v float64) *float64 { return &v }

func TestOpenShift(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 300.00})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, sh.Status)
	assert.Equal(t, 300.00, sh.OpeningBalance)
	assert.Contains(t, sh.ShiftNumber, "SHF-")

	_, err = svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: -5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_amount")
}

func TestOpenShiftDuplicateConflict(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	_, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 100.00})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 200.00})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate_open_shift")
	assert.Equal(t, 1, repo.created)

	// a second branch of the same tenant opens independently
	other := ac
	other.BranchID = uuid.New()
	_, err = svc.Open(context.Background(), other, OpenShiftRequest{OpeningBalance: 50.00})
	require.NoError(t, err)
}

func TestCloseShiftExpectedCashAndVariance(t *testing.T) {
	repo := newFakeRepo()
	repo.window = WindowTotals{
		OrderCount:         12,
		TotalSales:         650.00,
		CashSales:          450.00,
		CardSales:          200.00,
		CashRefunds:        50.00,
		HasTenderBreakdown: true,
	}
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 300.00})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ac, sh.ID.String(),
		CloseShiftRequest{Actuals: Actuals{Cash: ptr(690.00)}})
	require.NoError(t, err)

	// expected_cash = opening 300 + cash sales 450 - cash refunds 50
	assert.Equal(t, 700.00, closed.ExpectedCash)
	assert.Equal(t, 200.00, closed.ExpectedCard)
	assert.Equal(t, -10.00, closed.VarianceCash)
	assert.Equal(t, -10.00, closed.TotalVariance)
	assert.Equal(t, StatusClosed, closed.Status)
	// variance of exactly -10 is at the threshold, not over it
	assert.False(t, closed.VarianceWarning)
}

func TestCloseShiftVarianceWarningIsSoft(t *testing.T) {
	repo := newFakeRepo()
	repo.window = WindowTotals{TotalSales: 500.00, CashSales: 500.00, HasTenderBreakdown: true}
	svc := NewService(repo, 10)
	ac := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 100.00})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ac, sh.ID.String(),
		CloseShiftRequest{Actuals: Actuals{Cash: ptr(550.00)}})
	require.NoError(t, err)
	assert.Equal(t, -50.00, closed.TotalVariance)
	assert.True(t, closed.VarianceWarning)
	assert.Equal(t, StatusClosed, closed.Status)
}

func TestCloseShiftActualsDefaultToExpected(t *testing.T) {
	repo := newFakeRepo()
	repo.window = WindowTotals{TotalSales: 120.00, CashSales: 80.00, CardSales: 40.00, HasTenderBreakdown: true}
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 20.00})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ac, sh.ID.String(), CloseShiftRequest{})
	require.NoError(t, err)
	assert.Equal(t, closed.ExpectedCash, closed.ActualCash)
	assert.Equal(t, closed.ExpectedCard, closed.ActualCard)
	assert.Equal(t, 0.00, closed.TotalVariance)
	assert.False(t, closed.VarianceWarning)
}

func TestCloseShiftDegradedCashFallback(t *testing.T) {
	repo := newFakeRepo()
	// no payment records survived for the window
	repo.window = WindowTotals{TotalSales: 240.00, TotalRefunds: 15.00, HasTenderBreakdown: false}
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 60.00})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ac, sh.ID.String(), CloseShiftRequest{})
	require.NoError(t, err)
	assert.Equal(t, 240.00, closed.CashSales)
	assert.Equal(t, 0.00, closed.CardSales)
	assert.Equal(t, 15.00, closed.CashRefunds)
	assert.Equal(t, 285.00, closed.ExpectedCash)
}

func TestCloseWithoutIDResolvesOpenShift(t *testing.T) {
	repo := newFakeRepo()
	repo.window = WindowTotals{TotalSales: 50.00, CashSales: 50.00, HasTenderBreakdown: true}
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	opened, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 25.00})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ac, "", CloseShiftRequest{})
	require.NoError(t, err)
	assert.Equal(t, opened.ID, closed.ID)
	assert.Equal(t, StatusClosed, closed.Status)

	_, err = svc.Close(context.Background(), ac, "", CloseShiftRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shift_not_found")
}

func TestCloseShiftAlreadyClosed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 10.00})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), ac, sh.ID.String(), CloseShiftRequest{})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), ac, sh.ID.String(), CloseShiftRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shift_not_open")
}

func TestReconcileRequiresElevatedRole(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)
	cashier := testContext(auth.RoleCashier)

	sh, err := svc.Open(context.Background(), cashier, OpenShiftRequest{OpeningBalance: 10.00})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), cashier, sh.ID.String(), CloseShiftRequest{})
	require.NoError(t, err)

	_, err = svc.Reconcile(context.Background(), cashier, sh.ID.String(), CloseShiftRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	manager := cashier
	manager.Role = auth.RoleManager
	rec, err := svc.Reconcile(context.Background(), manager, sh.ID.String(),
		CloseShiftRequest{Actuals: Actuals{Cash: ptr(10.00)}})
	require.NoError(t, err)
	assert.Equal(t, StatusReconciled, rec.Status)
}

func TestReconcileOnlyFromClosed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)
	manager := testContext(auth.RoleManager)

	sh, err := svc.Open(context.Background(), manager, OpenShiftRequest{OpeningBalance: 10.00})
	require.NoError(t, err)

	_, err = svc.Reconcile(context.Background(), manager, sh.ID.String(), CloseShiftRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shift_not_closed")
}

func TestCompleteClosesAndReconciles(t *testing.T) {
	repo := newFakeRepo()
	repo.window = WindowTotals{TotalSales: 100.00, CashSales: 100.00, HasTenderBreakdown: true}
	svc := NewService(repo, 0)
	ac := testContext(auth.RoleManager)

	sh, err := svc.Open(context.Background(), ac, OpenShiftRequest{OpeningBalance: 0})
	require.NoError(t, err)

	done, err := svc.Complete(context.Background(), ac, sh.ID.String(),
		CloseShiftRequest{Actuals: Actuals{Cash: ptr(100.00)}})
	require.NoError(t, err)
	assert.Equal(t, StatusReconciled, done.Status)
	assert.Equal(t, []string{"open", "complete"}, repo.audit)
}

func TestAuditTrailAppendsPerTransition(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)
	manager := testContext(auth.RoleManager)

	sh, err := svc.Open(context.Background(), manager, OpenShiftRequest{OpeningBalance: 5.00})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), manager, sh.ID.String(), CloseShiftRequest{})
	require.NoError(t, err)
	_, err = svc.Reconcile(context.Background(), manager, sh.ID.String(), CloseShiftRequest{})
	require.NoError(t, err)

	records, err := svc.Audit(context.Background(), manager, sh.ID.String())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "open", records[0].Action)
	assert.Equal(t, "close", records[1].Action)
	assert.Equal(t, "reconcile", records[2].Action)
}
