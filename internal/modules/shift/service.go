package shift

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Service defines the shift ledger business logic.
type Service interface {
	// Open starts a new shift for the branch. Only one open shift per branch
	// is allowed.
	Open(ctx context.Context, ac auth.Context, req OpenShiftRequest) (*Shift, error)

	// Current returns the branch's open shift with running window totals
	// folded in.
	Current(ctx context.Context, ac auth.Context) (*Shift, error)

	// Close ends the open shift: aggregates the window, records actuals, and
	// computes variances. Variance beyond the threshold is a warning, never a
	// block. An empty shiftID means the branch's open shift.
	Close(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error)

	// Complete closes and reconciles in one step for branches that skip the
	// separate manager review.
	Complete(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error)

	// Reconcile records the manager's final counted amounts on a closed shift.
	Reconcile(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error)

	Get(ctx context.Context, ac auth.Context, shiftID string) (*Shift, error)
	List(ctx context.Context, ac auth.Context, limit int) ([]*Shift, error)
	Audit(ctx context.Context, ac auth.Context, shiftID string) ([]*AuditRecord, error)
}

type service struct {
	repo              Repository
	varianceThreshold float64
}

// NewService creates a new shift service. A non-positive threshold falls back
// to the default.
func NewService(repo Repository, varianceThreshold float64) Service {
	if varianceThreshold <= 0 {
		varianceThreshold = DefaultVarianceThreshold
	}
	return &service{repo: repo, varianceThreshold: varianceThreshold}
}

func (s *service) Open(ctx context.Context, ac auth.Context, req OpenShiftRequest) (*Shift, error) {
	if req.OpeningBalance < 0 {
		return nil, fmt.Errorf("invalid_amount: opening balance cannot be negative")
	}
	if existing, err := s.repo.GetOpenShift(ctx, ac.TenantID, ac.BranchID); err == nil {
		return nil, fmt.Errorf("duplicate_open_shift: shift %s is still open", existing.ShiftNumber)
	}

	sh := &Shift{
		ID:             uuid.New(),
		TenantID:       ac.TenantID,
		BranchID:       ac.BranchID,
		RegisterID:     req.RegisterID,
		Status:         StatusOpen,
		OpeningBalance: req.OpeningBalance,
		StartedBy:      ac.UserID,
		StartedAt:      time.Now(),
	}
	if err := s.repo.CreateShift(ctx, sh); err != nil {
		// Lost the race on the partial unique index.
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("duplicate_open_shift: another shift is already open for this branch")
		}
		return nil, err
	}
	return sh, nil
}

func (s *service) Current(ctx context.Context, ac auth.Context) (*Shift, error) {
	sh, err := s.repo.GetOpenShift(ctx, ac.TenantID, ac.BranchID)
	if err != nil {
		return nil, fmt.Errorf("shift_not_found: no open shift for this branch")
	}
	w, err := s.repo.WindowTotals(ctx, ac.TenantID, ac.BranchID, sh.StartedAt, time.Now())
	if err != nil {
		return nil, err
	}
	sh.ApplyWindow(*w)
	return sh, nil
}

func (s *service) Close(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error) {
	return s.end(ctx, ac, shiftID, req, StatusClosed, "close")
}

func (s *service) Complete(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error) {
	return s.end(ctx, ac, shiftID, req, StatusReconciled, "complete")
}

func (s *service) end(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest, target Status, action string) (*Shift, error) {
	var sh *Shift
	var err error
	if shiftID == "" {
		// The caller trusts that only one shift can be open for the branch.
		sh, err = s.repo.GetOpenShift(ctx, ac.TenantID, ac.BranchID)
		if err != nil {
			return nil, fmt.Errorf("shift_not_found: no open shift for this branch")
		}
	} else {
		sh, err = s.get(ctx, ac, shiftID)
		if err != nil {
			return nil, err
		}
	}
	if sh.Status != StatusOpen {
		return nil, fmt.Errorf("shift_not_open: shift %s is %s", sh.ShiftNumber, sh.Status)
	}

	now := time.Now()
	w, err := s.repo.WindowTotals(ctx, ac.TenantID, ac.BranchID, sh.StartedAt, now)
	if err != nil {
		return nil, err
	}
	sh.ApplyWindow(*w)
	sh.ApplyActuals(req.Actuals, s.varianceThreshold)
	sh.Status = target
	sh.EndedBy = &ac.UserID
	sh.EndedAt = &now
	if req.Notes != "" {
		sh.Notes = req.Notes
	}

	if err := s.repo.CloseShift(ctx, sh, action); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) Reconcile(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error) {
	if !ac.IsElevated() {
		return nil, fmt.Errorf("forbidden: reconciliation requires a manager or admin")
	}
	sh, err := s.get(ctx, ac, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.Status != StatusClosed {
		return nil, fmt.Errorf("shift_not_closed: shift %s is %s", sh.ShiftNumber, sh.Status)
	}

	sh.ApplyActuals(req.Actuals, s.varianceThreshold)
	sh.Status = StatusReconciled
	sh.EndedBy = &ac.UserID
	if req.Notes != "" {
		sh.Notes = req.Notes
	}

	if err := s.repo.ReconcileShift(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) Get(ctx context.Context, ac auth.Context, shiftID string) (*Shift, error) {
	return s.get(ctx, ac, shiftID)
}

func (s *service) List(ctx context.Context, ac auth.Context, limit int) ([]*Shift, error) {
	return s.repo.ListByBranch(ctx, ac.TenantID, ac.BranchID, limit)
}

func (s *service) Audit(ctx context.Context, ac auth.Context, shiftID string) ([]*AuditRecord, error) {
	sh, err := s.get(ctx, ac, shiftID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAudit(ctx, ac.TenantID, sh.ID)
}

func (s *service) get(ctx context.Context, ac auth.Context, shiftID string) (*Shift, error) {
	id, err := uuid.Parse(shiftID)
	if err != nil {
		return nil, fmt.Errorf("shift_not_found: invalid shift id")
	}
	sh, err := s.repo.GetByID(ctx, ac.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("shift_not_found: %w", err)
	}
	return sh, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
