package loyalty

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Service defines the loyalty and rewards business logic.
type Service interface {
	// ApplyOnClose accrues rewards for a closed order across every active
	// program the order's customer is enrolled in. Idempotent per order and
	// program; orders without a customer accrue nothing.
	ApplyOnClose(ctx context.Context, ac auth.Context, orderID uuid.UUID) error

	// CalculateRewards previews what an order would accrue without writing
	// anything.
	CalculateRewards(ctx context.Context, ac auth.Context, customerID string, subtotal, total float64) ([]*Accrual, error)

	// RedeemVoucher evaluates and consumes a voucher. Failed checks return an
	// inapplicable result, not an error.
	RedeemVoucher(ctx context.Context, ac auth.Context, req RedeemRequest) (*RedemptionResult, error)

	// ConvertPointsToVoucher deducts points and mints a single-use voucher
	// valid for thirty days.
	ConvertPointsToVoucher(ctx context.Context, ac auth.Context, req ConvertRequest) (*Voucher, error)

	// CustomerSummary returns the customer's balances and recent activity.
	CustomerSummary(ctx context.Context, ac auth.Context, customerID string) (*Summary, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) ApplyOnClose(ctx context.Context, ac auth.Context, orderID uuid.UUID) error {
	snap, err := s.repo.GetOrderSnapshot(ctx, ac.TenantID, orderID)
	if err != nil {
		return fmt.Errorf("order_not_found: %w", err)
	}
	if snap.CustomerID == nil {
		return nil
	}

	programs, err := s.repo.ListActivePrograms(ctx, ac.TenantID)
	if err != nil {
		return err
	}

	for _, p := range programs {
		member, err := s.repo.GetMember(ctx, ac.TenantID, p.ID, *snap.CustomerID)
		if err != nil {
			continue // not enrolled
		}

		done, err := s.repo.HasOrderEntry(ctx, ac.TenantID, p.ID, orderID)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		accrual := AccrueForOrder(p, member, snap.Subtotal, snap.Total)
		if accrual == nil {
			continue
		}

		entry := &LedgerEntry{
			ID:         uuid.New(),
			TenantID:   ac.TenantID,
			ProgramID:  p.ID,
			CustomerID: *snap.CustomerID,
			OrderID:    &snap.ID,
			Points:     accrual.Points,
			Amount:     accrual.Cashback,
			Stamps:     accrual.Stamps,
		}
		switch p.Type {
		case ProgramPoints:
			entry.Type = EntryEarnPoints
		case ProgramCashback:
			entry.Type = EntryEarnCashback
		case ProgramStamp:
			entry.Type = EntryEarnStamp
		}

		if err := s.repo.RecordAccrual(ctx, entry, accrual); err != nil {
			// One program failing must not starve the others.
			log.Printf("loyalty: accrual failed for program %s order %s: %v", p.ID, orderID, err)
		}
	}
	return nil
}

func (s *service) CalculateRewards(ctx context.Context, ac auth.Context, customerID string, subtotal, total float64) ([]*Accrual, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("customer_not_found: invalid customer id")
	}
	programs, err := s.repo.ListActivePrograms(ctx, ac.TenantID)
	if err != nil {
		return nil, err
	}

	var accruals []*Accrual
	for _, p := range programs {
		member, err := s.repo.GetMember(ctx, ac.TenantID, p.ID, cid)
		if err != nil {
			continue
		}
		if a := AccrueForOrder(p, member, subtotal, total); a != nil {
			accruals = append(accruals, a)
		}
	}
	return accruals, nil
}

func (s *service) RedeemVoucher(ctx context.Context, ac auth.Context, req RedeemRequest) (*RedemptionResult, error) {
	if req.Code == "" {
		return &RedemptionResult{Reason: "voucher_not_found"}, nil
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return &RedemptionResult{Reason: "customer_not_eligible"}, nil
		}
		customerID = &cid
	}

	v, err := s.repo.GetVoucherByCode(ctx, ac.TenantID, req.Code)
	if err != nil {
		return &RedemptionResult{Reason: "voucher_not_found"}, nil
	}

	result := EvaluateVoucher(v, customerID, req.OrderTotal, time.Now())
	if !result.Applicable {
		return &result, nil
	}

	entry := &LedgerEntry{
		ID:       uuid.New(),
		TenantID: ac.TenantID,
		Type:     EntryRedeemVoucher,
		Amount:   -result.Discount,
		Note:     "voucher " + v.Code,
	}
	if customerID != nil {
		entry.CustomerID = *customerID
	}
	if err := s.repo.ConsumeVoucher(ctx, ac.TenantID, v.ID, entry); err != nil {
		// Lost the last use to a concurrent redemption.
		return &RedemptionResult{Reason: "voucher_exhausted"}, nil
	}
	return &result, nil
}

func (s *service) ConvertPointsToVoucher(ctx context.Context, ac auth.Context, req ConvertRequest) (*Voucher, error) {
	if req.Points <= 0 {
		return nil, fmt.Errorf("invalid_amount: points must be greater than zero")
	}
	cid, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer_not_found: invalid customer id")
	}
	pid, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program_not_found: invalid program id")
	}

	program, err := s.repo.GetProgram(ctx, ac.TenantID, pid)
	if err != nil {
		return nil, fmt.Errorf("program_not_found: %w", err)
	}
	if program.Type != ProgramPoints || program.PointsPerUnit <= 0 {
		return nil, fmt.Errorf("program_not_convertible: program does not support point conversion")
	}

	member, err := s.repo.GetMember(ctx, ac.TenantID, pid, cid)
	if err != nil {
		return nil, fmt.Errorf("member_not_found: %w", err)
	}
	if member.PointsBalance < req.Points {
		return nil, fmt.Errorf("insufficient_points: balance %d, requested %d", member.PointsBalance, req.Points)
	}

	code, err := voucherCode()
	if err != nil {
		return nil, err
	}

	value := float64(req.Points) / float64(program.PointsPerUnit)
	expires := time.Now().AddDate(0, 0, VoucherExpiryDays)
	voucher := &Voucher{
		ID:                 uuid.New(),
		TenantID:           ac.TenantID,
		Code:               code,
		DiscountType:       DiscountValue,
		Value:              value,
		UsesRemaining:      1,
		Active:             true,
		ExpiresAt:          &expires,
		AllowedCustomerIDs: []uuid.UUID{cid},
	}

	entry := &LedgerEntry{
		ID:         uuid.New(),
		TenantID:   ac.TenantID,
		ProgramID:  pid,
		CustomerID: cid,
		Type:       EntryRedeemPoints,
		Points:     -req.Points,
		Note:       "converted to voucher " + voucher.Code,
	}
	if err := s.repo.RecordConversion(ctx, entry, voucher); err != nil {
		return nil, err
	}
	return voucher, nil
}

func (s *service) CustomerSummary(ctx context.Context, ac auth.Context, customerID string) (*Summary, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("customer_not_found: invalid customer id")
	}
	members, err := s.repo.ListMembers(ctx, ac.TenantID, cid)
	if err != nil {
		return nil, err
	}
	vouchers, err := s.repo.ListCustomerVouchers(ctx, ac.TenantID, cid)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.ListLedger(ctx, ac.TenantID, cid, 20)
	if err != nil {
		return nil, err
	}
	return &Summary{CustomerID: cid, Members: members, Vouchers: vouchers, Recent: recent}, nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func voucherCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("voucher_code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "VCH-" + string(buf), nil
}
