package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// DefaultEntitlementDays is granted per category when an owner's balance rows
// are provisioned on first use
const DefaultEntitlementDays = 10

// DefaultCategories are provisioned together on an owner's first request
var DefaultCategories = []string{"Casual Leave", "Sick Leave", "Annual Leave"}

// errAlreadyReserved aborts a reservation transaction so a duplicate submit
// rolls back instead of debiting the balance a second time
var errAlreadyReserved = errors.New("reservation already recorded")

// LedgerService applies consumable-balance side effects of workflow
// transitions. The balance is reserved pessimistically at submit time and
// refunded at most once when the workflow does not ultimately consume it.
type LedgerService struct {
	ledgerRepo port.LedgerRepository
	txManager  port.TransactionManager
	logger     Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(ledgerRepo port.LedgerRepository, txManager port.TransactionManager, logger Logger) *LedgerService {
	return &LedgerService{ledgerRepo: ledgerRepo, txManager: txManager, logger: logger}
}

// Reserve debits the owner's balance for the workflow's requested amount.
// Balance rows for all default categories are provisioned when the owner has
// none yet. Called at submit time, before any approval decision; repeating it
// for the same workflow leaves both the balance and the adjustment untouched.
func (s *LedgerService) Reserve(ctx context.Context, ownerID int64, category string, amount float64, workflowID int64) error {
	if amount <= 0 {
		return fmt.Errorf("reserve amount must be positive, got %v", amount)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.ledgerRepo.GetAdjustment(txCtx, workflowID, entity.AdjustmentReserve)
		if err != nil {
			return fmt.Errorf("get reservation: %w", err)
		}
		if existing != nil {
			return errAlreadyReserved
		}

		bal, err := s.ledgerRepo.GetBalance(txCtx, ownerID, category)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}

		if bal == nil {
			bal, err = s.provisionDefaults(txCtx, ownerID, category, amount)
			if err != nil {
				return err
			}
		} else {
			bal.Remaining -= amount
			bal.Consumed = bal.TotalEntitlement - bal.Remaining
			if err := s.ledgerRepo.UpdateBalance(txCtx, bal, bal.Version); err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
		}

		adj := &entity.LedgerAdjustment{
			WorkflowID:     workflowID,
			LedgerID:       bal.ID,
			AdjustmentType: entity.AdjustmentReserve,
			Amount:         amount,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      time.Now(),
		}
		if err := s.ledgerRepo.RecordAdjustment(txCtx, adj); err != nil {
			if errors.Is(err, workflow.ErrConflict) {
				// A concurrent duplicate slipped past the lookup; abort so
				// the debit above rolls back with the transaction.
				return errAlreadyReserved
			}
			return fmt.Errorf("record reservation: %w", err)
		}

		s.logger.Info("Balance reserved",
			"owner_id", ownerID, "category", category, "amount", amount, "remaining", bal.Remaining)
		return nil
	})
	if errors.Is(err, errAlreadyReserved) {
		// Duplicate submit retry: this workflow already reserved.
		s.logger.Warn("Reservation already recorded", "workflow_id", workflowID)
		return nil
	}
	return err
}

// Refund reverses the workflow's reserved amount exactly once. Invoking it
// again, including duplicate cancel/reject races, is a no-op: the unique
// (workflow, REFUND) adjustment row is the idempotency guard.
func (s *LedgerService) Refund(ctx context.Context, workflowID int64) error {
	reserved, err := s.ledgerRepo.GetAdjustment(ctx, workflowID, entity.AdjustmentReserve)
	if err != nil {
		return fmt.Errorf("get reservation: %w", err)
	}
	if reserved == nil {
		// Nothing was reserved for this workflow; nothing to reverse.
		return nil
	}

	refunded, err := s.ledgerRepo.GetAdjustment(ctx, workflowID, entity.AdjustmentRefund)
	if err != nil {
		return fmt.Errorf("get refund: %w", err)
	}
	if refunded != nil {
		s.logger.Info("Refund already applied", "workflow_id", workflowID)
		return nil
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		adj := &entity.LedgerAdjustment{
			WorkflowID:     workflowID,
			LedgerID:       reserved.LedgerID,
			AdjustmentType: entity.AdjustmentRefund,
			Amount:         reserved.Amount,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      time.Now(),
		}
		if err := s.ledgerRepo.RecordAdjustment(txCtx, adj); err != nil {
			if errors.Is(err, workflow.ErrConflict) {
				// Lost the race against a concurrent refund; the winner already
				// restored the balance.
				return nil
			}
			return fmt.Errorf("record refund: %w", err)
		}

		bal, err := s.ledgerRepo.GetBalanceByID(txCtx, reserved.LedgerID)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		if bal == nil {
			return fmt.Errorf("%w: ledger record %d", workflow.ErrNotFound, reserved.LedgerID)
		}

		bal.Remaining += reserved.Amount
		bal.Consumed -= reserved.Amount
		if bal.Consumed < 0 {
			bal.Consumed = 0
		}
		if err := s.ledgerRepo.UpdateBalance(txCtx, bal, bal.Version); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		s.logger.Info("Balance refunded",
			"workflow_id", workflowID, "amount", reserved.Amount, "remaining", bal.Remaining)
		return nil
	})
}

// Balances returns the owner's balance rows
func (s *LedgerService) Balances(ctx context.Context, ownerID int64) ([]*entity.LedgerRecord, error) {
	return s.ledgerRepo.ListBalances(ctx, ownerID)
}

// provisionDefaults creates balance rows for all default categories, with the
// requested category already debited, and returns that category's row.
func (s *LedgerService) provisionDefaults(ctx context.Context, ownerID int64, category string, amount float64) (*entity.LedgerRecord, error) {
	var debited *entity.LedgerRecord

	categories := DefaultCategories
	if !containsCategory(categories, category) {
		categories = append(append([]string{}, categories...), category)
	}

	for _, c := range categories {
		rec := &entity.LedgerRecord{
			OwnerID:          ownerID,
			Category:         c,
			TotalEntitlement: DefaultEntitlementDays,
			Consumed:         0,
			Remaining:        DefaultEntitlementDays,
		}
		if c == category {
			rec.Consumed = amount
			rec.Remaining = DefaultEntitlementDays - amount
		}
		if err := s.ledgerRepo.CreateBalance(ctx, rec); err != nil {
			return nil, fmt.Errorf("provision balance %s: %w", c, err)
		}
		if c == category {
			debited = rec
		}
	}
	return debited, nil
}

func containsCategory(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
