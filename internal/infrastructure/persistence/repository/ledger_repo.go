package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
	"github.com/elevix/approval-flow/internal/infrastructure/persistence/sqlite"
)

// LedgerRepository implements port.LedgerRepository
type LedgerRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlite.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{db: db, logger: logger}
}

const balanceColumns = `id, owner_id, category, total_entitlement, consumed, remaining, version, created_at, updated_at`

// GetBalance retrieves the balance row for (owner, category), or nil
func (r *LedgerRepository) GetBalance(ctx context.Context, ownerID int64, category string) (*entity.LedgerRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE owner_id = ? AND category = ?`
	return r.scanBalance(ctx, query, ownerID, category)
}

// GetBalanceByID retrieves a balance row by primary key, or nil
func (r *LedgerRepository) GetBalanceByID(ctx context.Context, id int64) (*entity.LedgerRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE id = ?`
	return r.scanBalance(ctx, query, id)
}

// ListBalances retrieves all balance rows for an owner
func (r *LedgerRepository) ListBalances(ctx context.Context, ownerID int64) ([]*entity.LedgerRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE owner_id = ? ORDER BY category`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list balances", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []*entity.LedgerRecord
	for rows.Next() {
		var b entity.LedgerRecord
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Category, &b.TotalEntitlement,
			&b.Consumed, &b.Remaining, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, &b)
	}
	return balances, rows.Err()
}

// CreateBalance creates a new balance row
func (r *LedgerRepository) CreateBalance(ctx context.Context, rec *entity.LedgerRecord) error {
	query := `
		INSERT INTO leave_balances (owner_id, category, total_entitlement, consumed, remaining, version)
		VALUES (?, ?, ?, ?, ?, 1)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rec.OwnerID, rec.Category, rec.TotalEntitlement, rec.Consumed, rec.Remaining)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: balance %d/%s exists", workflow.ErrConflict, rec.OwnerID, rec.Category)
		}
		r.logger.Error("Failed to create balance", zap.Error(err))
		return fmt.Errorf("failed to create balance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	rec.Version = 1
	return nil
}

// UpdateBalance writes the balance amounts, guarded by the version token
func (r *LedgerRepository) UpdateBalance(ctx context.Context, rec *entity.LedgerRecord, expectedVersion int64) error {
	query := `
		UPDATE leave_balances SET
			total_entitlement = ?, consumed = ?, remaining = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rec.TotalEntitlement, rec.Consumed, rec.Remaining, rec.ID, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update balance", zap.Int64("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to update balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: balance %d", workflow.ErrConflict, rec.ID)
	}
	rec.Version++
	return nil
}

// RecordAdjustment inserts an adjustment row. The unique (workflow_id,
// adjustment_type) index is the exactly-once guard: a duplicate insert
// fails with workflow.ErrConflict.
func (r *LedgerRepository) RecordAdjustment(ctx context.Context, adj *entity.LedgerAdjustment) error {
	query := `
		INSERT INTO ledger_adjustments (workflow_id, ledger_id, adjustment_type, amount, idempotency_key)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		adj.WorkflowID, adj.LedgerID, adj.AdjustmentType, adj.Amount, adj.IdempotencyKey)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: adjustment %s for workflow %d already recorded",
				workflow.ErrConflict, adj.AdjustmentType, adj.WorkflowID)
		}
		r.logger.Error("Failed to record adjustment", zap.Error(err))
		return fmt.Errorf("failed to record adjustment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	adj.ID = id
	return nil
}

// GetAdjustment retrieves the adjustment of the given type for a workflow, or nil
func (r *LedgerRepository) GetAdjustment(ctx context.Context, workflowID int64, adjustmentType string) (*entity.LedgerAdjustment, error) {
	query := `
		SELECT id, workflow_id, ledger_id, adjustment_type, amount, idempotency_key, created_at
		FROM ledger_adjustments
		WHERE workflow_id = ? AND adjustment_type = ?
	`

	var adj entity.LedgerAdjustment
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, workflowID, adjustmentType).Scan(
		&adj.ID, &adj.WorkflowID, &adj.LedgerID, &adj.AdjustmentType,
		&adj.Amount, &adj.IdempotencyKey, &adj.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get adjustment",
			zap.Int64("workflow_id", workflowID), zap.String("type", adjustmentType), zap.Error(err))
		return nil, fmt.Errorf("failed to get adjustment: %w", err)
	}
	return &adj, nil
}

func (r *LedgerRepository) scanBalance(ctx context.Context, query string, args ...interface{}) (*entity.LedgerRecord, error) {
	var b entity.LedgerRecord
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(
		&b.ID, &b.OwnerID, &b.Category, &b.TotalEntitlement,
		&b.Consumed, &b.Remaining, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get balance", zap.Error(err))
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
