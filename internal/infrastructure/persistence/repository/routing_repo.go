package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
	"github.com/elevix/approval-flow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RoutingRepository implements port.RoutingRepository
type RoutingRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRoutingRepository creates a new routing table repository
func NewRoutingRepository(db *sqlite.DB, logger *zap.Logger) port.RoutingRepository {
	return &RoutingRepository{db: db, logger: logger}
}

// ActiveEntry returns the first active entry for (docType, level), or nil
// when none is configured. When several entries match, the lowest id wins;
// the routing convention is pick-one, not broadcast.
func (r *RoutingRepository) ActiveEntry(ctx context.Context, docType workflow.DocType, level int) (*entity.RoutingEntry, error) {
	query := `
		SELECT id, doc_type, level, approver_id, is_active, created_at
		FROM routing_entries
		WHERE doc_type = ? AND level = ? AND is_active = 1
		ORDER BY id
		LIMIT 1
	`

	var e entity.RoutingEntry
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, string(docType), level).Scan(
		&e.ID, &e.DocType, &e.Level, &e.ApproverID, &e.IsActive, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get routing entry",
			zap.String("doc_type", string(docType)), zap.Int("level", level), zap.Error(err))
		return nil, fmt.Errorf("failed to get routing entry: %w", err)
	}
	return &e, nil
}

// Create creates a new routing entry
func (r *RoutingRepository) Create(ctx context.Context, e *entity.RoutingEntry) error {
	query := `
		INSERT INTO routing_entries (doc_type, level, approver_id, is_active)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		string(e.DocType), e.Level, e.ApproverID, e.IsActive)
	if err != nil {
		r.logger.Error("Failed to create routing entry", zap.Error(err))
		return fmt.Errorf("failed to create routing entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}
