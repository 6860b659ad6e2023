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

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow record repository
func NewWorkflowRepository(db *sqlite.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id, reference, kind, doc_type, subject_id, status, current_level, submitter_id, version,
	level1_approver_id, level1_action, level1_comment, level1_action_date,
	level2_approver_id, level2_action, level2_comment, level2_action_date,
	level3_approver_id, level3_action, level3_comment, level3_action_date,
	created_at, updated_at`

// Create creates a new workflow record
func (r *WorkflowRepository) Create(ctx context.Context, rec *entity.WorkflowRecord) error {
	query := `
		INSERT INTO workflow_records (
			reference, kind, doc_type, subject_id, status, current_level, submitter_id, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rec.Reference,
		string(rec.Kind),
		nullString(string(rec.DocType)),
		rec.SubjectID,
		string(rec.Status),
		rec.CurrentLevel,
		rec.SubmitterID,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow record", zap.Error(err))
		return fmt.Errorf("failed to create workflow record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	rec.Version = 1
	return nil
}

// GetByID retrieves a workflow record by ID
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowRecord, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_records WHERE id = ?`
	return r.scanOne(ctx, query, id)
}

// GetByReference retrieves a workflow record by its external reference
func (r *WorkflowRepository) GetByReference(ctx context.Context, reference string) (*entity.WorkflowRecord, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_records WHERE reference = ?`
	return r.scanOne(ctx, query, reference)
}

// List retrieves workflow records matching the filter, newest first
func (r *WorkflowRepository) List(ctx context.Context, filter port.WorkflowFilter) ([]*entity.WorkflowRecord, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_records WHERE 1=1`
	args := []interface{}{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.SubmitterID != 0 {
		query += " AND submitter_id = ?"
		args = append(args, filter.SubmitterID)
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list workflow records", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow records: %w", err)
	}
	defer rows.Close()

	var records []*entity.WorkflowRecord
	for rows.Next() {
		rec, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update writes the record's mutable fields, guarded by the version token.
// It fails with workflow.ErrConflict when the row changed since it was loaded.
func (r *WorkflowRepository) Update(ctx context.Context, rec *entity.WorkflowRecord, expectedVersion int64) error {
	query := `
		UPDATE workflow_records SET
			status = ?, current_level = ?,
			level1_approver_id = ?, level1_action = ?, level1_comment = ?, level1_action_date = ?,
			level2_approver_id = ?, level2_action = ?, level2_comment = ?, level2_action_date = ?,
			level3_approver_id = ?, level3_action = ?, level3_comment = ?, level3_action_date = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	args := []interface{}{string(rec.Status), rec.CurrentLevel}
	for i := 0; i < entity.MaxLevels; i++ {
		a := rec.Levels[i]
		args = append(args, nullInt64(a.ApproverID), nullString(string(a.Action)), nullString(a.Comment), a.ActionDate)
	}
	args = append(args, rec.ID, expectedVersion)

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update workflow record", zap.Int64("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetByID(ctx, rec.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: workflow record %d", workflow.ErrNotFound, rec.ID)
		}
		return fmt.Errorf("%w: workflow record %d at version %d", workflow.ErrConflict, rec.ID, existing.Version)
	}
	return nil
}

func (r *WorkflowRepository) scanOne(ctx context.Context, query string, arg interface{}) (*entity.WorkflowRecord, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, arg)
	rec, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow record", zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow record: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*entity.WorkflowRecord, error) {
	var rec entity.WorkflowRecord
	var docType sql.NullString
	var approvers [entity.MaxLevels]sql.NullInt64
	var actions, comments [entity.MaxLevels]sql.NullString
	var dates [entity.MaxLevels]sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.Reference, &rec.Kind, &docType, &rec.SubjectID, &rec.Status,
		&rec.CurrentLevel, &rec.SubmitterID, &rec.Version,
		&approvers[0], &actions[0], &comments[0], &dates[0],
		&approvers[1], &actions[1], &comments[1], &dates[1],
		&approvers[2], &actions[2], &comments[2], &dates[2],
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if docType.Valid {
		rec.DocType = workflow.DocType(docType.String)
	}
	for i := 0; i < entity.MaxLevels; i++ {
		audit := entity.LevelAudit{}
		if approvers[i].Valid {
			audit.ApproverID = approvers[i].Int64
		}
		if actions[i].Valid {
			audit.Action = workflow.Decision(actions[i].String)
		}
		if comments[i].Valid {
			audit.Comment = comments[i].String
		}
		if dates[i].Valid {
			t := dates[i].Time
			audit.ActionDate = &t
		}
		rec.Levels[i] = audit
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
