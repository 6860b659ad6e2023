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

// SubjectRepository implements port.SubjectRepository. All three kinds share
// one table with nullable payload columns, mirroring a generic list store.
type SubjectRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewSubjectRepository creates a new subject record repository
func NewSubjectRepository(db *sqlite.DB, logger *zap.Logger) port.SubjectRepository {
	return &SubjectRepository{db: db, logger: logger}
}

const subjectColumns = `
	id, kind, title, status, current_level, version,
	doc_type, doc_number, counterparty, department, amount, doc_date,
	employee_name, leave_type, start_date, end_date, days, reason, manager_id,
	half_day_start, half_day_end, decided_at,
	description, assigned_by_id, assigned_to_id, due_date, priority, comments_history,
	created_at, updated_at`

// Create creates a new subject record
func (r *SubjectRepository) Create(ctx context.Context, subj *entity.SubjectRecord) error {
	query := `
		INSERT INTO subject_records (
			kind, title, status, current_level, version,
			doc_type, doc_number, counterparty, department, amount, doc_date,
			employee_name, leave_type, start_date, end_date, days, reason, manager_id,
			half_day_start, half_day_end,
			description, assigned_by_id, assigned_to_id, due_date, priority, comments_history
		) VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{string(subj.Kind), subj.Title, string(subj.Status), subj.CurrentLevel}

	d := subj.Document
	if d != nil {
		args = append(args, string(d.DocType), nullString(d.DocNumber), nullString(d.Counterparty),
			nullString(d.Department), d.Amount, d.DocDate)
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil)
	}

	l := subj.Leave
	if l != nil {
		args = append(args, l.EmployeeName, l.LeaveType, l.StartDate, l.EndDate, l.Days,
			nullString(l.Reason), nullInt64(l.ManagerID), l.HalfDayStart, l.HalfDayEnd)
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	}

	t := subj.Task
	if t != nil {
		args = append(args, nullString(t.Description), nullInt64(t.AssignedByID), nullInt64(t.AssignedToID),
			t.DueDate, nullString(t.Priority), nullString(t.CommentsHistory))
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to create subject record", zap.Error(err))
		return fmt.Errorf("failed to create subject record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	subj.ID = id
	subj.Version = 1
	return nil
}

// GetByID retrieves a subject record by ID
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*entity.SubjectRecord, error) {
	query := `SELECT ` + subjectColumns + ` FROM subject_records WHERE id = ?`

	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	subj, err := scanSubject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get subject record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get subject record: %w", err)
	}
	return subj, nil
}

// Update writes the record's mutable fields, guarded by the version token.
// Fails with workflow.ErrConflict when the row changed since it was loaded.
func (r *SubjectRepository) Update(ctx context.Context, subj *entity.SubjectRecord, expectedVersion int64) error {
	query := `
		UPDATE subject_records SET
			title = ?, status = ?, current_level = ?,
			description = ?, assigned_to_id = ?, due_date = ?, priority = ?, comments_history = ?,
			decided_at = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	var description, priority, comments sql.NullString
	var assignedTo sql.NullInt64
	var dueDate interface{}
	if subj.Task != nil {
		description = nullString(subj.Task.Description)
		priority = nullString(subj.Task.Priority)
		comments = nullString(subj.Task.CommentsHistory)
		assignedTo = nullInt64(subj.Task.AssignedToID)
		dueDate = subj.Task.DueDate
	}
	var decidedAt interface{}
	if subj.Leave != nil {
		decidedAt = subj.Leave.DecidedAt
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		subj.Title, string(subj.Status), subj.CurrentLevel,
		description, assignedTo, dueDate, priority, comments,
		decidedAt,
		subj.ID, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update subject record", zap.Int64("id", subj.ID), zap.Error(err))
		return fmt.Errorf("failed to update subject record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetByID(ctx, subj.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: subject record %d", workflow.ErrNotFound, subj.ID)
		}
		return fmt.Errorf("%w: subject record %d at version %d", workflow.ErrConflict, subj.ID, existing.Version)
	}
	subj.Version++
	return nil
}

func scanSubject(row rowScanner) (*entity.SubjectRecord, error) {
	var subj entity.SubjectRecord

	var docType, docNumber, counterparty, department sql.NullString
	var amount sql.NullFloat64
	var docDate sql.NullTime

	var employeeName, leaveType, reason sql.NullString
	var startDate, endDate, decidedAt sql.NullTime
	var days sql.NullFloat64
	var managerID sql.NullInt64
	var halfDayStart, halfDayEnd sql.NullBool

	var description, priority, comments sql.NullString
	var assignedBy, assignedTo sql.NullInt64
	var dueDate sql.NullTime

	err := row.Scan(
		&subj.ID, &subj.Kind, &subj.Title, &subj.Status, &subj.CurrentLevel, &subj.Version,
		&docType, &docNumber, &counterparty, &department, &amount, &docDate,
		&employeeName, &leaveType, &startDate, &endDate, &days, &reason, &managerID,
		&halfDayStart, &halfDayEnd, &decidedAt,
		&description, &assignedBy, &assignedTo, &dueDate, &priority, &comments,
		&subj.CreatedAt, &subj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch subj.Kind {
	case workflow.KindDocumentApproval:
		d := &entity.DocumentFields{
			DocType:      workflow.DocType(docType.String),
			DocNumber:    docNumber.String,
			Counterparty: counterparty.String,
			Department:   department.String,
			Amount:       amount.Float64,
		}
		if docDate.Valid {
			t := docDate.Time
			d.DocDate = &t
		}
		subj.Document = d

	case workflow.KindLeaveRequest:
		l := &entity.LeaveFields{
			EmployeeName: employeeName.String,
			LeaveType:    leaveType.String,
			StartDate:    startDate.Time,
			EndDate:      endDate.Time,
			Days:         days.Float64,
			Reason:       reason.String,
			ManagerID:    managerID.Int64,
			HalfDayStart: halfDayStart.Bool,
			HalfDayEnd:   halfDayEnd.Bool,
		}
		if decidedAt.Valid {
			t := decidedAt.Time
			l.DecidedAt = &t
		}
		subj.Leave = l

	case workflow.KindTask:
		t := &entity.TaskFields{
			Description:     description.String,
			AssignedByID:    assignedBy.Int64,
			AssignedToID:    assignedTo.Int64,
			Priority:        priority.String,
			CommentsHistory: comments.String,
		}
		if dueDate.Valid {
			d := dueDate.Time
			t.DueDate = &d
		}
		subj.Task = t
	}

	return &subj, nil
}
