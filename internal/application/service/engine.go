package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/permission"
	"github.com/elevix/approval-flow/internal/domain/workflow"
	"github.com/elevix/approval-flow/pkg/utils"
)

// SubmitRequest carries everything needed to open a new workflow. Exactly one
// of Document, Leave or Task must be set, matching Kind.
type SubmitRequest struct {
	Kind        workflow.Kind
	SubmitterID int64
	Title       string
	Document    *entity.DocumentFields
	Leave       *entity.LeaveFields
	Task        *entity.TaskFields
}

// TransitionEngine executes workflow state transitions. Every operation takes
// the acting user explicitly; identity is never read from ambient context.
type TransitionEngine interface {
	Submit(ctx context.Context, req SubmitRequest) (*entity.WorkflowRecord, error)
	Advance(ctx context.Context, workflowID, actingUser int64, comment string) (*entity.WorkflowRecord, error)
	Reject(ctx context.Context, workflowID, actingUser int64, comment string) (*entity.WorkflowRecord, error)
	Cancel(ctx context.Context, workflowID, actingUser int64) (*entity.WorkflowRecord, error)
	Capabilities(ctx context.Context, workflowID, viewerID int64) (permission.CapabilitySet, error)
	Get(ctx context.Context, workflowID int64) (*entity.WorkflowRecord, *entity.SubjectRecord, error)
	List(ctx context.Context, filter port.WorkflowFilter) ([]*entity.WorkflowRecord, error)
}

type engineImpl struct {
	workflowRepo port.WorkflowRepository
	subjectRepo  port.SubjectRepository
	routing      *RoutingService
	ledger       *LedgerService
	directory    port.DirectoryResolver
	notifier     port.Notifier
	logger       Logger
}

// NewTransitionEngine creates a new TransitionEngine
func NewTransitionEngine(
	workflowRepo port.WorkflowRepository,
	subjectRepo port.SubjectRepository,
	routing *RoutingService,
	ledger *LedgerService,
	directory port.DirectoryResolver,
	notifier port.Notifier,
	logger Logger,
) TransitionEngine {
	return &engineImpl{
		workflowRepo: workflowRepo,
		subjectRepo:  subjectRepo,
		routing:      routing,
		ledger:       ledger,
		directory:    directory,
		notifier:     notifier,
		logger:       logger,
	}
}

// Submit creates the subject record first, then the workflow record holding a
// reference to it, reserves the leave balance where applicable, and notifies
// the first responsible party.
func (e *engineImpl) Submit(ctx context.Context, req SubmitRequest) (*entity.WorkflowRecord, error) {
	policy, err := workflow.PolicyFor(req.Kind)
	if err != nil {
		return nil, err
	}
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	subj := &entity.SubjectRecord{
		Kind:         req.Kind,
		Title:        req.Title,
		Status:       policy.InitialStatus(),
		CurrentLevel: 1,
		Document:     req.Document,
		Leave:        req.Leave,
		Task:         req.Task,
	}
	if err := e.subjectRepo.Create(ctx, subj); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}

	rec := &entity.WorkflowRecord{
		Reference:    uuid.NewString(),
		Kind:         req.Kind,
		SubjectID:    subj.ID,
		Status:       subj.Status,
		CurrentLevel: 1,
		SubmitterID:  req.SubmitterID,
	}
	if req.Document != nil {
		rec.DocType = req.Document.DocType
	}
	if err := e.workflowRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	// Balance is reserved before any approval decision; a failure here is
	// reconciled on a later read, the submission itself stands.
	if req.Kind == workflow.KindLeaveRequest {
		if err := e.ledger.Reserve(ctx, req.SubmitterID, req.Leave.LeaveType, req.Leave.Days, rec.ID); err != nil {
			e.logger.Error("Failed to reserve leave balance", "workflow_id", rec.ID, "error", err)
		}
	}

	e.notifySubmitted(ctx, policy, rec, subj)

	e.logger.Info("Workflow submitted",
		"workflow_id", rec.ID, "reference", rec.Reference, "kind", rec.Kind, "submitter_id", rec.SubmitterID)
	return rec, nil
}

// Advance moves the workflow one step forward: records the acting approver's
// decision at the current level, then advances the subject's level or settles
// the terminal Approved status, then fans out the notification. The three
// writes are independent; a failure between them leaves a recoverable state
// reconciled on the next read.
func (e *engineImpl) Advance(ctx context.Context, workflowID, actingUser int64, comment string) (*entity.WorkflowRecord, error) {
	rec, subj, err := e.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	policy, err := workflow.PolicyFor(rec.Kind)
	if err != nil {
		return nil, err
	}

	status, level := rec.Status, policy.ClampLevel(rec.CurrentLevel)
	if status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", workflow.ErrAlreadyTerminal, status)
	}

	caps := e.capabilities(ctx, policy, rec, subj, actingUser)
	if !caps.Has(permission.CapAdvance) {
		return nil, fmt.Errorf("%w: advance", workflow.ErrUnauthorized)
	}

	nextStatus, nextLevel, err := policy.NextOnAdvance(status, level)
	if err != nil {
		return nil, err
	}
	if err := policy.Machine(status).Fire(workflow.TriggerAdvance, nextStatus); err != nil {
		return nil, err
	}

	if policy.AuditsDecision(nextStatus) {
		err = e.recordDecision(ctx, rec, level, actingUser, workflow.DecisionApproved, comment, nextStatus, nextLevel)
	} else {
		err = e.refreshCachedState(ctx, rec, nextStatus, nextLevel)
	}
	if err != nil {
		return nil, err
	}

	subj.Status = nextStatus
	subj.CurrentLevel = nextLevel
	appendTaskComment(subj, actingUser, nextStatus, comment)
	if subj.Leave != nil && nextStatus.IsTerminal() {
		now := time.Now()
		subj.Leave.DecidedAt = &now
	}
	if err := e.subjectRepo.Update(ctx, subj, subj.Version); err != nil {
		// Decision is recorded on the workflow record; the subject still shows
		// the old level, so the same advance can be retried after a reload.
		return nil, fmt.Errorf("update subject: %w", err)
	}

	if nextStatus.IsTerminal() {
		e.notifySubmitterDecision(ctx, rec, subj, nextStatus)
	} else {
		e.notifyNextResponsible(ctx, policy, rec, subj, nextStatus, nextLevel)
	}

	e.logger.Info("Workflow advanced",
		"workflow_id", rec.ID, "level", nextLevel, "status", nextStatus, "acting_user", actingUser)
	return rec, nil
}

// Reject is terminal regardless of level: both records settle on Rejected,
// the decision is recorded at the current level only, the submitter is
// notified and any reserved balance is refunded.
func (e *engineImpl) Reject(ctx context.Context, workflowID, actingUser int64, comment string) (*entity.WorkflowRecord, error) {
	rec, subj, err := e.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	policy, err := workflow.PolicyFor(rec.Kind)
	if err != nil {
		return nil, err
	}

	status, level := rec.Status, policy.ClampLevel(rec.CurrentLevel)
	if status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", workflow.ErrAlreadyTerminal, status)
	}

	caps := e.capabilities(ctx, policy, rec, subj, actingUser)
	if !caps.Has(permission.CapReject) {
		return nil, fmt.Errorf("%w: reject", workflow.ErrUnauthorized)
	}

	if err := policy.Machine(status).Fire(workflow.TriggerReject, workflow.StatusRejected); err != nil {
		return nil, err
	}

	if err := e.recordDecision(ctx, rec, level, actingUser, workflow.DecisionRejected, comment, workflow.StatusRejected, level); err != nil {
		return nil, err
	}

	subj.Status = workflow.StatusRejected
	appendTaskComment(subj, actingUser, workflow.StatusRejected, comment)
	if subj.Leave != nil {
		now := time.Now()
		subj.Leave.DecidedAt = &now
	}
	if err := e.subjectRepo.Update(ctx, subj, subj.Version); err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}

	if rec.Kind == workflow.KindLeaveRequest {
		if err := e.ledger.Refund(ctx, rec.ID); err != nil {
			// Refund is retried on the next read path, never blocks the transition.
			e.logger.Error("Failed to refund leave balance", "workflow_id", rec.ID, "error", err)
		}
	}

	e.notifySubmitterDecision(ctx, rec, subj, workflow.StatusRejected)

	e.logger.Info("Workflow rejected",
		"workflow_id", rec.ID, "level", level, "acting_user", actingUser)
	return rec, nil
}

// Cancel withdraws a workflow. Only the submitter may cancel, only while the
// workflow is still pending; no comment is required and any reserved balance
// is refunded exactly once.
func (e *engineImpl) Cancel(ctx context.Context, workflowID, actingUser int64) (*entity.WorkflowRecord, error) {
	rec, subj, err := e.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	policy, err := workflow.PolicyFor(rec.Kind)
	if err != nil {
		return nil, err
	}

	if rec.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", workflow.ErrAlreadyTerminal, rec.Status)
	}

	caps := e.capabilities(ctx, policy, rec, subj, actingUser)
	if !caps.Has(permission.CapCancel) {
		return nil, fmt.Errorf("%w: cancel", workflow.ErrUnauthorized)
	}

	if err := policy.Machine(rec.Status).Fire(workflow.TriggerCancel, workflow.StatusCancelled); err != nil {
		return nil, err
	}

	rec.Status = workflow.StatusCancelled
	if err := e.workflowRepo.Update(ctx, rec, rec.Version); err != nil {
		return nil, fmt.Errorf("update workflow: %w", err)
	}
	rec.Version++

	subj.Status = workflow.StatusCancelled
	if err := e.subjectRepo.Update(ctx, subj, subj.Version); err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}

	if rec.Kind == workflow.KindLeaveRequest {
		if err := e.ledger.Refund(ctx, rec.ID); err != nil {
			e.logger.Error("Failed to refund leave balance", "workflow_id", rec.ID, "error", err)
		}
	}

	e.logger.Info("Workflow cancelled", "workflow_id", rec.ID, "acting_user", actingUser)
	return rec, nil
}

// Capabilities computes the viewer's capability set with the same rule the
// mutating operations enforce.
func (e *engineImpl) Capabilities(ctx context.Context, workflowID, viewerID int64) (permission.CapabilitySet, error) {
	rec, subj, err := e.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	policy, err := workflow.PolicyFor(rec.Kind)
	if err != nil {
		return nil, err
	}
	return e.capabilities(ctx, policy, rec, subj, viewerID), nil
}

// Get returns the workflow record with its subject, reconciled
func (e *engineImpl) Get(ctx context.Context, workflowID int64) (*entity.WorkflowRecord, *entity.SubjectRecord, error) {
	rec, subj, err := e.load(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	return rec, subj, nil
}

// List returns workflow records matching the filter. The ResponsibleID
// filter is resolved here record by record: responsibility is a function of
// routing and current status, so the repository cannot answer it alone.
func (e *engineImpl) List(ctx context.Context, filter port.WorkflowFilter) ([]*entity.WorkflowRecord, error) {
	records, err := e.workflowRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.ResponsibleID == 0 {
		return records, nil
	}

	matched := make([]*entity.WorkflowRecord, 0, len(records))
	for _, rec := range records {
		subj, err := e.subjectRepo.GetByID(ctx, rec.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("get subject: %w", err)
		}
		if subj == nil || subj.Status.IsTerminal() {
			continue
		}
		policy, err := workflow.PolicyFor(rec.Kind)
		if err != nil {
			continue
		}
		responsible, err := e.routing.ResolveResponsible(ctx, policy, subj, subj.Status, subj.CurrentLevel)
		if err != nil {
			// An unconfigured route simply means nobody is responsible yet.
			continue
		}
		if responsible == filter.ResponsibleID {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// load fetches both records and reconciles the workflow record's cached
// status and level from the subject, which is ground truth.
func (e *engineImpl) load(ctx context.Context, workflowID int64) (*entity.WorkflowRecord, *entity.SubjectRecord, error) {
	rec, err := e.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("get workflow: %w", err)
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("%w: workflow %d", workflow.ErrNotFound, workflowID)
	}

	subj, err := e.subjectRepo.GetByID(ctx, rec.SubjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("get subject: %w", err)
	}
	if subj == nil {
		return nil, nil, fmt.Errorf("%w: subject %d", workflow.ErrNotFound, rec.SubjectID)
	}

	rec.Status = subj.Status
	rec.CurrentLevel = subj.CurrentLevel

	e.reconcileLedger(ctx, rec, subj)

	return rec, subj, nil
}

// reconcileLedger retries the leave ledger side effect that matches the
// subject's settled state. Reserve and Refund are both idempotent, so this
// repairs a write that failed when its transition committed and costs a
// single lookup otherwise.
func (e *engineImpl) reconcileLedger(ctx context.Context, rec *entity.WorkflowRecord, subj *entity.SubjectRecord) {
	if rec.Kind != workflow.KindLeaveRequest || subj.Leave == nil {
		return
	}

	var err error
	switch subj.Status {
	case workflow.StatusRejected, workflow.StatusCancelled:
		err = e.ledger.Refund(ctx, rec.ID)
	case workflow.StatusPending:
		err = e.ledger.Reserve(ctx, rec.SubmitterID, subj.Leave.LeaveType, subj.Leave.Days, rec.ID)
	}
	if err != nil {
		e.logger.Warn("Ledger reconciliation failed", "workflow_id", rec.ID, "error", err)
	}
}

// capabilities resolves the current responsible party and runs the pure
// calculator. A NotConfigured resolution yields no responsible party, which
// stalls the workflow visibly instead of failing the read.
func (e *engineImpl) capabilities(ctx context.Context, policy workflow.Policy, rec *entity.WorkflowRecord, subj *entity.SubjectRecord, viewerID int64) permission.CapabilitySet {
	var responsible int64
	if !rec.Status.IsTerminal() {
		id, err := e.routing.ResolveResponsible(ctx, policy, subj, rec.Status, policy.ClampLevel(rec.CurrentLevel))
		if err != nil && !errors.Is(err, workflow.ErrNotConfigured) {
			e.logger.Error("Failed to resolve responsible party", "workflow_id", rec.ID, "error", err)
		}
		responsible = id
	}
	return permission.Compute(viewerID, rec, subj, responsible, policy)
}

// recordDecision writes the per-level audit fields and the cached status and
// level onto the workflow record with a version check. Re-applying a decision
// that is already recorded identically is not an error: a retry after a
// partial failure skips straight to the subject write.
func (e *engineImpl) recordDecision(ctx context.Context, rec *entity.WorkflowRecord, level int, actingUser int64, decision workflow.Decision, comment string, nextStatus workflow.Status, nextLevel int) error {
	existing := rec.AuditAt(level)
	if existing.IsSet() && existing.ApproverID == actingUser && existing.Action == decision {
		e.logger.Warn("Decision already recorded, retrying subject update",
			"workflow_id", rec.ID, "level", level, "acting_user", actingUser)
		rec.Status = nextStatus
		rec.CurrentLevel = nextLevel
		return nil
	}
	if existing.IsSet() {
		return fmt.Errorf("%w: level %d already decided", workflow.ErrConflict, level)
	}

	now := time.Now()
	rec.SetAuditAt(level, entity.LevelAudit{
		ApproverID: actingUser,
		Action:     decision,
		Comment:    comment,
		ActionDate: &now,
	})
	rec.Status = nextStatus
	rec.CurrentLevel = nextLevel

	if err := e.workflowRepo.Update(ctx, rec, rec.Version); err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	rec.Version++
	return nil
}

// refreshCachedState bumps the workflow record's cached status and level
// without touching the audit fields, used for unaudited ping-pong steps.
func (e *engineImpl) refreshCachedState(ctx context.Context, rec *entity.WorkflowRecord, nextStatus workflow.Status, nextLevel int) error {
	rec.Status = nextStatus
	rec.CurrentLevel = nextLevel
	if err := e.workflowRepo.Update(ctx, rec, rec.Version); err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	rec.Version++
	return nil
}

// appendTaskComment appends a dated entry to the task's comment history
func appendTaskComment(subj *entity.SubjectRecord, actingUser int64, status workflow.Status, comment string) {
	if subj == nil || subj.Task == nil || comment == "" {
		return
	}
	entry := fmt.Sprintf("[%s - user %d] %s: %s", time.Now().Format(time.RFC3339), actingUser, status, comment)
	if subj.Task.CommentsHistory == "" {
		subj.Task.CommentsHistory = entry
		return
	}
	subj.Task.CommentsHistory = subj.Task.CommentsHistory + "\n" + entry
}

func validateSubmit(req SubmitRequest) error {
	if req.SubmitterID == 0 {
		return fmt.Errorf("%w: submitter is required", workflow.ErrInvalidInput)
	}
	switch req.Kind {
	case workflow.KindDocumentApproval:
		if req.Document == nil || !req.Document.DocType.IsValid() {
			return fmt.Errorf("%w: document fields with a valid doc type are required", workflow.ErrInvalidInput)
		}
	case workflow.KindLeaveRequest:
		if req.Leave == nil {
			return fmt.Errorf("%w: leave fields are required", workflow.ErrInvalidInput)
		}
		if req.Leave.Days <= 0 {
			return fmt.Errorf("%w: leave days must be positive", workflow.ErrInvalidInput)
		}
		if err := utils.ValidateDateRange(req.Leave.StartDate, req.Leave.EndDate); err != nil {
			return fmt.Errorf("%w: %v", workflow.ErrInvalidInput, err)
		}
	case workflow.KindTask:
		if req.Task == nil || req.Task.AssignedToID == 0 {
			return fmt.Errorf("%w: task fields with an assignee are required", workflow.ErrInvalidInput)
		}
	}
	return nil
}
