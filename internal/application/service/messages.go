package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// Notification delivery is best-effort and at-most-once: every path below
// logs failures and returns; a failed send never rolls back a transition and
// is never retried automatically.

// notifySubmitted tells the first responsible party a new item awaits them
func (e *engineImpl) notifySubmitted(ctx context.Context, policy workflow.Policy, rec *entity.WorkflowRecord, subj *entity.SubjectRecord) {
	responsible, err := e.routing.ResolveResponsible(ctx, policy, subj, subj.Status, 1)
	if err != nil {
		if errors.Is(err, workflow.ErrNotConfigured) {
			e.logger.Warn("No first approver configured, workflow stalls until routing is fixed",
				"workflow_id", rec.ID, "kind", rec.Kind)
		} else {
			e.logger.Error("Failed to resolve first approver", "workflow_id", rec.ID, "error", err)
		}
		return
	}

	subject := fmt.Sprintf("Approval required - %s", displayKind(rec))
	body := fmt.Sprintf("<p>%s has submitted %q for your review.</p>", submitterLabel(subj), subj.Title)
	if rec.Kind == workflow.KindTask {
		subject = fmt.Sprintf("New task assigned - %s", subj.Title)
		body = fmt.Sprintf("<p>A new task %q has been assigned to you.</p>", subj.Title)
	}
	e.send(ctx, rec, responsible, subject, body)
}

// notifyNextResponsible tells the party now owing an action that the workflow
// reached them. A NotConfigured resolution stalls the workflow visibly at the
// next level; the recorded decision is never lost over it.
func (e *engineImpl) notifyNextResponsible(ctx context.Context, policy workflow.Policy, rec *entity.WorkflowRecord, subj *entity.SubjectRecord, status workflow.Status, level int) {
	responsible, err := e.routing.ResolveResponsible(ctx, policy, subj, status, level)
	if err != nil {
		if errors.Is(err, workflow.ErrNotConfigured) {
			e.logger.Warn("No approver configured for next level, workflow stalls",
				"workflow_id", rec.ID, "level", level)
		} else {
			e.logger.Error("Failed to resolve next approver", "workflow_id", rec.ID, "level", level, "error", err)
		}
		return
	}

	subject := fmt.Sprintf("Approval required - %s", displayKind(rec))
	body := fmt.Sprintf("<p>Please review %s %q.</p>", displayKind(rec), subj.Title)
	if rec.Kind == workflow.KindTask {
		subject = fmt.Sprintf("Task update - %s", subj.Title)
		body = fmt.Sprintf("<p>Task %q is now %s.</p>", subj.Title, status)
	}
	e.send(ctx, rec, responsible, subject, body)
}

// notifySubmitterDecision tells the original submitter their item reached a
// terminal decision
func (e *engineImpl) notifySubmitterDecision(ctx context.Context, rec *entity.WorkflowRecord, subj *entity.SubjectRecord, status workflow.Status) {
	subject := fmt.Sprintf("Your submission has been %s", status)
	body := fmt.Sprintf("<p>Your %s (%q) has been %s.</p>", displayKind(rec), subj.Title, status)
	e.send(ctx, rec, rec.SubmitterID, subject, body)
}

// send resolves the recipient's e-mail and dispatches, swallowing failures
func (e *engineImpl) send(ctx context.Context, rec *entity.WorkflowRecord, userID int64, subject, body string) {
	email, err := e.directory.ResolveEmail(ctx, userID)
	if err != nil {
		e.logger.Error("Failed to resolve recipient email",
			"workflow_id", rec.ID, "user_id", userID, "error", err)
		return
	}
	if err := e.notifier.Send(ctx, []string{email}, subject, body); err != nil {
		e.logger.Error("Notification failed",
			"workflow_id", rec.ID, "recipient", email, "error", err)
	}
}

func displayKind(rec *entity.WorkflowRecord) string {
	if rec.DocType != "" {
		return rec.DocType.String()
	}
	switch rec.Kind {
	case workflow.KindLeaveRequest:
		return "leave request"
	case workflow.KindTask:
		return "task"
	}
	return rec.Kind.String()
}

func submitterLabel(subj *entity.SubjectRecord) string {
	if subj.Leave != nil && subj.Leave.EmployeeName != "" {
		return subj.Leave.EmployeeName
	}
	if subj.Title != "" {
		return subj.Title
	}
	return "A colleague"
}
