package service

import (
	"context"
	"fmt"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RoutingService is the approval policy resolver: given a policy, a subject
// and a position in the chain, it answers who acts next.
type RoutingService struct {
	routingRepo port.RoutingRepository
	logger      Logger
}

// NewRoutingService creates a new RoutingService
func NewRoutingService(routingRepo port.RoutingRepository, logger Logger) *RoutingService {
	return &RoutingService{routingRepo: routingRepo, logger: logger}
}

// ResolveResponsible returns the identity responsible for the workflow at the
// given status and level. It returns workflow.ErrNotConfigured (never panics,
// never invents an approver) when no active routing entry exists; the engine
// treats that as a terminal failure of the specific advance attempt.
func (s *RoutingService) ResolveResponsible(ctx context.Context, policy workflow.Policy, subj *entity.SubjectRecord, status workflow.Status, level int) (int64, error) {
	role, err := policy.ResponsibleRoleFor(status)
	if err != nil {
		return 0, err
	}

	switch role {
	case workflow.RoleRoutedApprover:
		if subj == nil || subj.Document == nil {
			return 0, fmt.Errorf("%w: subject has no document fields", workflow.ErrNotConfigured)
		}
		level = policy.ClampLevel(level)
		entry, err := s.routingRepo.ActiveEntry(ctx, subj.Document.DocType, level)
		if err != nil {
			return 0, fmt.Errorf("routing lookup: %w", err)
		}
		if entry == nil || entry.ApproverID == 0 {
			return 0, fmt.Errorf("%w: %s level %d", workflow.ErrNotConfigured, subj.Document.DocType, level)
		}
		return entry.ApproverID, nil

	case workflow.RoleManager:
		if subj == nil || subj.Leave == nil || subj.Leave.ManagerID == 0 {
			return 0, fmt.Errorf("%w: no manager on leave request", workflow.ErrNotConfigured)
		}
		return subj.Leave.ManagerID, nil

	case workflow.RoleAssignee:
		if subj == nil || subj.Task == nil || subj.Task.AssignedToID == 0 {
			return 0, fmt.Errorf("%w: task has no assignee", workflow.ErrNotConfigured)
		}
		return subj.Task.AssignedToID, nil

	case workflow.RoleAssignor:
		if subj == nil || subj.Task == nil || subj.Task.AssignedByID == 0 {
			return 0, fmt.Errorf("%w: task has no assignor", workflow.ErrNotConfigured)
		}
		return subj.Task.AssignedByID, nil
	}

	return 0, fmt.Errorf("%w: unhandled role %q", workflow.ErrNotConfigured, role)
}
