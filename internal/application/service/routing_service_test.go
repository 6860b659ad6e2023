package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

func TestResolveRoutedApprover(t *testing.T) {
	repo := &memRoutingRepo{entries: []*entity.RoutingEntry{
		{DocType: workflow.DocTypeInvoice, Level: 1, ApproverID: 21, IsActive: true},
		{DocType: workflow.DocTypeInvoice, Level: 1, ApproverID: 99, IsActive: true},
		{DocType: workflow.DocTypeInvoice, Level: 2, ApproverID: 22, IsActive: true},
		{DocType: workflow.DocTypePurchaseOrder, Level: 1, ApproverID: 33, IsActive: true},
	}}
	svc := NewRoutingService(repo, mockLogger{})
	policy, _ := workflow.PolicyFor(workflow.KindDocumentApproval)
	subj := &entity.SubjectRecord{Document: &entity.DocumentFields{DocType: workflow.DocTypeInvoice}}
	ctx := context.Background()

	// Routing picks one approver per step, first match wins.
	id, err := svc.ResolveResponsible(ctx, policy, subj, workflow.StatusPending, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)

	id, err = svc.ResolveResponsible(ctx, policy, subj, workflow.StatusPending, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(22), id)

	_, err = svc.ResolveResponsible(ctx, policy, subj, workflow.StatusPending, 3)
	assert.ErrorIs(t, err, workflow.ErrNotConfigured)
}

func TestResolveInactiveEntriesIgnored(t *testing.T) {
	repo := &memRoutingRepo{entries: []*entity.RoutingEntry{
		{DocType: workflow.DocTypeInvoice, Level: 1, ApproverID: 21, IsActive: false},
	}}
	svc := NewRoutingService(repo, mockLogger{})
	policy, _ := workflow.PolicyFor(workflow.KindDocumentApproval)
	subj := &entity.SubjectRecord{Document: &entity.DocumentFields{DocType: workflow.DocTypeInvoice}}

	_, err := svc.ResolveResponsible(context.Background(), policy, subj, workflow.StatusPending, 1)
	assert.ErrorIs(t, err, workflow.ErrNotConfigured)
}

func TestResolveManager(t *testing.T) {
	svc := NewRoutingService(&memRoutingRepo{}, mockLogger{})
	policy, _ := workflow.PolicyFor(workflow.KindLeaveRequest)
	ctx := context.Background()

	subj := &entity.SubjectRecord{Leave: &entity.LeaveFields{ManagerID: 55}}
	id, err := svc.ResolveResponsible(ctx, policy, subj, workflow.StatusPending, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(55), id)

	subj = &entity.SubjectRecord{Leave: &entity.LeaveFields{}}
	_, err = svc.ResolveResponsible(ctx, policy, subj, workflow.StatusPending, 1)
	assert.ErrorIs(t, err, workflow.ErrNotConfigured)
}

func TestResolveTaskParties(t *testing.T) {
	svc := NewRoutingService(&memRoutingRepo{}, mockLogger{})
	policy, _ := workflow.PolicyFor(workflow.KindTask)
	ctx := context.Background()

	subj := &entity.SubjectRecord{Task: &entity.TaskFields{AssignedByID: 30, AssignedToID: 40}}

	tests := []struct {
		status workflow.Status
		want   int64
	}{
		{workflow.StatusOpen, 40},
		{workflow.StatusInProgress, 40},
		{workflow.StatusCompleted, 30},
	}
	for _, tt := range tests {
		id, err := svc.ResolveResponsible(ctx, policy, subj, tt.status, 1)
		require.NoError(t, err)
		assert.Equal(t, tt.want, id, "status %s", tt.status)
	}

	_, err := svc.ResolveResponsible(ctx, policy, subj, workflow.StatusApproved, 1)
	assert.ErrorIs(t, err, workflow.ErrAlreadyTerminal)
}
