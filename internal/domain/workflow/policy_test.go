package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFor(t *testing.T) {
	for _, kind := range []Kind{KindDocumentApproval, KindLeaveRequest, KindTask} {
		p, err := PolicyFor(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, p.Kind)
	}

	_, err := PolicyFor(Kind("BOGUS"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPolicyInitialStatus(t *testing.T) {
	doc, _ := PolicyFor(KindDocumentApproval)
	leave, _ := PolicyFor(KindLeaveRequest)
	task, _ := PolicyFor(KindTask)

	assert.Equal(t, StatusPending, doc.InitialStatus())
	assert.Equal(t, StatusPending, leave.InitialStatus())
	assert.Equal(t, StatusOpen, task.InitialStatus())
}

func TestNextOnAdvance_RoutedLevels(t *testing.T) {
	p, _ := PolicyFor(KindDocumentApproval)

	tests := []struct {
		name       string
		status     Status
		level      int
		wantStatus Status
		wantLevel  int
		wantErr    error
	}{
		{name: "level 1 to level 2", status: StatusPending, level: 1, wantStatus: StatusPending, wantLevel: 2},
		{name: "level 2 to level 3", status: StatusPending, level: 2, wantStatus: StatusPending, wantLevel: 3},
		{name: "final level approves", status: StatusPending, level: 3, wantStatus: StatusApproved, wantLevel: 3},
		{name: "level above max clamps and approves", status: StatusPending, level: 7, wantStatus: StatusApproved, wantLevel: 3},
		{name: "already approved", status: StatusApproved, level: 3, wantErr: ErrAlreadyTerminal},
		{name: "rejected is terminal", status: StatusRejected, level: 2, wantErr: ErrAlreadyTerminal},
		{name: "open is not a routed status", status: StatusOpen, level: 1, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, level, err := p.NextOnAdvance(tt.status, tt.level)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestNextOnAdvance_SingleManager(t *testing.T) {
	p, _ := PolicyFor(KindLeaveRequest)

	status, level, err := p.NextOnAdvance(StatusPending, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status)
	assert.Equal(t, 1, level)

	_, _, err = p.NextOnAdvance(StatusApproved, 1)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestNextOnAdvance_AssignorAssignee(t *testing.T) {
	p, _ := PolicyFor(KindTask)

	steps := []struct {
		from Status
		to   Status
	}{
		{StatusOpen, StatusInProgress},
		{StatusInProgress, StatusCompleted},
		{StatusCompleted, StatusApproved},
	}
	for _, step := range steps {
		status, level, err := p.NextOnAdvance(step.from, 1)
		require.NoError(t, err)
		assert.Equal(t, step.to, status)
		assert.Equal(t, 1, level)
	}

	_, _, err := p.NextOnAdvance(StatusPending, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAuditsDecision(t *testing.T) {
	doc, _ := PolicyFor(KindDocumentApproval)
	task, _ := PolicyFor(KindTask)

	// Routed chains audit every decision, including intermediate levels.
	assert.True(t, doc.AuditsDecision(StatusPending))
	assert.True(t, doc.AuditsDecision(StatusApproved))

	// Ping-pong status edits are not decisions; only the sign-off is.
	assert.False(t, task.AuditsDecision(StatusInProgress))
	assert.False(t, task.AuditsDecision(StatusCompleted))
	assert.True(t, task.AuditsDecision(StatusApproved))
	assert.True(t, task.AuditsDecision(StatusRejected))
}

func TestResponsibleRoleFor(t *testing.T) {
	doc, _ := PolicyFor(KindDocumentApproval)
	leave, _ := PolicyFor(KindLeaveRequest)
	task, _ := PolicyFor(KindTask)

	role, err := doc.ResponsibleRoleFor(StatusPending)
	require.NoError(t, err)
	assert.Equal(t, RoleRoutedApprover, role)

	role, err = leave.ResponsibleRoleFor(StatusPending)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	role, err = task.ResponsibleRoleFor(StatusOpen)
	require.NoError(t, err)
	assert.Equal(t, RoleAssignee, role)

	role, err = task.ResponsibleRoleFor(StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, RoleAssignee, role)

	role, err = task.ResponsibleRoleFor(StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, RoleAssignor, role)

	_, err = task.ResponsibleRoleFor(StatusApproved)
	assert.True(t, errors.Is(err, ErrAlreadyTerminal))
}

func TestClampLevel(t *testing.T) {
	p, _ := PolicyFor(KindDocumentApproval)

	assert.Equal(t, 1, p.ClampLevel(0))
	assert.Equal(t, 1, p.ClampLevel(-3))
	assert.Equal(t, 2, p.ClampLevel(2))
	assert.Equal(t, 3, p.ClampLevel(9))
}
