package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/permission"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// In-memory repositories with the same optimistic-concurrency contract as
// the sqlite implementations.

type memWorkflowRepo struct {
	records map[int64]*entity.WorkflowRecord
	nextID  int64

	updateErr error
}

func newMemWorkflowRepo() *memWorkflowRepo {
	return &memWorkflowRepo{records: make(map[int64]*entity.WorkflowRecord)}
}

func (m *memWorkflowRepo) Create(ctx context.Context, rec *entity.WorkflowRecord) error {
	m.nextID++
	rec.ID = m.nextID
	rec.Version = 1
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memWorkflowRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memWorkflowRepo) GetByReference(ctx context.Context, reference string) (*entity.WorkflowRecord, error) {
	for _, rec := range m.records {
		if rec.Reference == reference {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memWorkflowRepo) List(ctx context.Context, filter port.WorkflowFilter) ([]*entity.WorkflowRecord, error) {
	var out []*entity.WorkflowRecord
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memWorkflowRepo) Update(ctx context.Context, rec *entity.WorkflowRecord, expectedVersion int64) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.records[rec.ID]
	if !ok {
		return fmt.Errorf("%w: workflow record %d", workflow.ErrNotFound, rec.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: workflow record %d at version %d", workflow.ErrConflict, rec.ID, stored.Version)
	}
	cp := *rec
	cp.Version = expectedVersion + 1
	m.records[rec.ID] = &cp
	return nil
}

type memSubjectRepo struct {
	records map[int64]*entity.SubjectRecord
	nextID  int64

	updateErr error
}

func newMemSubjectRepo() *memSubjectRepo {
	return &memSubjectRepo{records: make(map[int64]*entity.SubjectRecord)}
}

func (m *memSubjectRepo) Create(ctx context.Context, subj *entity.SubjectRecord) error {
	m.nextID++
	subj.ID = m.nextID
	subj.Version = 1
	cp := *subj
	m.records[subj.ID] = &cp
	return nil
}

func (m *memSubjectRepo) GetByID(ctx context.Context, id int64) (*entity.SubjectRecord, error) {
	subj, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *subj
	return &cp, nil
}

func (m *memSubjectRepo) Update(ctx context.Context, subj *entity.SubjectRecord, expectedVersion int64) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.records[subj.ID]
	if !ok {
		return fmt.Errorf("%w: subject record %d", workflow.ErrNotFound, subj.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: subject record %d at version %d", workflow.ErrConflict, subj.ID, stored.Version)
	}
	cp := *subj
	cp.Version = expectedVersion + 1
	m.records[subj.ID] = &cp
	subj.Version = cp.Version
	return nil
}

type memRoutingRepo struct {
	entries []*entity.RoutingEntry
}

func (m *memRoutingRepo) ActiveEntry(ctx context.Context, docType workflow.DocType, level int) (*entity.RoutingEntry, error) {
	for _, e := range m.entries {
		if e.DocType == docType && e.Level == level && e.IsActive {
			return e, nil
		}
	}
	return nil, nil
}

func (m *memRoutingRepo) Create(ctx context.Context, e *entity.RoutingEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type mockDirectory struct{}

func (mockDirectory) ResolveID(ctx context.Context, email string) (int64, error) {
	return 1, nil
}

func (mockDirectory) ResolveEmail(ctx context.Context, userID int64) (string, error) {
	return fmt.Sprintf("user%d@example.com", userID), nil
}

type recordingNotifier struct {
	sent []string // "recipient|subject"
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, recipients []string, subject, body string) error {
	for _, r := range recipients {
		n.sent = append(n.sent, r+"|"+subject)
	}
	return n.err
}

type mockLogger struct{}

func (mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type noopTxManager struct{}

func (noopTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type engineFixture struct {
	engine    TransitionEngine
	workflows *memWorkflowRepo
	subjects  *memSubjectRepo
	routing   *memRoutingRepo
	ledger    *memLedgerRepo
	notifier  *recordingNotifier
}

func newEngineFixture() *engineFixture {
	workflows := newMemWorkflowRepo()
	subjects := newMemSubjectRepo()
	routing := &memRoutingRepo{}
	ledgerRepo := newMemLedgerRepo()
	notifier := &recordingNotifier{}
	logger := mockLogger{}

	routingSvc := NewRoutingService(routing, logger)
	ledgerSvc := NewLedgerService(ledgerRepo, noopTxManager{}, logger)
	engine := NewTransitionEngine(workflows, subjects, routingSvc, ledgerSvc, mockDirectory{}, notifier, logger)

	return &engineFixture{
		engine:    engine,
		workflows: workflows,
		subjects:  subjects,
		routing:   routing,
		ledger:    ledgerRepo,
		notifier:  notifier,
	}
}

func (f *engineFixture) routeInvoice(level int, approverID int64) {
	f.routing.entries = append(f.routing.entries, &entity.RoutingEntry{
		DocType: workflow.DocTypeInvoice, Level: level, ApproverID: approverID, IsActive: true,
	})
}

func submitInvoice(t *testing.T, f *engineFixture, submitterID int64) *entity.WorkflowRecord {
	t.Helper()
	rec, err := f.engine.Submit(context.Background(), SubmitRequest{
		Kind:        workflow.KindDocumentApproval,
		SubmitterID: submitterID,
		Title:       "Invoice INV-100",
		Document:    &entity.DocumentFields{DocType: workflow.DocTypeInvoice, DocNumber: "INV-100", Amount: 420},
	})
	require.NoError(t, err)
	return rec
}

func submitLeave(t *testing.T, f *engineFixture, submitterID, managerID int64, days float64) *entity.WorkflowRecord {
	t.Helper()
	rec, err := f.engine.Submit(context.Background(), SubmitRequest{
		Kind:        workflow.KindLeaveRequest,
		SubmitterID: submitterID,
		Title:       "Leave request",
		Leave: &entity.LeaveFields{
			EmployeeName: "Sam",
			LeaveType:    "Casual Leave",
			StartDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
			Days:         days,
			ManagerID:    managerID,
		},
	})
	require.NoError(t, err)
	return rec
}

func submitTask(t *testing.T, f *engineFixture, assignorID, assigneeID int64) *entity.WorkflowRecord {
	t.Helper()
	rec, err := f.engine.Submit(context.Background(), SubmitRequest{
		Kind:        workflow.KindTask,
		SubmitterID: assignorID,
		Title:       "Prepare quarterly report",
		Task:        &entity.TaskFields{AssignedByID: assignorID, AssignedToID: assigneeID},
	})
	require.NoError(t, err)
	return rec
}

func TestSubmitDocumentApproval(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 20)

	rec := submitInvoice(t, f, 10)

	assert.NotZero(t, rec.ID)
	assert.NotEmpty(t, rec.Reference)
	assert.Equal(t, workflow.StatusPending, rec.Status)
	assert.Equal(t, 1, rec.CurrentLevel)
	assert.Equal(t, workflow.DocTypeInvoice, rec.DocType)

	// The first approver was told.
	require.Len(t, f.notifier.sent, 1)
	assert.True(t, strings.HasPrefix(f.notifier.sent[0], "user20@example.com|"))
}

func TestSubmitValidation(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.Submit(context.Background(), SubmitRequest{
		Kind:        workflow.KindDocumentApproval,
		SubmitterID: 10,
		Title:       "bad",
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidInput)

	_, err = f.engine.Submit(context.Background(), SubmitRequest{
		Kind:        workflow.KindLeaveRequest,
		SubmitterID: 10,
		Leave: &entity.LeaveFields{
			LeaveType: "Casual Leave",
			Days:      2,
			StartDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			ManagerID: 20,
		},
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidInput)
}

func TestThreeLevelApprovalChain(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)
	f.routeInvoice(2, 22)
	f.routeInvoice(3, 23)

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	rec, err := f.engine.Advance(ctx, rec.ID, 21, "ok at level 1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, rec.Status)
	assert.Equal(t, 2, rec.CurrentLevel)

	rec, err = f.engine.Advance(ctx, rec.ID, 22, "ok at level 2")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CurrentLevel)

	rec, err = f.engine.Advance(ctx, rec.ID, 23, "final")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, rec.Status)

	// Full audit trail, one decision per level.
	stored, _ := f.workflows.GetByID(ctx, rec.ID)
	for level, approver := range map[int]int64{1: 21, 2: 22, 3: 23} {
		audit := stored.AuditAt(level)
		assert.True(t, audit.IsSet(), "level %d audit missing", level)
		assert.Equal(t, approver, audit.ApproverID)
		assert.Equal(t, workflow.DecisionApproved, audit.Action)
		assert.NotNil(t, audit.ActionDate)
	}

	// Subject settled too.
	subj, _ := f.subjects.GetByID(ctx, stored.SubjectID)
	assert.Equal(t, workflow.StatusApproved, subj.Status)

	// No further transitions.
	_, err = f.engine.Advance(ctx, rec.ID, 23, "again")
	assert.ErrorIs(t, err, workflow.ErrAlreadyTerminal)
	_, err = f.engine.Reject(ctx, rec.ID, 23, "late veto")
	assert.ErrorIs(t, err, workflow.ErrAlreadyTerminal)
}

func TestAdvanceUnauthorized(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)
	f.routeInvoice(2, 22)

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	// Neither the submitter, a stranger, nor the level-2 approver may act at level 1.
	for _, viewer := range []int64{10, 99, 22} {
		_, err := f.engine.Advance(ctx, rec.ID, viewer, "not mine")
		assert.ErrorIs(t, err, workflow.ErrUnauthorized, "viewer %d", viewer)
	}
}

func TestRejectMidChain(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)
	f.routeInvoice(2, 22)
	f.routeInvoice(3, 23)

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	_, err := f.engine.Advance(ctx, rec.ID, 21, "fine")
	require.NoError(t, err)

	rec, err = f.engine.Reject(ctx, rec.ID, 22, "missing receipts")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, rec.Status)

	stored, _ := f.workflows.GetByID(ctx, rec.ID)
	assert.Equal(t, workflow.DecisionApproved, stored.AuditAt(1).Action)
	assert.Equal(t, workflow.DecisionRejected, stored.AuditAt(2).Action)
	assert.Equal(t, "missing receipts", stored.AuditAt(2).Comment)
	assert.False(t, stored.AuditAt(3).IsSet())

	// Submitter got the decision notice.
	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.True(t, strings.HasPrefix(last, "user10@example.com|"))
}

func TestCancelOnlySubmitterWhilePending(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	_, err := f.engine.Cancel(ctx, rec.ID, 21)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	rec, err = f.engine.Cancel(ctx, rec.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, rec.Status)

	_, err = f.engine.Cancel(ctx, rec.ID, 10)
	assert.ErrorIs(t, err, workflow.ErrAlreadyTerminal)
}

func TestLeaveApprovalFlow(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	rec := submitLeave(t, f, 10, 20, 2)

	// Submission reserved two days out of the provisioned ten.
	bal, err := f.ledger.GetBalance(ctx, 10, "Casual Leave")
	require.NoError(t, err)
	require.NotNil(t, bal)
	assert.Equal(t, float64(8), bal.Remaining)
	assert.Equal(t, float64(2), bal.Consumed)

	rec, err = f.engine.Advance(ctx, rec.ID, 20, "enjoy")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, rec.Status)

	// Approval keeps the reservation.
	bal, _ = f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(8), bal.Remaining)

	subj, _ := f.subjects.GetByID(ctx, rec.SubjectID)
	require.NotNil(t, subj.Leave.DecidedAt)
}

func TestLeaveRejectRefunds(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	rec := submitLeave(t, f, 10, 20, 3)

	rec, err := f.engine.Reject(ctx, rec.ID, 20, "busy period")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, rec.Status)

	bal, _ := f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(10), bal.Remaining)
	assert.Equal(t, float64(0), bal.Consumed)
}

func TestLeaveCancelRefundsOnce(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	rec := submitLeave(t, f, 10, 20, 4)

	_, err := f.engine.Cancel(ctx, rec.ID, 10)
	require.NoError(t, err)

	bal, _ := f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(10), bal.Remaining)

	// A second refund attempt is a no-op, not a double credit.
	ledgerSvc := NewLedgerService(f.ledger, noopTxManager{}, mockLogger{})
	require.NoError(t, ledgerSvc.Refund(ctx, rec.ID))
	bal, _ = f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(10), bal.Remaining)
}

func TestTaskPingPongFlow(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	rec := submitTask(t, f, 30, 40)
	assert.Equal(t, workflow.StatusOpen, rec.Status)

	// Assignee works the task forward.
	rec, err := f.engine.Advance(ctx, rec.ID, 40, "started")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, rec.Status)

	// Assignor cannot advance someone else's work in progress.
	_, err = f.engine.Advance(ctx, rec.ID, 30, "hurry up")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	rec, err = f.engine.Advance(ctx, rec.ID, 40, "done")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, rec.Status)

	// Only the assignor signs off.
	_, err = f.engine.Advance(ctx, rec.ID, 40, "self sign-off")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	rec, err = f.engine.Advance(ctx, rec.ID, 30, "good work")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, rec.Status)

	// Intermediate steps left no audit rows; only the sign-off did.
	stored, _ := f.workflows.GetByID(ctx, rec.ID)
	assert.Equal(t, workflow.DecisionApproved, stored.AuditAt(1).Action)
	assert.Equal(t, int64(30), stored.AuditAt(1).ApproverID)
	assert.False(t, stored.AuditAt(2).IsSet())

	// Every commented step landed in the history.
	subj, _ := f.subjects.GetByID(ctx, stored.SubjectID)
	history := subj.Task.CommentsHistory
	for _, fragment := range []string{"started", "done", "good work"} {
		assert.Contains(t, history, fragment)
	}
}

func TestTaskRejectSendsBack(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	rec := submitTask(t, f, 30, 40)

	_, err := f.engine.Advance(ctx, rec.ID, 40, "started")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, rec.ID, 40, "done")
	require.NoError(t, err)

	rec, err = f.engine.Reject(ctx, rec.ID, 30, "incomplete")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, rec.Status)

	stored, _ := f.workflows.GetByID(ctx, rec.ID)
	assert.Equal(t, workflow.DecisionRejected, stored.AuditAt(1).Action)
}

func TestAdvanceConflictOnDecidedLevel(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)
	f.routeInvoice(2, 22)

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	_, err := f.engine.Advance(ctx, rec.ID, 21, "ok")
	require.NoError(t, err)

	// Simulate a partial failure: the subject snapped back to level 1 while
	// the workflow record already carries approver 21's decision there.
	subj, _ := f.subjects.GetByID(ctx, rec.SubjectID)
	subj.CurrentLevel = 1
	require.NoError(t, f.subjects.Update(ctx, subj, subj.Version))

	// Routing still points level 1 at approver 21, whose identical retry is
	// accepted and simply re-runs the subject update.
	rec2, err := f.engine.Advance(ctx, rec.ID, 21, "retry")
	require.NoError(t, err)
	assert.Equal(t, 2, rec2.CurrentLevel)
}

func TestCapabilitiesMatchEnforcement(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	// What the capability read shows is exactly what execution permits.
	caps, err := f.engine.Capabilities(ctx, rec.ID, 21)
	require.NoError(t, err)
	assert.True(t, caps.Has(permission.CapAdvance))

	caps, err = f.engine.Capabilities(ctx, rec.ID, 99)
	require.NoError(t, err)
	assert.False(t, caps.Has(permission.CapAdvance))
	assert.True(t, caps.Has(permission.CapViewOnly))

	_, err = f.engine.Advance(ctx, rec.ID, 99, "sneaky")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
	_, err = f.engine.Advance(ctx, rec.ID, 21, "legit")
	assert.NoError(t, err)
}

func TestAdvanceStallsWithoutRouting(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)
	// No level 2 entry: the chain stalls after the first decision.

	rec := submitInvoice(t, f, 10)
	ctx := context.Background()

	rec, err := f.engine.Advance(ctx, rec.ID, 21, "ok")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentLevel)

	// Nobody can advance level 2, including the level 1 approver; the
	// recorded decision is never lost over the gap.
	_, err = f.engine.Advance(ctx, rec.ID, 21, "again")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	stored, _ := f.workflows.GetByID(ctx, rec.ID)
	assert.True(t, stored.AuditAt(1).IsSet())
}

func TestGetNotFound(t *testing.T) {
	f := newEngineFixture()
	_, _, err := f.engine.Get(context.Background(), 404)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestListByResponsible(t *testing.T) {
	f := newEngineFixture()
	f.routeInvoice(1, 21)
	f.routeInvoice(2, 22)
	ctx := context.Background()

	first := submitInvoice(t, f, 10)
	second := submitInvoice(t, f, 11)
	leave := submitLeave(t, f, 12, 55, 1)
	task := submitTask(t, f, 30, 40)

	// Move the first invoice to level 2 so its responsibility shifts.
	_, err := f.engine.Advance(ctx, first.ID, 21, "ok")
	require.NoError(t, err)

	ids := func(records []*entity.WorkflowRecord) []int64 {
		var out []int64
		for _, rec := range records {
			out = append(out, rec.ID)
		}
		return out
	}

	records, err := f.engine.List(ctx, port.WorkflowFilter{ResponsibleID: 21})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{second.ID}, ids(records))

	records, err = f.engine.List(ctx, port.WorkflowFilter{ResponsibleID: 22})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{first.ID}, ids(records))

	records, err = f.engine.List(ctx, port.WorkflowFilter{ResponsibleID: 55})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{leave.ID}, ids(records))

	// The freshly opened task waits on the assignee, not the assignor.
	records, err = f.engine.List(ctx, port.WorkflowFilter{ResponsibleID: 40})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{task.ID}, ids(records))

	// Terminal records drop out of everyone's queue.
	_, err = f.engine.Reject(ctx, leave.ID, 55, "no cover")
	require.NoError(t, err)
	records, err = f.engine.List(ctx, port.WorkflowFilter{ResponsibleID: 55})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLeaveRefundRetriedOnNextRead(t *testing.T) {
	f := newEngineFixture()
	rec := submitLeave(t, f, 10, 55, 2)
	ctx := context.Background()

	// The refund write dies but the rejection itself must stand.
	f.ledger.recordErr = fmt.Errorf("ledger unavailable")
	rec, err := f.engine.Reject(ctx, rec.ID, 55, "no cover")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, rec.Status)

	bal, _ := f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(8), bal.Remaining)

	// The next read repairs the balance; the refund is still exactly-once.
	f.ledger.recordErr = nil
	_, _, err = f.engine.Get(ctx, rec.ID)
	require.NoError(t, err)

	bal, _ = f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(10), bal.Remaining)
	assert.Equal(t, float64(0), bal.Consumed)

	refund, err := f.ledger.GetAdjustment(ctx, rec.ID, entity.AdjustmentRefund)
	require.NoError(t, err)
	require.NotNil(t, refund)

	_, _, err = f.engine.Get(ctx, rec.ID)
	require.NoError(t, err)
	bal, _ = f.ledger.GetBalance(ctx, 10, "Casual Leave")
	assert.Equal(t, float64(10), bal.Remaining)
}
