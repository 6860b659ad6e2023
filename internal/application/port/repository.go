package port

import (
	"context"

	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
)

// WorkflowFilter narrows workflow record listings. ResponsibleID is applied
// by the engine, not the repository: who is responsible depends on routing,
// which the storage layer does not know about.
type WorkflowFilter struct {
	Kind          workflow.Kind
	Status        workflow.Status
	SubmitterID   int64
	ResponsibleID int64
	Limit, Offset int
}

// WorkflowRepository defines persistence operations for WorkflowRecord.
// Update is version-checked: it fails with workflow.ErrConflict when the
// record changed since it was loaded.
type WorkflowRepository interface {
	Create(ctx context.Context, rec *entity.WorkflowRecord) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowRecord, error)
	GetByReference(ctx context.Context, reference string) (*entity.WorkflowRecord, error)
	List(ctx context.Context, filter WorkflowFilter) ([]*entity.WorkflowRecord, error)
	Update(ctx context.Context, rec *entity.WorkflowRecord, expectedVersion int64) error
}

// SubjectRepository defines persistence operations for SubjectRecord,
// with the same optimistic-concurrency contract as WorkflowRepository.
type SubjectRepository interface {
	Create(ctx context.Context, subj *entity.SubjectRecord) error
	GetByID(ctx context.Context, id int64) (*entity.SubjectRecord, error)
	Update(ctx context.Context, subj *entity.SubjectRecord, expectedVersion int64) error
}

// RoutingRepository defines lookups against the approval routing table
type RoutingRepository interface {
	// ActiveEntry returns the first active entry for (docType, level),
	// or nil when none is configured.
	ActiveEntry(ctx context.Context, docType workflow.DocType, level int) (*entity.RoutingEntry, error)
	Create(ctx context.Context, e *entity.RoutingEntry) error
}

// LedgerRepository defines persistence operations for consumable balances
// and their per-workflow adjustments
type LedgerRepository interface {
	GetBalance(ctx context.Context, ownerID int64, category string) (*entity.LedgerRecord, error)
	GetBalanceByID(ctx context.Context, id int64) (*entity.LedgerRecord, error)
	ListBalances(ctx context.Context, ownerID int64) ([]*entity.LedgerRecord, error)
	CreateBalance(ctx context.Context, rec *entity.LedgerRecord) error
	UpdateBalance(ctx context.Context, rec *entity.LedgerRecord, expectedVersion int64) error

	// RecordAdjustment inserts an adjustment row. The (workflow, type) pair is
	// unique; a duplicate insert fails with workflow.ErrConflict.
	RecordAdjustment(ctx context.Context, adj *entity.LedgerAdjustment) error
	GetAdjustment(ctx context.Context, workflowID int64, adjustmentType string) (*entity.LedgerAdjustment, error)
}

// UserRepository defines persistence operations for directory entries
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// TransactionManager executes a function within a storage transaction.
// Only the ledger uses it: balance and adjustment rows belong to one
// collection and move together. Workflow and subject records are never
// updated transactionally with respect to each other.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
