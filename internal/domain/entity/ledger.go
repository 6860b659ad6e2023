package entity

import "time"

// LedgerRecord is a consumable-balance account, one row per owner and
// category (leave type). Invariant: Remaining = TotalEntitlement - Consumed,
// enforced by the ledger service, never by direct external write.
type LedgerRecord struct {
	ID               int64     `json:"id"`
	OwnerID          int64     `json:"owner_id"`
	Category         string    `json:"category"`
	TotalEntitlement float64   `json:"total_entitlement"`
	Consumed         float64   `json:"consumed"`
	Remaining        float64   `json:"remaining"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Adjustment kinds recorded against a workflow's consumption
const (
	AdjustmentReserve = "RESERVE"
	AdjustmentRefund  = "REFUND"
)

// LedgerAdjustment records one balance change attributed to a workflow.
// A unique constraint on (workflow_id, adjustment_type) is the idempotency
// guard that keeps refunds at most once per workflow.
type LedgerAdjustment struct {
	ID             int64     `json:"id"`
	WorkflowID     int64     `json:"workflow_id"`
	LedgerID       int64     `json:"ledger_id"`
	AdjustmentType string    `json:"adjustment_type"`
	Amount         float64   `json:"amount"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}
