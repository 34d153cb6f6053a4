package models

import "time"

// CreditBalance is the current credit balance for an organization.
// Amounts are fixed-point whole credits; balances never go negative.
type CreditBalance struct {
	OrganizationID string    `json:"organization_id" badgerhold:"key"`
	Balance        int64     `json:"balance"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreditTransactionType distinguishes grants from deductions
type CreditTransactionType string

// CreditTransactionType constants
const (
	CreditGrant     CreditTransactionType = "grant"
	CreditDeduction CreditTransactionType = "deduction"
)

// CreditTransaction is one immutable ledger entry
type CreditTransaction struct {
	ID             string                `json:"id" badgerhold:"key"`
	OrganizationID string                `json:"organization_id"`
	Type           CreditTransactionType `json:"type"`
	Amount         int64                 `json:"amount"`
	Description    string                `json:"description"`
	ReferenceID    string                `json:"reference_id,omitempty"` // e.g. insight or job id
	CreatedAt      time.Time             `json:"created_at"`
}
