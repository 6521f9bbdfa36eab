package ledger

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tolerance is the maximum absolute residual allowed when entry amounts are
// netted or split shares are compared against a transaction total.
var Tolerance = decimal.NewFromFloat(0.01)

// DefaultCurrency is used when a balance report covers a user with no
// accounts.
const DefaultCurrency = "HKD"

// Names of the accounts provisioned lazily by the reimbursement workflow.
const (
	ReimbursementsPayableName    = "Reimbursements Payable"
	ReimbursementsReceivableName = "Reimbursements Receivable"
)

// Service implements the ledger engine: balanced transaction construction,
// the expense/reimbursement/loan/transfer workflows, and the read-only
// balance and report aggregations. Every multi-statement workflow runs in a
// single database transaction.
type Service struct {
	db *gorm.DB
}

// NewService returns a ledger service over the given database.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// withinTolerance reports whether |d| < Tolerance.
func withinTolerance(d decimal.Decimal) bool {
	return d.Abs().LessThan(Tolerance)
}
