package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Account types follow the standard accounting equation.
const (
	AccountTypeAsset     = "asset"
	AccountTypeLiability = "liability"
	AccountTypeEquity    = "equity"
	AccountTypeIncome    = "income"
	AccountTypeExpense   = "expense"
)

// Account is a named ledger bucket owned by exactly one of a user or a club
// (one owner reference non-null). Accounts are archived via ArchivedAt,
// never hard-deleted.
//
// OwnerKey collapses the owner pair into a single non-null column so the
// (owner, type, name) unique index holds even where NULLs compare distinct;
// it backs the upsert-on-conflict get-or-create used by the reimbursement
// workflow, so concurrent first requests converge on one account.
type Account struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	ClubID    *uint  `gorm:"index"`
	OwnerKey  string `gorm:"size:32;uniqueIndex:idx_account_owner;not null"`
	Type      string `gorm:"size:16;uniqueIndex:idx_account_owner;not null"`
	Name      string `gorm:"size:128;uniqueIndex:idx_account_owner;not null"`
	Currency  string `gorm:"size:8;not null;default:HKD"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ArchivedAt *time.Time `gorm:"index"`
}

// BeforeCreate derives OwnerKey from whichever owner reference is set.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	switch {
	case a.UserID != nil && a.ClubID == nil:
		a.OwnerKey = fmt.Sprintf("user:%d", *a.UserID)
	case a.ClubID != nil && a.UserID == nil:
		a.OwnerKey = fmt.Sprintf("club:%d", *a.ClubID)
	default:
		return fmt.Errorf("account requires exactly one owner")
	}
	return nil
}

// Archived reports whether the account has been soft-deleted.
func (a *Account) Archived() bool {
	return a.ArchivedAt != nil
}
