package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type tags.
const (
	TxnPersonalExpense = "personal_expense"
	TxnClubExpense     = "club_expense"
	TxnReimbursement   = "reimbursement"
	TxnBorrow          = "borrow"
	TxnLend            = "lend"
	TxnTransfer        = "transfer"
	TxnEventPayment    = "event_payment"
)

// Reimbursement lifecycle: none → pending → approved → paid.
const (
	ReimbursementNone     = "none"
	ReimbursementPending  = "pending"
	ReimbursementApproved = "approved"
	ReimbursementPaid     = "paid"
)

// Transaction is a journal entry for one economic event. It is immutable
// once created except for reimbursement-status transitions; the balanced
// Entries are written atomically with it.
type Transaction struct {
	ID                  uint            `gorm:"primaryKey"`
	Reference           string          `gorm:"size:36;uniqueIndex;not null"` // UUID
	CreatedBy           uint            `gorm:"index;not null"`
	ClubID              *uint           `gorm:"index"`
	Type                string          `gorm:"size:32;index;not null"`
	CategoryID          *uint           `gorm:"index"`
	EventID             *uint           `gorm:"index"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Currency            string          `gorm:"size:8;not null;default:HKD"`
	Description         string          `gorm:"size:255"`
	IsSplit             bool            `gorm:"not null;default:false"`
	ReimbursementStatus string          `gorm:"size:16;index;not null;default:none"`
	Metadata            string          `gorm:"type:text"` // free-form JSON
	OccurredAt          time.Time       `gorm:"index;not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Entries     []Entry      `gorm:"constraint:OnDelete:CASCADE"`
	Splits      []Split      `gorm:"constraint:OnDelete:CASCADE"`
	Attachments []Attachment `gorm:"constraint:OnDelete:CASCADE"`
}

// Entry is one leg of a transaction: a signed amount posted to one account.
// Positive = debit, negative = credit. For any transaction the entry amounts
// must net to zero within a 0.01 tolerance.
type Entry struct {
	ID            uint            `gorm:"primaryKey"`
	TransactionID uint            `gorm:"index;not null"`
	AccountID     uint            `gorm:"index;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CreatedAt     time.Time

	Account Account `gorm:"constraint:OnDelete:RESTRICT"`
}

// Split apportions part of a transaction's total to one user. Share amounts
// for a transaction must sum to its total within a 0.01 tolerance.
type Split struct {
	ID            uint            `gorm:"primaryKey"`
	TransactionID uint            `gorm:"index;not null"`
	UserID        uint            `gorm:"index;not null"`
	ShareAmount   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Percentage    decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	CreatedAt     time.Time
}

// Attachment is a receipt file reference bound to a transaction; append-only.
type Attachment struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID uint   `gorm:"index;not null"`
	FileName      string `gorm:"size:255;not null"`
	FileSize      int64  `gorm:"not null"`
	FileType      string `gorm:"size:64"`
	StorageKey    string `gorm:"size:36;uniqueIndex;not null"` // UUID
	CreatedAt     time.Time
}
