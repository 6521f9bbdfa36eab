package ledger

import (
	"time"

	"github.com/RovierrHQ/rovierr/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryInput is one proposed leg of a transaction. Positive amounts debit
// the account, negative amounts credit it.
type EntryInput struct {
	AccountID uint
	Amount    decimal.Decimal
}

// SplitInput apportions part of the transaction total to one user.
type SplitInput struct {
	UserID      uint
	ShareAmount decimal.Decimal
}

// TransactionInput carries everything needed to persist one journal entry.
type TransactionInput struct {
	CreatedBy           uint
	ClubID              *uint
	Type                string
	CategoryID          *uint
	EventID             *uint
	TotalAmount         decimal.Decimal
	Currency            string
	Description         string
	ReimbursementStatus string
	Metadata            string
	OccurredAt          time.Time
	Entries             []EntryInput
	Splits              []SplitInput
}

// CreateTransaction validates the proposed entries and splits, then persists
// the transaction with its children as one atomic unit. On any validation
// failure nothing is written.
func (s *Service) CreateTransaction(in TransactionInput) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = createTransaction(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// createTransaction is the builder body, reused by workflows that already
// hold an open database transaction.
func createTransaction(tx *gorm.DB, in TransactionInput) (*models.Transaction, error) {
	if len(in.Entries) == 0 {
		return nil, newError(KindDoubleEntryMismatch, "transaction requires at least one entry")
	}

	// core invariant: entry amounts must net to zero
	sum := decimal.Zero
	for _, e := range in.Entries {
		sum = sum.Add(e.Amount)
	}
	if !withinTolerance(sum) {
		return nil, newError(KindDoubleEntryMismatch,
			"entries do not balance, residual %s", sum.StringFixed(2))
	}

	splits, err := buildSplits(in.Splits, in.TotalAmount)
	if err != nil {
		return nil, err
	}

	status := in.ReimbursementStatus
	if status == "" {
		status = models.ReimbursementNone
	}
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	txn := models.Transaction{
		Reference:           uuid.NewString(),
		CreatedBy:           in.CreatedBy,
		ClubID:              in.ClubID,
		Type:                in.Type,
		CategoryID:          in.CategoryID,
		EventID:             in.EventID,
		TotalAmount:         in.TotalAmount,
		Currency:            currency,
		Description:         in.Description,
		IsSplit:             len(splits) > 0,
		ReimbursementStatus: status,
		Metadata:            in.Metadata,
		OccurredAt:          occurred,
		Splits:              splits,
	}
	for _, e := range in.Entries {
		txn.Entries = append(txn.Entries, models.Entry{
			AccountID: e.AccountID,
			Amount:    e.Amount,
		})
	}

	if err := tx.Create(&txn).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "transaction create failed")
	}

	// return the row joined with all child collections
	var out models.Transaction
	if err := tx.
		Preload("Entries").
		Preload("Splits").
		Preload("Attachments").
		First(&out, txn.ID).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "reload transaction %d", txn.ID)
	}
	return &out, nil
}

// buildSplits validates that share amounts conserve the transaction total
// and derives each share's percentage.
func buildSplits(in []SplitInput, total decimal.Decimal) ([]models.Split, error) {
	if len(in) == 0 {
		return nil, nil
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, newError(KindInvalidAmount, "split transaction requires a positive total")
	}

	sum := decimal.Zero
	for _, sp := range in {
		if sp.ShareAmount.LessThanOrEqual(decimal.Zero) {
			return nil, newError(KindInvalidAmount,
				"split share for user %d must be positive", sp.UserID)
		}
		sum = sum.Add(sp.ShareAmount)
	}
	if !withinTolerance(sum.Sub(total)) {
		return nil, newError(KindInvalidAmount,
			"split shares sum to %s, total is %s", sum.StringFixed(2), total.StringFixed(2))
	}

	hundred := decimal.NewFromInt(100)
	splits := make([]models.Split, 0, len(in))
	for _, sp := range in {
		splits = append(splits, models.Split{
			UserID:      sp.UserID,
			ShareAmount: sp.ShareAmount,
			Percentage:  sp.ShareAmount.Mul(hundred).Div(total).Round(2),
		})
	}
	return splits, nil
}

// AttachReceipt appends a receipt file reference to an existing transaction.
func (s *Service) AttachReceipt(userID, transactionID uint, fileName, fileType string, fileSize int64) (*models.Attachment, error) {
	var txn models.Transaction
	if err := s.db.First(&txn, transactionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(KindTransactionNotFound, "transaction %d not found", transactionID)
		}
		return nil, wrapError(KindInternalError, err, "load transaction %d", transactionID)
	}
	if txn.CreatedBy != userID {
		return nil, newError(KindInvalidAccount, "transaction %d does not belong to user %d", transactionID, userID)
	}

	att := models.Attachment{
		TransactionID: txn.ID,
		FileName:      fileName,
		FileSize:      fileSize,
		FileType:      fileType,
		StorageKey:    uuid.NewString(),
	}
	if err := s.db.Create(&att).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "create attachment")
	}
	return &att, nil
}
