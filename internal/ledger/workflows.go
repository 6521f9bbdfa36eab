package ledger

import (
	"encoding/json"
	"time"

	"github.com/RovierrHQ/rovierr/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountInput describes a new ledger account. Exactly one of UserID and
// ClubID must be set.
type AccountInput struct {
	UserID   *uint
	ClubID   *uint
	Type     string
	Name     string
	Currency string
}

// CreateAccount creates a ledger account owned by a user or a club.
func (s *Service) CreateAccount(in AccountInput) (*models.Account, error) {
	if (in.UserID == nil) == (in.ClubID == nil) {
		return nil, newError(KindInvalidOwner, "account requires exactly one of user or club owner")
	}
	switch in.Type {
	case models.AccountTypeAsset, models.AccountTypeLiability, models.AccountTypeEquity,
		models.AccountTypeIncome, models.AccountTypeExpense:
	default:
		return nil, newError(KindInvalidAccount, "unknown account type %q", in.Type)
	}
	if in.Name == "" {
		return nil, newError(KindInvalidAccount, "account name is required")
	}

	acc := models.Account{
		UserID:   in.UserID,
		ClubID:   in.ClubID,
		Type:     in.Type,
		Name:     in.Name,
		Currency: in.Currency,
	}
	if acc.Currency == "" {
		acc.Currency = DefaultCurrency
	}
	if err := s.db.Create(&acc).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "create account")
	}
	return &acc, nil
}

// ArchiveAccount soft-deletes an account owned by the acting user. Entries
// referencing it remain; the account is never hard-deleted.
func (s *Service) ArchiveAccount(userID, accountID uint) error {
	var acc models.Account
	if err := s.db.First(&acc, accountID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newError(KindInvalidAccount, "account %d not found", accountID)
		}
		return wrapError(KindInternalError, err, "load account %d", accountID)
	}
	if acc.UserID == nil || *acc.UserID != userID {
		return newError(KindInvalidAccount, "account %d does not belong to user %d", accountID, userID)
	}
	if acc.ArchivedAt != nil {
		return nil
	}
	now := time.Now()
	if err := s.db.Model(&acc).Update("archived_at", &now).Error; err != nil {
		return wrapError(KindInternalError, err, "archive account %d", accountID)
	}
	return nil
}

// ListAccounts returns the non-archived accounts owned by the user.
func (s *Service) ListAccounts(userID uint) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.
		Where("user_id = ? AND archived_at IS NULL", userID).
		Order("id ASC").
		Find(&accounts).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "list accounts")
	}
	return accounts, nil
}

// ExpenseInput describes a personal or club expense. When ClubID is set the
// paying account must belong to that club and the transaction is tagged
// club_expense; otherwise the account must belong to the acting user.
//
// By default both legs post to the paying account (self-offsetting, carries
// no funding information). Set FundingAccountID to post the credit leg to a
// real funding source instead.
type ExpenseInput struct {
	UserID           uint
	AccountID        uint
	FundingAccountID *uint
	ClubID           *uint
	CategoryID       *uint
	EventID          *uint
	TotalAmount      decimal.Decimal
	Currency         string
	Description      string
	OccurredAt       time.Time
	Splits           []SplitInput
}

// RecordExpense verifies ownership of the paying account, then records a
// balanced expense transaction, optionally split among users.
func (s *Service) RecordExpense(in ExpenseInput) (*models.Transaction, error) {
	if in.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, newError(KindInvalidAmount, "expense total must be positive")
	}

	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		acc, err := loadAccount(tx, in.AccountID)
		if err != nil {
			return err
		}
		if in.ClubID != nil {
			if acc.ClubID == nil || *acc.ClubID != *in.ClubID {
				return newError(KindInvalidAccount,
					"account %d does not belong to club %d", in.AccountID, *in.ClubID)
			}
		} else if acc.UserID == nil || *acc.UserID != in.UserID {
			return newError(KindInvalidAccount,
				"account %d does not belong to user %d", in.AccountID, in.UserID)
		}

		creditAccountID := in.AccountID
		if in.FundingAccountID != nil {
			funding, err := loadAccount(tx, *in.FundingAccountID)
			if err != nil {
				return err
			}
			creditAccountID = funding.ID
		}

		txnType := models.TxnPersonalExpense
		if in.ClubID != nil {
			txnType = models.TxnClubExpense
		}

		txn, err = createTransaction(tx, TransactionInput{
			CreatedBy:   in.UserID,
			ClubID:      in.ClubID,
			Type:        txnType,
			CategoryID:  in.CategoryID,
			EventID:     in.EventID,
			TotalAmount: in.TotalAmount,
			Currency:    in.Currency,
			Description: in.Description,
			OccurredAt:  in.OccurredAt,
			Entries: []EntryInput{
				{AccountID: in.AccountID, Amount: in.TotalAmount},
				{AccountID: creditAccountID, Amount: in.TotalAmount.Neg()},
			},
			Splits: in.Splits,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// reimbursementLink is the metadata payload tying a reimbursement (or its
// payment) back to the transaction it settles.
type reimbursementLink struct {
	TransactionID uint `json:"transaction_id"`
}

// RequestReimbursement records a pending reimbursement of a prior expense:
// the club owes the requesting user. The club's "Reimbursements Payable"
// liability account and the user's "Reimbursements Receivable" asset account
// are provisioned on first use via an insert-on-conflict upsert, so
// concurrent first requests converge on a single account pair.
func (s *Service) RequestReimbursement(userID, clubID, expenseTransactionID uint) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var expense models.Transaction
		if err := tx.First(&expense, expenseTransactionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(KindTransactionNotFound,
					"transaction %d not found", expenseTransactionID)
			}
			return wrapError(KindInternalError, err, "load transaction %d", expenseTransactionID)
		}
		if expense.ClubID != nil && *expense.ClubID != clubID {
			return newError(KindInvalidClub,
				"transaction %d belongs to club %d, not %d", expense.ID, *expense.ClubID, clubID)
		}

		payable, err := getOrCreateAccount(tx, models.Account{
			ClubID:   &clubID,
			Type:     models.AccountTypeLiability,
			Name:     ReimbursementsPayableName,
			Currency: expense.Currency,
		})
		if err != nil {
			return err
		}
		receivable, err := getOrCreateAccount(tx, models.Account{
			UserID:   &userID,
			Type:     models.AccountTypeAsset,
			Name:     ReimbursementsReceivableName,
			Currency: expense.Currency,
		})
		if err != nil {
			return err
		}

		meta, _ := json.Marshal(reimbursementLink{TransactionID: expense.ID})
		txn, err = createTransaction(tx, TransactionInput{
			CreatedBy:           userID,
			ClubID:              &clubID,
			Type:                models.TxnReimbursement,
			TotalAmount:         expense.TotalAmount,
			Currency:            expense.Currency,
			Description:         "Reimbursement: " + expense.Description,
			ReimbursementStatus: models.ReimbursementPending,
			Metadata:            string(meta),
			Entries: []EntryInput{
				{AccountID: payable.ID, Amount: expense.TotalAmount},
				{AccountID: receivable.ID, Amount: expense.TotalAmount.Neg()},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ApproveReimbursement transitions a pending reimbursement to approved.
// No entries are created or modified.
func (s *Service) ApproveReimbursement(transactionID uint) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, transactionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(KindTransactionNotFound, "transaction %d not found", transactionID)
			}
			return wrapError(KindInternalError, err, "load transaction %d", transactionID)
		}
		if txn.Type != models.TxnReimbursement {
			return newError(KindInvalidState, "transaction %d is not a reimbursement", transactionID)
		}
		if txn.ReimbursementStatus != models.ReimbursementPending {
			return newError(KindInvalidState,
				"reimbursement %d is %s, expected pending", transactionID, txn.ReimbursementStatus)
		}
		txn.ReimbursementStatus = models.ReimbursementApproved
		if err := tx.Model(&txn).
			Update("reimbursement_status", models.ReimbursementApproved).Error; err != nil {
			return wrapError(KindInternalError, err, "update reimbursement %d", transactionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// PayReimbursement settles an approved reimbursement: a payment transaction
// moves money from the club account to the member account, and the original
// reimbursement transitions to paid. Both writes happen in one database
// transaction; any failure rolls back both.
func (s *Service) PayReimbursement(transactionID, clubAccountID, memberAccountID uint, payerUserID uint) (*models.Transaction, error) {
	var payment *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var reimb models.Transaction
		if err := tx.First(&reimb, transactionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(KindTransactionNotFound, "transaction %d not found", transactionID)
			}
			return wrapError(KindInternalError, err, "load transaction %d", transactionID)
		}
		if reimb.Type != models.TxnReimbursement {
			return newError(KindInvalidState, "transaction %d is not a reimbursement", transactionID)
		}
		if reimb.ReimbursementStatus != models.ReimbursementApproved {
			return newError(KindInvalidState,
				"reimbursement %d is %s, expected approved", transactionID, reimb.ReimbursementStatus)
		}

		clubAcc, err := loadAccount(tx, clubAccountID)
		if err != nil {
			return err
		}
		if clubAcc.ClubID == nil || reimb.ClubID == nil || *clubAcc.ClubID != *reimb.ClubID {
			return newError(KindInvalidAccount,
				"account %d does not belong to the reimbursing club", clubAccountID)
		}
		memberAcc, err := loadAccount(tx, memberAccountID)
		if err != nil {
			return err
		}

		meta, _ := json.Marshal(reimbursementLink{TransactionID: reimb.ID})
		payment, err = createTransaction(tx, TransactionInput{
			CreatedBy:   payerUserID,
			ClubID:      reimb.ClubID,
			Type:        models.TxnTransfer,
			TotalAmount: reimb.TotalAmount,
			Currency:    reimb.Currency,
			Description: "Reimbursement payment",
			Metadata:    string(meta),
			Entries: []EntryInput{
				{AccountID: clubAcc.ID, Amount: reimb.TotalAmount},
				{AccountID: memberAcc.ID, Amount: reimb.TotalAmount.Neg()},
			},
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&reimb).
			Update("reimbursement_status", models.ReimbursementPaid).Error; err != nil {
			return wrapError(KindInternalError, err, "update reimbursement %d", transactionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// LoanInput describes a peer loan between two accounts.
type LoanInput struct {
	UserID            uint // acting user
	LenderAccountID   uint
	BorrowerAccountID uint
	Amount            decimal.Decimal
	Currency          string
	Description       string
	OccurredAt        time.Time
}

// RecordLoan records a peer loan: the borrower account is debited, the
// lender account credited. The type tag is lend when the acting user owns
// the lender account, borrow otherwise.
func (s *Service) RecordLoan(in LoanInput) (*models.Transaction, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, newError(KindInvalidAmount, "loan amount must be positive")
	}

	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		lender, borrower, err := loadAccountPair(tx, in.LenderAccountID, in.BorrowerAccountID)
		if err != nil {
			return err
		}

		// direction follows the lender account's owning user
		txnType := models.TxnBorrow
		if lender.UserID != nil && *lender.UserID == in.UserID {
			txnType = models.TxnLend
		}

		txn, err = createTransaction(tx, TransactionInput{
			CreatedBy:   in.UserID,
			Type:        txnType,
			TotalAmount: in.Amount,
			Currency:    in.Currency,
			Description: in.Description,
			OccurredAt:  in.OccurredAt,
			Entries: []EntryInput{
				{AccountID: borrower.ID, Amount: in.Amount},
				{AccountID: lender.ID, Amount: in.Amount.Neg()},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// TransferInput moves money from a source account to a destination account.
type TransferInput struct {
	UserID        uint
	FromAccountID uint
	ToAccountID   uint
	Amount        decimal.Decimal
	Currency      string
	Description   string
	OccurredAt    time.Time
}

// Transfer records a balanced transfer between two existing accounts. The
// acting user must own the source account or belong to its owning club.
func (s *Service) Transfer(in TransferInput) (*models.Transaction, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, newError(KindInvalidAmount, "transfer amount must be positive")
	}

	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		from, to, err := loadAccountPair(tx, in.FromAccountID, in.ToAccountID)
		if err != nil {
			return err
		}

		if from.UserID != nil {
			if *from.UserID != in.UserID {
				return newError(KindInvalidAccount,
					"account %d does not belong to user %d", from.ID, in.UserID)
			}
		} else if from.ClubID != nil {
			var count int64
			if err := tx.Model(&models.ClubMember{}).
				Where("club_id = ? AND user_id = ?", *from.ClubID, in.UserID).
				Count(&count).Error; err != nil {
				return wrapError(KindInternalError, err, "check club membership")
			}
			if count == 0 {
				return newError(KindInvalidAccount,
					"user %d is not a member of club %d", in.UserID, *from.ClubID)
			}
		}

		txn, err = createTransaction(tx, TransactionInput{
			CreatedBy:   in.UserID,
			ClubID:      from.ClubID,
			Type:        models.TxnTransfer,
			TotalAmount: in.Amount,
			Currency:    in.Currency,
			Description: in.Description,
			OccurredAt:  in.OccurredAt,
			Entries: []EntryInput{
				{AccountID: to.ID, Amount: in.Amount},
				{AccountID: from.ID, Amount: in.Amount.Neg()},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// RecordEventPayment records club income for an event (e.g. a ticket sale):
// the club account is debited, the club's event income account credited.
func (s *Service) RecordEventPayment(userID, clubID, accountID, eventID uint, amount decimal.Decimal, currency, description string) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, newError(KindInvalidAmount, "payment amount must be positive")
	}

	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		acc, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if acc.ClubID == nil || *acc.ClubID != clubID {
			return newError(KindInvalidAccount,
				"account %d does not belong to club %d", accountID, clubID)
		}

		income, err := getOrCreateAccount(tx, models.Account{
			ClubID:   &clubID,
			Type:     models.AccountTypeIncome,
			Name:     "Event Income",
			Currency: acc.Currency,
		})
		if err != nil {
			return err
		}

		txn, err = createTransaction(tx, TransactionInput{
			CreatedBy:   userID,
			ClubID:      &clubID,
			Type:        models.TxnEventPayment,
			EventID:     &eventID,
			TotalAmount: amount,
			Currency:    currency,
			Description: description,
			Entries: []EntryInput{
				{AccountID: acc.ID, Amount: amount},
				{AccountID: income.ID, Amount: amount.Neg()},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// loadAccount fetches a non-archived account.
func loadAccount(tx *gorm.DB, id uint) (*models.Account, error) {
	var acc models.Account
	if err := tx.First(&acc, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(KindInvalidAccount, "account %d not found", id)
		}
		return nil, wrapError(KindInternalError, err, "load account %d", id)
	}
	if acc.ArchivedAt != nil {
		return nil, newError(KindInvalidAccount, "account %d is archived", id)
	}
	return &acc, nil
}

// loadAccountPair fetches two accounts, reporting a joint error if either
// is missing.
func loadAccountPair(tx *gorm.DB, firstID, secondID uint) (*models.Account, *models.Account, error) {
	first, err := loadAccount(tx, firstID)
	if err != nil {
		if IsKind(err, KindInvalidAccount) {
			return nil, nil, newError(KindInvalidAccounts, "account %d not found or archived", firstID)
		}
		return nil, nil, err
	}
	second, err := loadAccount(tx, secondID)
	if err != nil {
		if IsKind(err, KindInvalidAccount) {
			return nil, nil, newError(KindInvalidAccounts, "account %d not found or archived", secondID)
		}
		return nil, nil, err
	}
	return first, second, nil
}

// getOrCreateAccount provisions an account idempotently: an insert with
// on-conflict-do-nothing keyed on the owner/type/name unique index, followed
// by a re-select. Safe under concurrent first use.
func getOrCreateAccount(tx *gorm.DB, acc models.Account) (*models.Account, error) {
	if acc.Currency == "" {
		acc.Currency = DefaultCurrency
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acc).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "provision account %q", acc.Name)
	}

	var out models.Account
	q := tx.Where("type = ? AND name = ?", acc.Type, acc.Name)
	if acc.ClubID != nil {
		q = q.Where("club_id = ?", *acc.ClubID)
	} else {
		q = q.Where("user_id = ?", *acc.UserID)
	}
	if err := q.First(&out).Error; err != nil {
		return nil, wrapError(KindInternalError, err, "load provisioned account %q", acc.Name)
	}
	return &out, nil
}
