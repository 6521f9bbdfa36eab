package ledger

import (
	"time"

	"github.com/RovierrHQ/rovierr/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountBalance is one account's running balance: the sum of every entry
// amount posted to it.
type AccountBalance struct {
	Account models.Account  `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// NetBalanceReport aggregates a user's position across all their accounts.
type NetBalanceReport struct {
	Accounts              []AccountBalance `json:"accounts"`
	Total                 decimal.Decimal  `json:"total"`
	PendingReimbursements decimal.Decimal  `json:"pending_reimbursements"`
	LoanReceivable        decimal.Decimal  `json:"loan_receivable"`
	LoanPayable           decimal.Decimal  `json:"loan_payable"`
	Currency              string           `json:"currency"`
}

// NetBalance computes the user's net position. All constituent queries run
// inside one database transaction so the report sees a consistent snapshot
// under concurrent writes.
func (s *Service) NetBalance(userID uint) (*NetBalanceReport, error) {
	report := &NetBalanceReport{
		Total:                 decimal.Zero,
		PendingReimbursements: decimal.Zero,
		LoanReceivable:        decimal.Zero,
		LoanPayable:           decimal.Zero,
		Currency:              DefaultCurrency,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var accounts []models.Account
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&accounts).Error; err != nil {
			return wrapError(KindInternalError, err, "list accounts")
		}
		if len(accounts) > 0 {
			report.Currency = accounts[0].Currency
		}

		accountIDs := make([]uint, 0, len(accounts))
		for _, acc := range accounts {
			accountIDs = append(accountIDs, acc.ID)
			balance, err := sumEntries(tx, "account_id = ?", acc.ID)
			if err != nil {
				return err
			}
			report.Accounts = append(report.Accounts, AccountBalance{Account: acc, Balance: balance})
			report.Total = report.Total.Add(balance)
		}

		// pending reimbursements created by, or split among, the user
		var pending []models.Transaction
		if err := tx.
			Where("type = ? AND reimbursement_status = ?",
				models.TxnReimbursement, models.ReimbursementPending).
			Where("created_by = ? OR id IN (?)", userID,
				tx.Model(&models.Split{}).Select("transaction_id").Where("user_id = ?", userID)).
			Find(&pending).Error; err != nil {
			return wrapError(KindInternalError, err, "list pending reimbursements")
		}
		for _, t := range pending {
			report.PendingReimbursements = report.PendingReimbursements.Add(t.TotalAmount)
		}

		if len(accountIDs) == 0 {
			return nil
		}

		// loans: entries of lend/borrow transactions touching the user's
		// accounts; credits mean money lent out, debits money borrowed
		var loanEntries []models.Entry
		if err := tx.
			Where("account_id IN ?", accountIDs).
			Where("transaction_id IN (?)",
				tx.Model(&models.Transaction{}).Select("id").
					Where("type IN ?", []string{models.TxnLend, models.TxnBorrow})).
			Find(&loanEntries).Error; err != nil {
			return wrapError(KindInternalError, err, "list loan entries")
		}
		for _, e := range loanEntries {
			if e.Amount.IsNegative() {
				report.LoanReceivable = report.LoanReceivable.Add(e.Amount.Neg())
			} else {
				report.LoanPayable = report.LoanPayable.Add(e.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ReportFilter narrows club-ledger and transaction listings.
type ReportFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *uint
	EventID    *uint
	Page       int
	Limit      int
}

// ClubLedgerReport is the club's income/expense summary plus the matching
// transactions.
type ClubLedgerReport struct {
	TotalIncome   decimal.Decimal      `json:"total_income"`
	TotalExpenses decimal.Decimal      `json:"total_expenses"`
	NetBalance    decimal.Decimal      `json:"net_balance"`
	Transactions  []models.Transaction `json:"transactions"`
	Total         int64                `json:"total"`
	Page          int                  `json:"page"`
	Limit         int                  `json:"limit"`
}

// ClubLedger aggregates a club's ledger: income is the event_payment total,
// expenses are club_expense plus reimbursement totals, and the matching
// transactions are returned paginated with their child collections. Runs in
// one snapshot transaction.
func (s *Service) ClubLedger(clubID uint, filter ReportFilter) (*ClubLedgerReport, error) {
	page, limit := clampPage(filter.Page, filter.Limit)
	report := &ClubLedgerReport{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Page:          page,
		Limit:         limit,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		base := tx.Model(&models.Transaction{}).Where("club_id = ?", clubID)
		base = applyReportFilter(base, filter)

		var matched []models.Transaction
		if err := base.Session(&gorm.Session{}).Find(&matched).Error; err != nil {
			return wrapError(KindInternalError, err, "list club transactions")
		}
		for _, t := range matched {
			switch t.Type {
			case models.TxnEventPayment:
				report.TotalIncome = report.TotalIncome.Add(t.TotalAmount)
			case models.TxnClubExpense, models.TxnReimbursement:
				report.TotalExpenses = report.TotalExpenses.Add(t.TotalAmount)
			}
		}
		report.NetBalance = report.TotalIncome.Sub(report.TotalExpenses)

		if err := base.Session(&gorm.Session{}).Count(&report.Total).Error; err != nil {
			return wrapError(KindInternalError, err, "count club transactions")
		}
		if err := base.Session(&gorm.Session{}).
			Preload("Entries").
			Preload("Splits").
			Preload("Attachments").
			Order("occurred_at DESC, id DESC").
			Limit(limit).
			Offset((page - 1) * limit).
			Find(&report.Transactions).Error; err != nil {
			return wrapError(KindInternalError, err, "page club transactions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// TxnFilter narrows the generic transaction listing. When neither ClubID nor
// UserID is set, the listing defaults to transactions created by the acting
// user.
type TxnFilter struct {
	ClubID     *uint
	UserID     *uint
	Type       string
	CategoryID *uint
	EventID    *uint
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// TransactionPage is one page of a filtered transaction listing.
type TransactionPage struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
}

// ListTransactions returns a filtered, paginated transaction listing with
// child collections eager-loaded.
func (s *Service) ListTransactions(actingUserID uint, filter TxnFilter) (*TransactionPage, error) {
	page, limit := clampPage(filter.Page, filter.Limit)
	result := &TransactionPage{Page: page, Limit: limit}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		base := tx.Model(&models.Transaction{})
		switch {
		case filter.ClubID != nil:
			base = base.Where("club_id = ?", *filter.ClubID)
		case filter.UserID != nil:
			base = base.Where("created_by = ?", *filter.UserID)
		default:
			base = base.Where("created_by = ?", actingUserID)
		}
		if filter.Type != "" {
			base = base.Where("type = ?", filter.Type)
		}
		base = applyReportFilter(base, ReportFilter{
			From:       filter.From,
			To:         filter.To,
			CategoryID: filter.CategoryID,
			EventID:    filter.EventID,
		})

		if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
			return wrapError(KindInternalError, err, "count transactions")
		}
		if err := base.Session(&gorm.Session{}).
			Preload("Entries").
			Preload("Splits").
			Preload("Attachments").
			Order("occurred_at DESC, id DESC").
			Limit(limit).
			Offset((page - 1) * limit).
			Find(&result.Transactions).Error; err != nil {
			return wrapError(KindInternalError, err, "page transactions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AccountBalanceFor returns one account's running entry sum.
func (s *Service) AccountBalanceFor(accountID uint) (decimal.Decimal, error) {
	return sumEntries(s.db, "account_id = ?", accountID)
}

func sumEntries(tx *gorm.DB, query string, args ...interface{}) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := tx.Model(&models.Entry{}).
		Where(query, args...).
		Select("SUM(amount)").
		Scan(&sum).Error; err != nil {
		return decimal.Zero, wrapError(KindInternalError, err, "sum entries")
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func applyReportFilter(q *gorm.DB, filter ReportFilter) *gorm.DB {
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_at < ?", *filter.To)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.EventID != nil {
		q = q.Where("event_id = ?", *filter.EventID)
	}
	return q
}

func clampPage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}
