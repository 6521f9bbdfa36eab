package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RovierrHQ/rovierr/internal/ledger"
	"github.com/RovierrHQ/rovierr/internal/middleware"
	"github.com/RovierrHQ/rovierr/internal/models"
	"github.com/RovierrHQ/rovierr/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ExpenseHandler serves the ledger API: accounts, expenses, reimbursements,
// loans, transfers, listings and balances.
type ExpenseHandler struct {
	db     *gorm.DB
	Ledger *ledger.Service
}

func NewExpenseHandler(db *gorm.DB) *ExpenseHandler {
	return &ExpenseHandler{db: db, Ledger: ledger.NewService(db)}
}

// ---------- accounts ----------

type createAccountReq struct {
	ClubID   *uint  `json:"club_id"`
	Type     string `json:"type" binding:"required"`
	Name     string `json:"name" binding:"required,max=128"`
	Currency string `json:"currency"`
}

func (h *ExpenseHandler) CreateAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}
	if req.Currency != "" {
		if err := util.ValidateCurrency(req.Currency); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
			return
		}
	}

	in := ledger.AccountInput{Type: req.Type, Name: req.Name, Currency: req.Currency}
	if req.ClubID != nil {
		in.ClubID = req.ClubID
	} else {
		uid := user.ID
		in.UserID = &uid
	}

	acc, err := h.Ledger.CreateAccount(in)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"account": acc})
}

func (h *ExpenseHandler) ListAccounts(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	accounts, err := h.Ledger.ListAccounts(user.ID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"accounts": accounts})
}

func (h *ExpenseHandler) ArchiveAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid account id")
		return
	}

	if err := h.Ledger.ArchiveAccount(user.ID, id); err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "account archived"})
}

// ---------- expenses ----------

type splitReq struct {
	UserID      uint   `json:"user_id" binding:"required"`
	ShareAmount string `json:"share_amount" binding:"required"`
}

type recordExpenseReq struct {
	AccountID        uint       `json:"account_id" binding:"required"`
	FundingAccountID *uint      `json:"funding_account_id"`
	ClubID           *uint      `json:"club_id"`
	CategoryID       *uint      `json:"category_id"`
	EventID          *uint      `json:"event_id"`
	Amount           string     `json:"amount" binding:"required"`
	Currency         string     `json:"currency"`
	Description      string     `json:"description" binding:"max=255"`
	OccurredAt       string     `json:"occurred_at"`
	Splits           []splitReq `json:"splits"`
}

func (h *ExpenseHandler) RecordExpense(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req recordExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	amount, err := util.ParseAmount(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return
	}

	splits := make([]ledger.SplitInput, 0, len(req.Splits))
	for _, sp := range req.Splits {
		share, err := util.ParseAmount(sp.ShareAmount)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid split share")
			return
		}
		splits = append(splits, ledger.SplitInput{UserID: sp.UserID, ShareAmount: share})
	}

	txn, err := h.Ledger.RecordExpense(ledger.ExpenseInput{
		UserID:           user.ID,
		AccountID:        req.AccountID,
		FundingAccountID: req.FundingAccountID,
		ClubID:           req.ClubID,
		CategoryID:       req.CategoryID,
		EventID:          req.EventID,
		TotalAmount:      amount,
		Currency:         req.Currency,
		Description:      req.Description,
		OccurredAt:       parseOccurredAt(req.OccurredAt),
		Splits:           splits,
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": txn})
}

// ---------- reimbursements ----------

type requestReimbursementReq struct {
	ClubID        uint `json:"club_id" binding:"required"`
	TransactionID uint `json:"transaction_id" binding:"required"`
}

func (h *ExpenseHandler) RequestReimbursement(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req requestReimbursementReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	txn, err := h.Ledger.RequestReimbursement(user.ID, req.ClubID, req.TransactionID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": txn})
}

func (h *ExpenseHandler) ApproveReimbursement(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid transaction id")
		return
	}

	txn, err := h.Ledger.ApproveReimbursement(id)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": txn})
}

type payReimbursementReq struct {
	ClubAccountID   uint `json:"club_account_id" binding:"required"`
	MemberAccountID uint `json:"member_account_id" binding:"required"`
}

func (h *ExpenseHandler) PayReimbursement(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid transaction id")
		return
	}

	var req payReimbursementReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	payment, err := h.Ledger.PayReimbursement(id, req.ClubAccountID, req.MemberAccountID, user.ID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": payment})
}

// ---------- loans and transfers ----------

type recordLoanReq struct {
	LenderAccountID   uint   `json:"lender_account_id" binding:"required"`
	BorrowerAccountID uint   `json:"borrower_account_id" binding:"required"`
	Amount            string `json:"amount" binding:"required"`
	Currency          string `json:"currency"`
	Description       string `json:"description" binding:"max=255"`
	OccurredAt        string `json:"occurred_at"`
}

func (h *ExpenseHandler) RecordLoan(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req recordLoanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	amount, err := util.ParseAmount(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return
	}

	txn, err := h.Ledger.RecordLoan(ledger.LoanInput{
		UserID:            user.ID,
		LenderAccountID:   req.LenderAccountID,
		BorrowerAccountID: req.BorrowerAccountID,
		Amount:            amount,
		Currency:          req.Currency,
		Description:       req.Description,
		OccurredAt:        parseOccurredAt(req.OccurredAt),
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": txn})
}

type transferReq struct {
	FromAccountID uint   `json:"from_account_id" binding:"required"`
	ToAccountID   uint   `json:"to_account_id" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency"`
	Description   string `json:"description" binding:"max=255"`
	OccurredAt    string `json:"occurred_at"`
}

func (h *ExpenseHandler) Transfer(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	amount, err := util.ParseAmount(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return
	}

	txn, err := h.Ledger.Transfer(ledger.TransferInput{
		UserID:        user.ID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        amount,
		Currency:      req.Currency,
		Description:   req.Description,
		OccurredAt:    parseOccurredAt(req.OccurredAt),
	})
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": txn})
}

// ---------- attachments and event payments ----------

type attachReceiptReq struct {
	FileName string `json:"file_name" binding:"required,max=255"`
	FileType string `json:"file_type" binding:"max=64"`
	FileSize int64  `json:"file_size" binding:"required"`
}

func (h *ExpenseHandler) AttachReceipt(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid transaction id")
		return
	}

	var req attachReceiptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	att, err := h.Ledger.AttachReceipt(user.ID, id, req.FileName, req.FileType, req.FileSize)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"attachment": att})
}

type eventPaymentReq struct {
	AccountID   uint   `json:"account_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency"`
	Description string `json:"description" binding:"max=255"`
}

func (h *ExpenseHandler) RecordEventPayment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	eventID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid event id")
		return
	}

	var req eventPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	amount, err := util.ParseAmount(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return
	}

	// the owning club comes from the event itself
	var event models.Event
	if err := h.db.First(&event, eventID).Error; err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "event not found")
		return
	}

	txn, err := h.Ledger.RecordEventPayment(user.ID, event.ClubID, req.AccountID,
		event.ID, amount, req.Currency, req.Description)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": txn})
}

// ---------- listings and balances ----------

func (h *ExpenseHandler) ListTransactions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	filter := ledger.TxnFilter{
		Type:  c.Query("type"),
		Page:  intQuery(c, "page", 1),
		Limit: intQuery(c, "limit", 20),
	}
	if id := uintQuery(c, "club_id"); id != nil {
		filter.ClubID = id
	}
	if id := uintQuery(c, "user_id"); id != nil {
		filter.UserID = id
	}
	if id := uintQuery(c, "category_id"); id != nil {
		filter.CategoryID = id
	}
	if id := uintQuery(c, "event_id"); id != nil {
		filter.EventID = id
	}
	var err error
	filter.From, filter.To, err = dateRange(c)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid date, expected YYYY-MM-DD")
		return
	}

	page, err := h.Ledger.ListTransactions(user.ID, filter)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{
		"transactions": page.Transactions,
		"total":        page.Total,
		"page":         page.Page,
		"limit":        page.Limit,
	})
}

func (h *ExpenseHandler) NetBalance(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	report, err := h.Ledger.NetBalance(user.ID)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"balance": report})
}

// ---------- helpers ----------

// parseOccurredAt accepts RFC3339, date-time without zone, or a bare date;
// anything else falls back to now.
func parseOccurredAt(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func uintQuery(c *gin.Context, name string) *uint {
	s := c.Query(name)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return nil
	}
	u := uint(v)
	return &u
}

// dateRange parses start/end query parameters; end is exclusive of the
// following day.
func dateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if s := c.Query("start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, nil, err
		}
		t = t.Add(24 * time.Hour)
		to = &t
	}
	return from, to, nil
}
