package ledger

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/RovierrHQ/rovierr/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Club{}, &models.ClubMember{},
		&models.Account{}, &models.Transaction{}, &models.Entry{},
		&models.Split{}, &models.Attachment{},
		&models.Category{}, &models.Event{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := models.User{Username: username, PasswordHash: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func createClub(t *testing.T, db *gorm.DB, name string, ownerID uint) *models.Club {
	t.Helper()
	club := models.Club{Name: name, CreatedBy: ownerID}
	if err := db.Create(&club).Error; err != nil {
		t.Fatalf("create club: %v", err)
	}
	member := models.ClubMember{ClubID: club.ID, UserID: ownerID, Role: "owner"}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return &club
}

func createUserAccount(t *testing.T, db *gorm.DB, userID uint, name string) *models.Account {
	t.Helper()
	acc := models.Account{UserID: &userID, Type: models.AccountTypeAsset, Name: name, Currency: "HKD"}
	if err := db.Create(&acc).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return &acc
}

func createClubAccount(t *testing.T, db *gorm.DB, clubID uint, name string) *models.Account {
	t.Helper()
	acc := models.Account{ClubID: &clubID, Type: models.AccountTypeAsset, Name: name, Currency: "HKD"}
	if err := db.Create(&acc).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return &acc
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ---------- transaction builder ----------

func TestCreateTransaction_Balanced(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	acc := createUserAccount(t, db, user.ID, "Wallet")

	txn, err := svc.CreateTransaction(TransactionInput{
		CreatedBy:   user.ID,
		Type:        models.TxnPersonalExpense,
		TotalAmount: dec("50.00"),
		Entries: []EntryInput{
			{AccountID: acc.ID, Amount: dec("50.00")},
			{AccountID: acc.ID, Amount: dec("-50.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if len(txn.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(txn.Entries))
	}
	sum := txn.Entries[0].Amount.Add(txn.Entries[1].Amount)
	if !sum.IsZero() {
		t.Errorf("entry sum = %s, want 0", sum)
	}
	if txn.Reference == "" {
		t.Error("reference is empty")
	}
	if len(txn.Splits) != 0 {
		t.Errorf("splits = %d, want none", len(txn.Splits))
	}
}

func TestCreateTransaction_Unbalanced(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	acc := createUserAccount(t, db, user.ID, "Wallet")

	// several residuals above tolerance must all be rejected with no writes
	residuals := []string{"0.01", "0.02", "1.00", "-5.43", "100.00"}
	for _, r := range residuals {
		_, err := svc.CreateTransaction(TransactionInput{
			CreatedBy:   user.ID,
			Type:        models.TxnPersonalExpense,
			TotalAmount: dec("50.00"),
			Entries: []EntryInput{
				{AccountID: acc.ID, Amount: dec("50.00")},
				{AccountID: acc.ID, Amount: dec("-50.00").Add(dec(r))},
			},
		})
		if !IsKind(err, KindDoubleEntryMismatch) {
			t.Errorf("residual %s: error = %v, want DoubleEntryMismatch", r, err)
		}
	}

	var txnCount, entryCount int64
	db.Model(&models.Transaction{}).Count(&txnCount)
	db.Model(&models.Entry{}).Count(&entryCount)
	if txnCount != 0 || entryCount != 0 {
		t.Errorf("persisted %d transactions, %d entries, want none", txnCount, entryCount)
	}
}

func TestCreateTransaction_ResidualWithinTolerance(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	acc := createUserAccount(t, db, user.ID, "Wallet")

	_, err := svc.CreateTransaction(TransactionInput{
		CreatedBy:   user.ID,
		Type:        models.TxnPersonalExpense,
		TotalAmount: dec("50.00"),
		Entries: []EntryInput{
			{AccountID: acc.ID, Amount: dec("50.00")},
			{AccountID: acc.ID, Amount: dec("-49.995")},
		},
	})
	if err != nil {
		t.Fatalf("residual below tolerance rejected: %v", err)
	}
}

func TestCreateTransaction_NoEntries(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.CreateTransaction(TransactionInput{
		CreatedBy:   1,
		Type:        models.TxnPersonalExpense,
		TotalAmount: dec("50.00"),
	})
	if !IsKind(err, KindDoubleEntryMismatch) {
		t.Errorf("error = %v, want DoubleEntryMismatch", err)
	}
}

// ---------- expenses ----------

func TestRecordExpense_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	acc := createUserAccount(t, db, user.ID, "Wallet")

	txn, err := svc.RecordExpense(ExpenseInput{
		UserID:      user.ID,
		AccountID:   acc.ID,
		TotalAmount: dec("50.00"),
		Currency:    "HKD",
		Description: "Lunch",
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}

	if txn.Type != models.TxnPersonalExpense {
		t.Errorf("type = %q, want personal_expense", txn.Type)
	}
	if txn.IsSplit {
		t.Error("isSplit = true, want false")
	}
	if len(txn.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(txn.Entries))
	}
	sum := decimal.Zero
	for _, e := range txn.Entries {
		if e.AccountID != acc.ID {
			t.Errorf("entry account = %d, want %d", e.AccountID, acc.ID)
		}
		sum = sum.Add(e.Amount)
	}
	if !sum.IsZero() {
		t.Errorf("entry sum = %s, want 0.00", sum)
	}
}

func TestRecordExpense_FundingAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	spend := createUserAccount(t, db, user.ID, "Meals")
	bank := createUserAccount(t, db, user.ID, "Bank")

	txn, err := svc.RecordExpense(ExpenseInput{
		UserID:           user.ID,
		AccountID:        spend.ID,
		FundingAccountID: &bank.ID,
		TotalAmount:      dec("30.00"),
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}

	var debit, credit *models.Entry
	for i := range txn.Entries {
		if txn.Entries[i].Amount.IsPositive() {
			debit = &txn.Entries[i]
		} else {
			credit = &txn.Entries[i]
		}
	}
	if debit == nil || debit.AccountID != spend.ID {
		t.Error("debit leg should post to the paying account")
	}
	if credit == nil || credit.AccountID != bank.ID {
		t.Error("credit leg should post to the funding account")
	}
}

func TestRecordExpense_Ownership(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	bobAcc := createUserAccount(t, db, bob.ID, "Wallet")

	_, err := svc.RecordExpense(ExpenseInput{
		UserID:      alice.ID,
		AccountID:   bobAcc.ID,
		TotalAmount: dec("10.00"),
	})
	if !IsKind(err, KindInvalidAccount) {
		t.Errorf("error = %v, want InvalidAccount", err)
	}
}

func TestRecordExpense_ClubAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	club := createClub(t, db, "Chess Club", alice.ID)
	clubAcc := createClubAccount(t, db, club.ID, "Club Cash")

	txn, err := svc.RecordExpense(ExpenseInput{
		UserID:      alice.ID,
		AccountID:   clubAcc.ID,
		ClubID:      &club.ID,
		TotalAmount: dec("200.00"),
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if txn.Type != models.TxnClubExpense {
		t.Errorf("type = %q, want club_expense", txn.Type)
	}
}

func TestRecordExpense_Splits(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u1 := createUser(t, db, "alice")
	u2 := createUser(t, db, "bob")
	acc := createUserAccount(t, db, u1.ID, "Wallet")

	txn, err := svc.RecordExpense(ExpenseInput{
		UserID:      u1.ID,
		AccountID:   acc.ID,
		TotalAmount: dec("100.00"),
		Splits: []SplitInput{
			{UserID: u1.ID, ShareAmount: dec("60.00")},
			{UserID: u2.ID, ShareAmount: dec("40.00")},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if !txn.IsSplit {
		t.Error("isSplit = false, want true")
	}
	if len(txn.Splits) != 2 {
		t.Fatalf("splits = %d, want 2", len(txn.Splits))
	}
	wantPct := map[uint]string{u1.ID: "60", u2.ID: "40"}
	for _, sp := range txn.Splits {
		if !sp.Percentage.Equal(dec(wantPct[sp.UserID])) {
			t.Errorf("user %d percentage = %s, want %s", sp.UserID, sp.Percentage, wantPct[sp.UserID])
		}
	}
}

func TestRecordExpense_SplitsDoNotConserve(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u1 := createUser(t, db, "alice")
	u2 := createUser(t, db, "bob")
	acc := createUserAccount(t, db, u1.ID, "Wallet")

	_, err := svc.RecordExpense(ExpenseInput{
		UserID:      u1.ID,
		AccountID:   acc.ID,
		TotalAmount: dec("100.00"),
		Splits: []SplitInput{
			{UserID: u1.ID, ShareAmount: dec("60.00")},
			{UserID: u2.ID, ShareAmount: dec("30.00")},
		},
	})
	if !IsKind(err, KindInvalidAmount) {
		t.Errorf("error = %v, want InvalidAmount", err)
	}

	var txnCount, splitCount int64
	db.Model(&models.Transaction{}).Count(&txnCount)
	db.Model(&models.Split{}).Count(&splitCount)
	if txnCount != 0 || splitCount != 0 {
		t.Errorf("persisted %d transactions, %d splits, want none", txnCount, splitCount)
	}
}

// ---------- reimbursements ----------

func setupExpense(t *testing.T, db *gorm.DB, svc *Service) (*models.User, *models.Club, *models.Transaction) {
	t.Helper()
	user := createUser(t, db, "alice")
	club := createClub(t, db, "Chess Club", user.ID)
	acc := createUserAccount(t, db, user.ID, "Wallet")
	txn, err := svc.RecordExpense(ExpenseInput{
		UserID:      user.ID,
		AccountID:   acc.ID,
		TotalAmount: dec("80.00"),
		Currency:    "HKD",
		Description: "Tournament fee",
	})
	if err != nil {
		t.Fatalf("setup expense: %v", err)
	}
	return user, club, txn
}

func TestRequestReimbursement(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user, club, expense := setupExpense(t, db, svc)

	reimb, err := svc.RequestReimbursement(user.ID, club.ID, expense.ID)
	if err != nil {
		t.Fatalf("RequestReimbursement() error = %v", err)
	}
	if reimb.Type != models.TxnReimbursement {
		t.Errorf("type = %q, want reimbursement", reimb.Type)
	}
	if reimb.ReimbursementStatus != models.ReimbursementPending {
		t.Errorf("status = %q, want pending", reimb.ReimbursementStatus)
	}
	if !reimb.TotalAmount.Equal(expense.TotalAmount) {
		t.Errorf("amount = %s, want %s", reimb.TotalAmount, expense.TotalAmount)
	}

	var payable, receivable models.Account
	if err := db.Where("club_id = ? AND name = ?", club.ID, ReimbursementsPayableName).
		First(&payable).Error; err != nil {
		t.Fatalf("payable account not provisioned: %v", err)
	}
	if err := db.Where("user_id = ? AND name = ?", user.ID, ReimbursementsReceivableName).
		First(&receivable).Error; err != nil {
		t.Fatalf("receivable account not provisioned: %v", err)
	}
	if payable.Type != models.AccountTypeLiability {
		t.Errorf("payable type = %q, want liability", payable.Type)
	}
	if receivable.Type != models.AccountTypeAsset {
		t.Errorf("receivable type = %q, want asset", receivable.Type)
	}

	// debit the club liability, credit the user asset
	for _, e := range reimb.Entries {
		switch e.AccountID {
		case payable.ID:
			if !e.Amount.Equal(dec("80.00")) {
				t.Errorf("payable entry = %s, want 80.00", e.Amount)
			}
		case receivable.ID:
			if !e.Amount.Equal(dec("-80.00")) {
				t.Errorf("receivable entry = %s, want -80.00", e.Amount)
			}
		default:
			t.Errorf("entry on unexpected account %d", e.AccountID)
		}
	}
}

func TestRequestReimbursement_IdempotentProvisioning(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user, club, expense := setupExpense(t, db, svc)

	if _, err := svc.RequestReimbursement(user.ID, club.ID, expense.ID); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := svc.RequestReimbursement(user.ID, club.ID, expense.ID); err != nil {
		t.Fatalf("second request: %v", err)
	}

	var payableCount, receivableCount int64
	db.Model(&models.Account{}).
		Where("club_id = ? AND name = ?", club.ID, ReimbursementsPayableName).
		Count(&payableCount)
	db.Model(&models.Account{}).
		Where("user_id = ? AND name = ?", user.ID, ReimbursementsReceivableName).
		Count(&receivableCount)
	if payableCount != 1 {
		t.Errorf("payable accounts = %d, want 1", payableCount)
	}
	if receivableCount != 1 {
		t.Errorf("receivable accounts = %d, want 1", receivableCount)
	}
}

func TestRequestReimbursement_WrongClub(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	club := createClub(t, db, "Chess Club", user.ID)
	other := createClub(t, db, "Go Club", user.ID)
	clubAcc := createClubAccount(t, db, club.ID, "Club Cash")

	expense, err := svc.RecordExpense(ExpenseInput{
		UserID:      user.ID,
		AccountID:   clubAcc.ID,
		ClubID:      &club.ID,
		TotalAmount: dec("80.00"),
	})
	if err != nil {
		t.Fatalf("setup expense: %v", err)
	}

	_, err = svc.RequestReimbursement(user.ID, other.ID, expense.ID)
	if !IsKind(err, KindInvalidClub) {
		t.Errorf("error = %v, want InvalidClub", err)
	}
}

func TestReimbursementLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user, club, expense := setupExpense(t, db, svc)
	clubAcc := createClubAccount(t, db, club.ID, "Club Cash")
	memberAcc := createUserAccount(t, db, user.ID, "Bank")

	reimb, err := svc.RequestReimbursement(user.ID, club.ID, expense.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// pay before approval must fail and leave status untouched
	if _, err := svc.PayReimbursement(reimb.ID, clubAcc.ID, memberAcc.ID, user.ID); !IsKind(err, KindInvalidState) {
		t.Fatalf("pay pending: error = %v, want InvalidState", err)
	}
	var check models.Transaction
	db.First(&check, reimb.ID)
	if check.ReimbursementStatus != models.ReimbursementPending {
		t.Fatalf("status after failed pay = %q, want pending", check.ReimbursementStatus)
	}

	approved, err := svc.ApproveReimbursement(reimb.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ReimbursementStatus != models.ReimbursementApproved {
		t.Fatalf("status = %q, want approved", approved.ReimbursementStatus)
	}

	// approving twice must fail
	if _, err := svc.ApproveReimbursement(reimb.ID); !IsKind(err, KindInvalidState) {
		t.Fatalf("double approve: error = %v, want InvalidState", err)
	}

	payment, err := svc.PayReimbursement(reimb.ID, clubAcc.ID, memberAcc.ID, user.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if payment.Type != models.TxnTransfer {
		t.Errorf("payment type = %q, want transfer", payment.Type)
	}
	if !payment.TotalAmount.Equal(reimb.TotalAmount) {
		t.Errorf("payment amount = %s, want %s", payment.TotalAmount, reimb.TotalAmount)
	}

	db.First(&check, reimb.ID)
	if check.ReimbursementStatus != models.ReimbursementPaid {
		t.Errorf("status = %q, want paid", check.ReimbursementStatus)
	}

	// paying again must fail
	if _, err := svc.PayReimbursement(reimb.ID, clubAcc.ID, memberAcc.ID, user.ID); !IsKind(err, KindInvalidState) {
		t.Errorf("double pay: error = %v, want InvalidState", err)
	}
}

func TestApproveReimbursement_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.ApproveReimbursement(9999)
	if !IsKind(err, KindTransactionNotFound) {
		t.Errorf("error = %v, want TransactionNotFound", err)
	}
}

// ---------- loans and transfers ----------

func TestRecordLoan_Direction(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	aliceAcc := createUserAccount(t, db, alice.ID, "Wallet")
	bobAcc := createUserAccount(t, db, bob.ID, "Wallet")

	// alice lends to bob: she owns the lender account
	lend, err := svc.RecordLoan(LoanInput{
		UserID:            alice.ID,
		LenderAccountID:   aliceAcc.ID,
		BorrowerAccountID: bobAcc.ID,
		Amount:            dec("25.00"),
	})
	if err != nil {
		t.Fatalf("RecordLoan() error = %v", err)
	}
	if lend.Type != models.TxnLend {
		t.Errorf("type = %q, want lend", lend.Type)
	}

	// alice records borrowing from bob: bob owns the lender account
	borrow, err := svc.RecordLoan(LoanInput{
		UserID:            alice.ID,
		LenderAccountID:   bobAcc.ID,
		BorrowerAccountID: aliceAcc.ID,
		Amount:            dec("25.00"),
	})
	if err != nil {
		t.Fatalf("RecordLoan() error = %v", err)
	}
	if borrow.Type != models.TxnBorrow {
		t.Errorf("type = %q, want borrow", borrow.Type)
	}
}

func TestRecordLoan_MissingAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	acc := createUserAccount(t, db, alice.ID, "Wallet")

	_, err := svc.RecordLoan(LoanInput{
		UserID:            alice.ID,
		LenderAccountID:   acc.ID,
		BorrowerAccountID: 9999,
		Amount:            dec("25.00"),
	})
	if !IsKind(err, KindInvalidAccounts) {
		t.Errorf("error = %v, want InvalidAccounts", err)
	}
}

func TestTransfer(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	from := createUserAccount(t, db, alice.ID, "Bank")
	to := createUserAccount(t, db, alice.ID, "Wallet")

	txn, err := svc.Transfer(TransferInput{
		UserID:        alice.ID,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("40.00"),
	})
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if txn.Type != models.TxnTransfer {
		t.Errorf("type = %q, want transfer", txn.Type)
	}
	for _, e := range txn.Entries {
		if e.AccountID == to.ID && !e.Amount.Equal(dec("40.00")) {
			t.Errorf("destination entry = %s, want 40.00", e.Amount)
		}
		if e.AccountID == from.ID && !e.Amount.Equal(dec("-40.00")) {
			t.Errorf("source entry = %s, want -40.00", e.Amount)
		}
	}
}

func TestTransfer_NotOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	from := createUserAccount(t, db, bob.ID, "Bank")
	to := createUserAccount(t, db, alice.ID, "Wallet")

	_, err := svc.Transfer(TransferInput{
		UserID:        alice.ID,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("40.00"),
	})
	if !IsKind(err, KindInvalidAccount) {
		t.Errorf("error = %v, want InvalidAccount", err)
	}
}

// ---------- accounts ----------

func TestCreateAccount_OwnerRequired(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	club := createClub(t, db, "Chess Club", user.ID)

	cases := []struct {
		name   string
		input  AccountInput
		wantOK bool
	}{
		{"no owner", AccountInput{Type: models.AccountTypeAsset, Name: "X"}, false},
		{"both owners", AccountInput{UserID: &user.ID, ClubID: &club.ID, Type: models.AccountTypeAsset, Name: "X"}, false},
		{"user owner", AccountInput{UserID: &user.ID, Type: models.AccountTypeAsset, Name: "X"}, true},
		{"club owner", AccountInput{ClubID: &club.ID, Type: models.AccountTypeAsset, Name: "X"}, true},
	}
	for _, tc := range cases {
		_, err := svc.CreateAccount(tc.input)
		if tc.wantOK && err != nil {
			t.Errorf("%s: error = %v, want nil", tc.name, err)
		}
		if !tc.wantOK && !IsKind(err, KindInvalidOwner) {
			t.Errorf("%s: error = %v, want InvalidOwner", tc.name, err)
		}
	}
}

func TestArchiveAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")
	acc := createUserAccount(t, db, user.ID, "Wallet")

	if err := svc.ArchiveAccount(user.ID, acc.ID); err != nil {
		t.Fatalf("ArchiveAccount() error = %v", err)
	}

	var archived models.Account
	db.First(&archived, acc.ID)
	if archived.ArchivedAt == nil {
		t.Error("ArchivedAt not set")
	}

	// archived accounts cannot take new expenses
	_, err := svc.RecordExpense(ExpenseInput{
		UserID:      user.ID,
		AccountID:   acc.ID,
		TotalAmount: dec("10.00"),
	})
	if !IsKind(err, KindInvalidAccount) {
		t.Errorf("expense on archived account: error = %v, want InvalidAccount", err)
	}
}

// ---------- reports ----------

func TestNetBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	aliceAcc := createUserAccount(t, db, alice.ID, "Wallet")
	bobAcc := createUserAccount(t, db, bob.ID, "Wallet")

	// alice lends bob 25: her account is credited -25
	if _, err := svc.RecordLoan(LoanInput{
		UserID:            alice.ID,
		LenderAccountID:   aliceAcc.ID,
		BorrowerAccountID: bobAcc.ID,
		Amount:            dec("25.00"),
	}); err != nil {
		t.Fatalf("loan: %v", err)
	}

	report, err := svc.NetBalance(alice.ID)
	if err != nil {
		t.Fatalf("NetBalance() error = %v", err)
	}
	if len(report.Accounts) != 1 {
		t.Fatalf("accounts = %d, want 1", len(report.Accounts))
	}
	if !report.Accounts[0].Balance.Equal(dec("-25.00")) {
		t.Errorf("wallet balance = %s, want -25.00", report.Accounts[0].Balance)
	}
	if !report.Total.Equal(dec("-25.00")) {
		t.Errorf("total = %s, want -25.00", report.Total)
	}
	if !report.LoanReceivable.Equal(dec("25.00")) {
		t.Errorf("loan receivable = %s, want 25.00", report.LoanReceivable)
	}
	if !report.LoanPayable.IsZero() {
		t.Errorf("loan payable = %s, want 0", report.LoanPayable)
	}
	if report.Currency != "HKD" {
		t.Errorf("currency = %q, want HKD", report.Currency)
	}

	// borrower side
	bobReport, err := svc.NetBalance(bob.ID)
	if err != nil {
		t.Fatalf("NetBalance() error = %v", err)
	}
	if !bobReport.LoanPayable.Equal(dec("25.00")) {
		t.Errorf("bob loan payable = %s, want 25.00", bobReport.LoanPayable)
	}
}

func TestNetBalance_NoAccounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user := createUser(t, db, "alice")

	report, err := svc.NetBalance(user.ID)
	if err != nil {
		t.Fatalf("NetBalance() error = %v", err)
	}
	if report.Currency != DefaultCurrency {
		t.Errorf("currency = %q, want %q", report.Currency, DefaultCurrency)
	}
	if !report.Total.IsZero() {
		t.Errorf("total = %s, want 0", report.Total)
	}
}

func TestNetBalance_PendingReimbursements(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	user, club, expense := setupExpense(t, db, svc)

	if _, err := svc.RequestReimbursement(user.ID, club.ID, expense.ID); err != nil {
		t.Fatalf("request: %v", err)
	}

	report, err := svc.NetBalance(user.ID)
	if err != nil {
		t.Fatalf("NetBalance() error = %v", err)
	}
	if !report.PendingReimbursements.Equal(dec("80.00")) {
		t.Errorf("pending = %s, want 80.00", report.PendingReimbursements)
	}
}

func TestClubLedger(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	club := createClub(t, db, "Chess Club", alice.ID)
	clubAcc := createClubAccount(t, db, club.ID, "Club Cash")
	event := models.Event{ClubID: club.ID, Name: "Open Day"}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	if _, err := svc.RecordExpense(ExpenseInput{
		UserID:      alice.ID,
		AccountID:   clubAcc.ID,
		ClubID:      &club.ID,
		TotalAmount: dec("120.00"),
		Description: "Venue",
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}
	if _, err := svc.RecordEventPayment(alice.ID, club.ID, clubAcc.ID, event.ID,
		dec("300.00"), "HKD", "Ticket sales"); err != nil {
		t.Fatalf("event payment: %v", err)
	}

	report, err := svc.ClubLedger(club.ID, ReportFilter{})
	if err != nil {
		t.Fatalf("ClubLedger() error = %v", err)
	}
	if !report.TotalIncome.Equal(dec("300.00")) {
		t.Errorf("income = %s, want 300.00", report.TotalIncome)
	}
	if !report.TotalExpenses.Equal(dec("120.00")) {
		t.Errorf("expenses = %s, want 120.00", report.TotalExpenses)
	}
	if !report.NetBalance.Equal(dec("180.00")) {
		t.Errorf("net = %s, want 180.00", report.NetBalance)
	}
	if report.Total != 2 {
		t.Errorf("matched transactions = %d, want 2", report.Total)
	}
	for _, txn := range report.Transactions {
		if txn.Entries == nil {
			t.Error("transactions should eager-load entries")
		}
	}

	// event filter narrows to the ticket sale
	filtered, err := svc.ClubLedger(club.ID, ReportFilter{EventID: &event.ID})
	if err != nil {
		t.Fatalf("ClubLedger() error = %v", err)
	}
	if filtered.Total != 1 {
		t.Errorf("filtered transactions = %d, want 1", filtered.Total)
	}
	if !filtered.TotalExpenses.IsZero() {
		t.Errorf("filtered expenses = %s, want 0", filtered.TotalExpenses)
	}
}

func TestClubLedger_Pagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	club := createClub(t, db, "Chess Club", alice.ID)
	clubAcc := createClubAccount(t, db, club.ID, "Club Cash")

	for i := 0; i < 5; i++ {
		if _, err := svc.RecordExpense(ExpenseInput{
			UserID:      alice.ID,
			AccountID:   clubAcc.ID,
			ClubID:      &club.ID,
			TotalAmount: dec("10.00"),
			OccurredAt:  time.Now().Add(time.Duration(-i) * time.Hour),
		}); err != nil {
			t.Fatalf("expense %d: %v", i, err)
		}
	}

	report, err := svc.ClubLedger(club.ID, ReportFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ClubLedger() error = %v", err)
	}
	if report.Total != 5 {
		t.Errorf("total = %d, want 5", report.Total)
	}
	if len(report.Transactions) != 2 {
		t.Errorf("page size = %d, want 2", len(report.Transactions))
	}
	if report.Page != 2 {
		t.Errorf("page = %d, want 2", report.Page)
	}
}

func TestListTransactions_DefaultScope(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	aliceAcc := createUserAccount(t, db, alice.ID, "Wallet")
	bobAcc := createUserAccount(t, db, bob.ID, "Wallet")

	if _, err := svc.RecordExpense(ExpenseInput{
		UserID: alice.ID, AccountID: aliceAcc.ID, TotalAmount: dec("10.00"),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}
	if _, err := svc.RecordExpense(ExpenseInput{
		UserID: bob.ID, AccountID: bobAcc.ID, TotalAmount: dec("20.00"),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	page, err := svc.ListTransactions(alice.ID, TxnFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1 (acting user scope)", page.Total)
	}
	if page.Transactions[0].CreatedBy != alice.ID {
		t.Errorf("created_by = %d, want %d", page.Transactions[0].CreatedBy, alice.ID)
	}
	if page.Limit != 20 {
		t.Errorf("default limit = %d, want 20", page.Limit)
	}
}
