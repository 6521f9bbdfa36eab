package seed

import (
	"time"

	"github.com/RovierrHQ/rovierr/internal/ledger"
	"github.com/RovierrHQ/rovierr/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultModules is the static seed registry, in dependency order.
func DefaultModules() []Module {
	return []Module{
		{Name: "users", Run: seedUsers},
		{Name: "clubs", Run: seedClubs},
		{Name: "accounts", Run: seedAccounts},
		{Name: "tags", Run: seedTags},
		{Name: "transactions", Run: seedTransactions},
		{Name: "forms", Run: seedForms},
	}
}

var demoUsers = []struct {
	Username, DisplayName string
}{
	{"alice", "Alice Chan"},
	{"bob", "Bob Lee"},
	{"carol", "Carol Wong"},
}

func seedUsers(tx *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("Seed1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	for _, u := range demoUsers {
		user := models.User{
			Username:     u.Username,
			PasswordHash: string(hash),
			DisplayName:  u.DisplayName,
		}
		if err := tx.Where("username = ?", u.Username).
			FirstOrCreate(&user).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedClubs(tx *gorm.DB) error {
	var alice models.User
	if err := tx.Where("username = ?", "alice").First(&alice).Error; err != nil {
		return err
	}

	club := models.Club{Name: "Robotics Club", Description: "Campus robotics society", CreatedBy: alice.ID}
	if err := tx.Where("name = ?", club.Name).FirstOrCreate(&club).Error; err != nil {
		return err
	}

	var users []models.User
	if err := tx.Find(&users).Error; err != nil {
		return err
	}
	for i, u := range users {
		role := "member"
		if i == 0 {
			role = "owner"
		}
		member := models.ClubMember{ClubID: club.ID, UserID: u.ID, Role: role}
		if err := tx.Where("club_id = ? AND user_id = ?", club.ID, u.ID).
			FirstOrCreate(&member).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAccounts(tx *gorm.DB) error {
	var club models.Club
	if err := tx.Where("name = ?", "Robotics Club").First(&club).Error; err != nil {
		return err
	}
	clubCash := models.Account{ClubID: &club.ID, Type: models.AccountTypeAsset, Name: "Club Cash", Currency: "HKD"}
	if err := firstOrCreateAccount(tx, &clubCash); err != nil {
		return err
	}

	var users []models.User
	if err := tx.Find(&users).Error; err != nil {
		return err
	}
	for i := range users {
		uid := users[i].ID
		wallet := models.Account{UserID: &uid, Type: models.AccountTypeAsset, Name: "Wallet", Currency: "HKD"}
		if err := firstOrCreateAccount(tx, &wallet); err != nil {
			return err
		}
	}
	return nil
}

func firstOrCreateAccount(tx *gorm.DB, acc *models.Account) error {
	q := tx.Where("type = ? AND name = ?", acc.Type, acc.Name)
	if acc.ClubID != nil {
		q = q.Where("club_id = ?", *acc.ClubID)
	} else {
		q = q.Where("user_id = ?", *acc.UserID)
	}
	return q.FirstOrCreate(acc).Error
}

func seedTags(tx *gorm.DB) error {
	var club models.Club
	if err := tx.Where("name = ?", "Robotics Club").First(&club).Error; err != nil {
		return err
	}
	for _, name := range []string{"Equipment", "Food", "Venue"} {
		cat := models.Category{ClubID: club.ID, Name: name}
		if err := tx.Where("club_id = ? AND name = ?", club.ID, name).
			FirstOrCreate(&cat).Error; err != nil {
			return err
		}
	}
	event := models.Event{ClubID: club.ID, Name: "Orientation Night"}
	return tx.Where("club_id = ? AND name = ?", club.ID, event.Name).
		FirstOrCreate(&event).Error
}

func seedTransactions(tx *gorm.DB) error {
	// skip when transactions already exist; this module is not re-runnable
	// row by row because references are generated
	var count int64
	if err := tx.Model(&models.Transaction{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var alice models.User
	if err := tx.Where("username = ?", "alice").First(&alice).Error; err != nil {
		return err
	}
	var wallet models.Account
	if err := tx.Where("user_id = ? AND name = ?", alice.ID, "Wallet").First(&wallet).Error; err != nil {
		return err
	}

	svc := ledger.NewService(tx)
	_, err := svc.RecordExpense(ledger.ExpenseInput{
		UserID:      alice.ID,
		AccountID:   wallet.ID,
		TotalAmount: decimal.NewFromFloat(150.00),
		Currency:    "HKD",
		Description: "Soldering kit",
		OccurredAt:  time.Now().AddDate(0, 0, -3),
	})
	return err
}

func seedForms(tx *gorm.DB) error {
	var club models.Club
	if err := tx.Where("name = ?", "Robotics Club").First(&club).Error; err != nil {
		return err
	}
	var alice models.User
	if err := tx.Where("username = ?", "alice").First(&alice).Error; err != nil {
		return err
	}

	form := models.Form{
		ClubID:    club.ID,
		CreatedBy: alice.ID,
		Title:     "Membership Application",
		Status:    models.FormDraft,
	}
	if err := tx.Where("club_id = ? AND title = ?", club.ID, form.Title).
		FirstOrCreate(&form).Error; err != nil {
		return err
	}

	var count int64
	if err := tx.Model(&models.Question{}).Where("form_id = ?", form.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	experience := models.Question{
		FormID:   form.ID,
		Title:    "Do you have robotics experience?",
		Type:     models.QMultipleChoice,
		Required: true,
		Order:    1,
		Options:  `["Yes","No"]`,
	}
	if err := tx.Create(&experience).Error; err != nil {
		return err
	}

	details := models.Question{
		FormID:                  form.ID,
		Title:                   "Tell us about your experience",
		Type:                    models.QLongText,
		Order:                   2,
		ConditionalLogicEnabled: true,
		SourceQuestionID:        &experience.ID,
		Condition:               models.CondEquals,
		ConditionValue:          "Yes",
	}
	return tx.Create(&details).Error
}
