package database

import (
	"fmt"

	"github.com/RovierrHQ/rovierr/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Club{},
		&models.ClubMember{},
		&models.Account{},
		&models.Transaction{},
		&models.Entry{},
		&models.Split{},
		&models.Attachment{},
		&models.Category{},
		&models.Event{},
		&models.Form{},
		&models.Page{},
		&models.Question{},
		&models.FormResponse{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
