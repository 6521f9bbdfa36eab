package models

import "time"

// Category tags club transactions for reporting.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	ClubID    uint   `gorm:"index;not null"`
	Name      string `gorm:"size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
