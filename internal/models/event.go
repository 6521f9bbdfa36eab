package models

import "time"

// Event groups club transactions (ticket income, event expenses) for reporting.
type Event struct {
	ID        uint   `gorm:"primaryKey"`
	ClubID    uint   `gorm:"index;not null"`
	Name      string `gorm:"size:128;not null"`
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
