package models

import "time"

// Club is the tenancy unit: accounts, transactions, events and forms
// are scoped to the club that owns them.
type Club struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:128;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CreatedBy   uint   `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClubMember links a user to a club with a role.
type ClubMember struct {
	ID        uint   `gorm:"primaryKey"`
	ClubID    uint   `gorm:"uniqueIndex:idx_club_user;not null"`
	UserID    uint   `gorm:"uniqueIndex:idx_club_user;not null"`
	Role      string `gorm:"size:32;not null;default:member"` // owner / admin / member
	CreatedAt time.Time

	Club Club `gorm:"constraint:OnDelete:CASCADE"`
	User User `gorm:"constraint:OnDelete:CASCADE"`
}
