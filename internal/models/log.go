package models

import "time"

// AuditLog records important operations for auditing.
type AuditLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	Path      string `gorm:"size:255"`
	Method    string `gorm:"size:16"`
	Action    string `gorm:"size:1024"`
	IP        string `gorm:"size:64"`
	UserAgent string `gorm:"size:255"`
	Metadata  string `gorm:"size:2048"` // request body digest
	CreatedAt time.Time
}
