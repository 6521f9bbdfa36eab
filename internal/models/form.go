package models

import "time"

// Form lifecycle: draft → published → closed → archived.
const (
	FormDraft     = "draft"
	FormPublished = "published"
	FormClosed    = "closed"
	FormArchived  = "archived"
)

// Condition operators for conditional visibility rules.
const (
	CondEquals      = "equals"
	CondNotEquals   = "not_equals"
	CondContains    = "contains"
	CondNotContains = "not_contains"
)

// Question types.
const (
	QShortText      = "short-text"
	QLongText       = "long-text"
	QEmail          = "email"
	QPhone          = "phone"
	QNumber         = "number"
	QRating         = "rating"
	QDate           = "date"
	QTime           = "time"
	QMultipleChoice = "multiple-choice"
	QDropdown       = "dropdown"
	QCheckboxes     = "checkboxes"
	QFileUpload     = "file-upload"
)

// Form is a dynamic form container owning ordered pages and questions.
type Form struct {
	ID          uint   `gorm:"primaryKey"`
	ClubID      uint   `gorm:"index;not null"`
	CreatedBy   uint   `gorm:"index;not null"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"size:16;index;not null;default:draft"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Pages     []Page     `gorm:"constraint:OnDelete:CASCADE"`
	Questions []Question `gorm:"constraint:OnDelete:CASCADE"`
}

// Page groups questions and may itself carry a visibility rule.
type Page struct {
	ID        uint   `gorm:"primaryKey"`
	FormID    uint   `gorm:"index;not null"`
	Title     string `gorm:"size:255"`
	Order     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ConditionalLogicEnabled bool   `gorm:"not null;default:false"`
	SourceQuestionID        *uint  `gorm:"index"`
	Condition               string `gorm:"size:16"`
	ConditionValue          string `gorm:"size:255"`
}

// Question carries a type, a required flag, type-specific validation rules
// and an optional conditional-visibility rule. When ConditionalLogicEnabled
// is true all three rule fields must be present, the source must reference an
// existing question, and the source graph must be acyclic.
type Question struct {
	ID        uint   `gorm:"primaryKey"`
	FormID    uint   `gorm:"index;not null"`
	PageID    *uint  `gorm:"index"`
	Title     string `gorm:"size:255;not null"`
	Type      string `gorm:"size:32;not null"`
	Required  bool   `gorm:"not null;default:false"`
	Order     int    `gorm:"not null;default:0"`
	Options   string `gorm:"type:text"` // JSON array of option labels
	CreatedAt time.Time
	UpdatedAt time.Time

	ConditionalLogicEnabled bool   `gorm:"not null;default:false"`
	SourceQuestionID        *uint  `gorm:"index"`
	Condition               string `gorm:"size:16"`
	ConditionValue          string `gorm:"size:255"`

	// type-specific validation rules; nil means unconstrained
	MinLength     *int
	MaxLength     *int
	Pattern       string `gorm:"size:255"`
	PatternError  string `gorm:"size:255"`
	MinValue      *float64
	MaxValue      *float64
	MinSelections *int
	MaxSelections *int
}

// FormResponse stores one submission's answers keyed by question id.
type FormResponse struct {
	ID          uint   `gorm:"primaryKey"`
	FormID      uint   `gorm:"index;not null"`
	SubmittedBy uint   `gorm:"index;not null"`
	Answers     string `gorm:"type:text;not null"` // JSON object, question id → answer
	CreatedAt   time.Time
}
