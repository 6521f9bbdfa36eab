package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/RovierrHQ/rovierr/internal/models"

	"gorm.io/gorm"
)

var (
	ErrFormNotFound     = errors.New("form not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotDraft         = errors.New("form structure can only change while draft")
	ErrInvalidStatus    = errors.New("invalid form status transition")
	ErrFormNotOpen      = errors.New("form is not accepting responses")
)

// SubmissionError carries per-question validation failures for one
// submission attempt.
type SubmissionError struct {
	QuestionErrors map[uint]string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed validation for %d question(s)", len(e.QuestionErrors))
}

// Service manages dynamic forms: structure CRUD, the publish lifecycle, and
// the submission path gated by resolved visibility.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateForm creates a draft form for a club.
func (s *Service) CreateForm(clubID, userID uint, title, description string) (*models.Form, error) {
	form := models.Form{
		ClubID:      clubID,
		CreatedBy:   userID,
		Title:       title,
		Description: description,
		Status:      models.FormDraft,
	}
	if err := s.db.Create(&form).Error; err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	return &form, nil
}

// GetForm loads a form with its ordered pages and questions.
func (s *Service) GetForm(id uint) (*models.Form, error) {
	var form models.Form
	err := s.db.
		Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC, id ASC") }).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC, id ASC") }).
		First(&form, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("load form %d: %w", id, err)
	}
	return &form, nil
}

// ListForms returns a club's forms, newest first.
func (s *Service) ListForms(clubID uint) ([]models.Form, error) {
	var forms []models.Form
	if err := s.db.Where("club_id = ?", clubID).Order("id DESC").Find(&forms).Error; err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

// UpdateForm changes the form's title and description.
func (s *Service) UpdateForm(id uint, title, description string) (*models.Form, error) {
	form, err := s.GetForm(id)
	if err != nil {
		return nil, err
	}
	form.Title = title
	form.Description = description
	if err := s.db.Model(form).Updates(map[string]interface{}{
		"title":       title,
		"description": description,
	}).Error; err != nil {
		return nil, fmt.Errorf("update form %d: %w", id, err)
	}
	return form, nil
}

// Publish moves a draft form to published after verifying its conditional
// logic. A form with invalid rules cannot be published.
func (s *Service) Publish(id uint) (ValidationResult, error) {
	form, err := s.GetForm(id)
	if err != nil {
		return ValidationResult{}, err
	}
	if form.Status != models.FormDraft {
		return ValidationResult{}, ErrInvalidStatus
	}

	result := ValidateConditionalLogic(form.Questions)
	if !result.Valid {
		return result, nil
	}

	if err := s.db.Model(form).Update("status", models.FormPublished).Error; err != nil {
		return result, fmt.Errorf("publish form %d: %w", id, err)
	}
	return result, nil
}

// Close stops a published form from accepting responses.
func (s *Service) Close(id uint) error {
	return s.transition(id, models.FormPublished, models.FormClosed)
}

// Archive retires a form. Any non-archived form may be archived.
func (s *Service) Archive(id uint) error {
	form, err := s.GetForm(id)
	if err != nil {
		return err
	}
	if form.Status == models.FormArchived {
		return ErrInvalidStatus
	}
	if err := s.db.Model(form).Update("status", models.FormArchived).Error; err != nil {
		return fmt.Errorf("archive form %d: %w", id, err)
	}
	return nil
}

func (s *Service) transition(id uint, from, to string) error {
	form, err := s.GetForm(id)
	if err != nil {
		return err
	}
	if form.Status != from {
		return ErrInvalidStatus
	}
	if err := s.db.Model(form).Update("status", to).Error; err != nil {
		return fmt.Errorf("transition form %d to %s: %w", id, to, err)
	}
	return nil
}

// AddPage appends a page to a draft form.
func (s *Service) AddPage(formID uint, page models.Page) (*models.Page, error) {
	if err := s.requireDraft(formID); err != nil {
		return nil, err
	}
	page.FormID = formID
	if err := s.db.Create(&page).Error; err != nil {
		return nil, fmt.Errorf("add page: %w", err)
	}
	return &page, nil
}

// AddQuestion appends a question to a draft form.
func (s *Service) AddQuestion(formID uint, q models.Question) (*models.Question, error) {
	if err := s.requireDraft(formID); err != nil {
		return nil, err
	}
	q.FormID = formID
	if err := s.db.Create(&q).Error; err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	return &q, nil
}

// UpdateQuestion replaces a draft question's definition.
func (s *Service) UpdateQuestion(formID, questionID uint, q models.Question) (*models.Question, error) {
	if err := s.requireDraft(formID); err != nil {
		return nil, err
	}
	var existing models.Question
	if err := s.db.Where("id = ? AND form_id = ?", questionID, formID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("load question %d: %w", questionID, err)
	}
	q.ID = existing.ID
	q.FormID = formID
	if err := s.db.Save(&q).Error; err != nil {
		return nil, fmt.Errorf("update question %d: %w", questionID, err)
	}
	return &q, nil
}

// DeleteQuestion removes a draft question.
func (s *Service) DeleteQuestion(formID, questionID uint) error {
	if err := s.requireDraft(formID); err != nil {
		return err
	}
	res := s.db.Where("id = ? AND form_id = ?", questionID, formID).Delete(&models.Question{})
	if res.Error != nil {
		return fmt.Errorf("delete question %d: %w", questionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *Service) requireDraft(formID uint) error {
	var form models.Form
	if err := s.db.First(&form, formID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrFormNotFound
		}
		return fmt.Errorf("load form %d: %w", formID, err)
	}
	if form.Status != models.FormDraft {
		return ErrNotDraft
	}
	return nil
}

// ValidateLogic runs the full conditional-logic validation for a form.
func (s *Service) ValidateLogic(formID uint) (ValidationResult, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return ValidationResult{}, err
	}
	return ValidateConditionalLogic(form.Questions), nil
}

// Visibility resolves which questions of a form are visible for the given
// in-progress responses.
func (s *Service) Visibility(formID uint, responses map[uint]interface{}) (map[uint]bool, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return nil, err
	}
	return ResolveVisibility(form.Questions, responses), nil
}

// SubmitResponse validates and persists one submission against a published
// form. Hidden-question answers are dropped, visible questions are validated
// with their full schema, and all violations are reported together.
func (s *Service) SubmitResponse(formID, userID uint, responses map[uint]interface{}) (*models.FormResponse, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if form.Status != models.FormPublished {
		return nil, ErrFormNotOpen
	}

	visible := ResolveVisibility(form.Questions, responses)
	cleaned := CleanupResponses(responses, visible)

	qErrs := make(map[uint]string)
	for i := range form.Questions {
		q := &form.Questions[i]
		if !visible[q.ID] {
			continue
		}
		schema := Compile(q)
		if err := schema.Validate(cleaned[q.ID]); err != nil {
			qErrs[q.ID] = err.Error()
		}
	}
	if len(qErrs) > 0 {
		return nil, &SubmissionError{QuestionErrors: qErrs}
	}

	// answers persisted keyed by question id
	byKey := make(map[string]interface{}, len(cleaned))
	for id, v := range cleaned {
		byKey[strconv.FormatUint(uint64(id), 10)] = v
	}
	raw, err := json.Marshal(byKey)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	resp := models.FormResponse{
		FormID:      formID,
		SubmittedBy: userID,
		Answers:     string(raw),
	}
	if err := s.db.Create(&resp).Error; err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	return &resp, nil
}
