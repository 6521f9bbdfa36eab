package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/RovierrHQ/rovierr/internal/models"

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
		&models.Form{}, &models.Page{}, &models.Question{}, &models.FormResponse{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createDraftForm(t *testing.T, svc *Service) *models.Form {
	t.Helper()
	form, err := svc.CreateForm(1, 1, "Membership Application", "")
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	return form
}

func TestFormLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)
	if form.Status != models.FormDraft {
		t.Fatalf("status = %q, want draft", form.Status)
	}

	result, err := svc.Publish(form.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !result.Valid {
		t.Fatalf("publish validation failed: %v", result.Errors)
	}

	// publishing twice is an invalid transition
	if _, err := svc.Publish(form.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("second publish: error = %v, want ErrInvalidStatus", err)
	}

	if err := svc.Close(form.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.Close(form.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("second close: error = %v, want ErrInvalidStatus", err)
	}

	if err := svc.Archive(form.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := svc.Archive(form.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("second archive: error = %v, want ErrInvalidStatus", err)
	}
}

func TestPublish_InvalidLogicRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)

	if _, err := svc.AddQuestion(form.ID, models.Question{Title: "Q1", Type: models.QShortText}); err != nil {
		t.Fatalf("add question: %v", err)
	}
	dangling := uint(9999)
	if _, err := svc.AddQuestion(form.ID, models.Question{
		Title: "Q2", Type: models.QShortText,
		ConditionalLogicEnabled: true,
		SourceQuestionID:        &dangling,
		Condition:               models.CondEquals,
		ConditionValue:          "x",
	}); err != nil {
		t.Fatalf("add question: %v", err)
	}

	result, err := svc.Publish(form.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Valid {
		t.Fatal("publish accepted invalid conditional logic")
	}

	// the form must remain draft
	got, err := svc.GetForm(form.ID)
	if err != nil {
		t.Fatalf("get form: %v", err)
	}
	if got.Status != models.FormDraft {
		t.Errorf("status = %q, want draft after failed publish", got.Status)
	}
}

func TestStructureLockedAfterPublish(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)

	q, err := svc.AddQuestion(form.ID, models.Question{Title: "Name", Type: models.QShortText})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if _, err := svc.Publish(form.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if _, err := svc.AddQuestion(form.ID, models.Question{Title: "Late", Type: models.QShortText}); !errors.Is(err, ErrNotDraft) {
		t.Errorf("add after publish: error = %v, want ErrNotDraft", err)
	}
	if _, err := svc.UpdateQuestion(form.ID, q.ID, *q); !errors.Is(err, ErrNotDraft) {
		t.Errorf("update after publish: error = %v, want ErrNotDraft", err)
	}
	if err := svc.DeleteQuestion(form.ID, q.ID); !errors.Is(err, ErrNotDraft) {
		t.Errorf("delete after publish: error = %v, want ErrNotDraft", err)
	}
}

func TestDeleteQuestion(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)

	q, err := svc.AddQuestion(form.ID, models.Question{Title: "Name", Type: models.QShortText})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if err := svc.DeleteQuestion(form.ID, q.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if err := svc.DeleteQuestion(form.ID, q.ID); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("second delete: error = %v, want ErrQuestionNotFound", err)
	}
}

func TestSubmitResponse(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)

	gate, err := svc.AddQuestion(form.ID, models.Question{
		Title: "Any experience?", Type: models.QMultipleChoice,
		Required: true, Options: `["Yes","No"]`,
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	detail, err := svc.AddQuestion(form.ID, models.Question{
		Title: "Tell us more", Type: models.QLongText, Required: true,
		ConditionalLogicEnabled: true,
		SourceQuestionID:        &gate.ID,
		Condition:               models.CondEquals,
		ConditionValue:          "Yes",
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if _, err := svc.Publish(form.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// hidden branch: the detail answer is stale and must be dropped
	resp, err := svc.SubmitResponse(form.ID, 7, map[uint]interface{}{
		gate.ID:   "No",
		detail.ID: "stale text",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var answers map[string]interface{}
	if err := json.Unmarshal([]byte(resp.Answers), &answers); err != nil {
		t.Fatalf("decode answers: %v", err)
	}
	if _, ok := answers[fmt.Sprint(detail.ID)]; ok {
		t.Error("hidden question's answer was persisted")
	}
	if answers[fmt.Sprint(gate.ID)] != "No" {
		t.Errorf("gate answer = %v, want No", answers[fmt.Sprint(gate.ID)])
	}

	// visible branch: the detail question becomes required
	_, err = svc.SubmitResponse(form.ID, 7, map[uint]interface{}{gate.ID: "Yes"})
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("submit without detail: error = %v, want SubmissionError", err)
	}
	if _, ok := subErr.QuestionErrors[detail.ID]; !ok {
		t.Errorf("question errors = %v, want entry for question %d", subErr.QuestionErrors, detail.ID)
	}

	if _, err := svc.SubmitResponse(form.ID, 7, map[uint]interface{}{
		gate.ID:   "Yes",
		detail.ID: "Two years of robotics",
	}); err != nil {
		t.Errorf("complete submission rejected: %v", err)
	}
}

func TestSubmitResponse_FormNotOpen(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)

	if _, err := svc.SubmitResponse(form.ID, 7, nil); !errors.Is(err, ErrFormNotOpen) {
		t.Errorf("submit to draft: error = %v, want ErrFormNotOpen", err)
	}
}

func TestVisibilityEndpointData(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	form := createDraftForm(t, svc)

	gate, err := svc.AddQuestion(form.ID, models.Question{
		Title: "Member?", Type: models.QMultipleChoice, Options: `["Yes","No"]`,
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	dep, err := svc.AddQuestion(form.ID, models.Question{
		Title: "Member ID", Type: models.QShortText,
		ConditionalLogicEnabled: true,
		SourceQuestionID:        &gate.ID,
		Condition:               models.CondEquals,
		ConditionValue:          "Yes",
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	visible, err := svc.Visibility(form.ID, map[uint]interface{}{gate.ID: "Yes"})
	if err != nil {
		t.Fatalf("visibility: %v", err)
	}
	if !visible[gate.ID] || !visible[dep.ID] {
		t.Errorf("visible = %v, want both shown", visible)
	}

	visible, err = svc.Visibility(form.ID, nil)
	if err != nil {
		t.Fatalf("visibility: %v", err)
	}
	if visible[dep.ID] {
		t.Error("dependent question should be hidden with no responses")
	}
}

func TestGetForm_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	if _, err := svc.GetForm(42); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("error = %v, want ErrFormNotFound", err)
	}
}
