package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/RovierrHQ/rovierr/internal/forms"
	"github.com/RovierrHQ/rovierr/internal/middleware"
	"github.com/RovierrHQ/rovierr/internal/models"
	"github.com/RovierrHQ/rovierr/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FormHandler serves the dynamic-form API: structure CRUD, lifecycle,
// conditional-logic validation, visibility preview and submission.
type FormHandler struct {
	DB    *gorm.DB
	Forms *forms.Service
}

func NewFormHandler(db *gorm.DB) *FormHandler {
	return &FormHandler{DB: db, Forms: forms.NewService(db)}
}

func (h *FormHandler) formError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, forms.ErrFormNotFound), errors.Is(err, forms.ErrQuestionNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, err.Error())
	case errors.Is(err, forms.ErrNotDraft), errors.Is(err, forms.ErrInvalidStatus),
		errors.Is(err, forms.ErrFormNotOpen):
		util.Error(c, http.StatusConflict, util.CodeConflict, err.Error())
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "operation failed")
	}
}

type createFormReq struct {
	ClubID      uint   `json:"club_id" binding:"required"`
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

func (h *FormHandler) CreateForm(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	form, err := h.Forms.CreateForm(req.ClubID, user.ID, req.Title, req.Description)
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"form": form})
}

func (h *FormHandler) GetForm(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	form, err := h.Forms.GetForm(id)
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"form": form})
}

func (h *FormHandler) ListForms(c *gin.Context) {
	clubID, err := strconv.Atoi(c.Query("club_id"))
	if err != nil || clubID <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid club id")
		return
	}

	list, err := h.Forms.ListForms(uint(clubID))
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"forms": list})
}

type updateFormReq struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

func (h *FormHandler) UpdateForm(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	var req updateFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	form, err := h.Forms.UpdateForm(id, req.Title, req.Description)
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"form": form})
}

type questionReq struct {
	PageID   *uint    `json:"page_id"`
	Title    string   `json:"title" binding:"required,max=255"`
	Type     string   `json:"type" binding:"required,max=32"`
	Required bool     `json:"required"`
	Order    int      `json:"order"`
	Options  []string `json:"options"`

	ConditionalLogicEnabled bool   `json:"conditional_logic_enabled"`
	SourceQuestionID        *uint  `json:"source_question_id"`
	Condition               string `json:"condition"`
	ConditionValue          string `json:"condition_value"`

	MinLength     *int     `json:"min_length"`
	MaxLength     *int     `json:"max_length"`
	Pattern       string   `json:"pattern"`
	PatternError  string   `json:"pattern_error"`
	MinValue      *float64 `json:"min_value"`
	MaxValue      *float64 `json:"max_value"`
	MinSelections *int     `json:"min_selections"`
	MaxSelections *int     `json:"max_selections"`
}

func (r *questionReq) toModel() models.Question {
	options := ""
	if len(r.Options) > 0 {
		raw, _ := json.Marshal(r.Options)
		options = string(raw)
	}
	return models.Question{
		PageID:                  r.PageID,
		Title:                   r.Title,
		Type:                    r.Type,
		Required:                r.Required,
		Order:                   r.Order,
		Options:                 options,
		ConditionalLogicEnabled: r.ConditionalLogicEnabled,
		SourceQuestionID:        r.SourceQuestionID,
		Condition:               r.Condition,
		ConditionValue:          r.ConditionValue,
		MinLength:               r.MinLength,
		MaxLength:               r.MaxLength,
		Pattern:                 r.Pattern,
		PatternError:            r.PatternError,
		MinValue:                r.MinValue,
		MaxValue:                r.MaxValue,
		MinSelections:           r.MinSelections,
		MaxSelections:           r.MaxSelections,
	}
}

func (h *FormHandler) AddQuestion(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	formID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	var req questionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	q, err := h.Forms.AddQuestion(formID, req.toModel())
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"question": q})
}

func (h *FormHandler) UpdateQuestion(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	formID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}
	questionID, err := pathID(c, "qid")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid question id")
		return
	}

	var req questionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	q, err := h.Forms.UpdateQuestion(formID, questionID, req.toModel())
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"question": q})
}

func (h *FormHandler) DeleteQuestion(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	formID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}
	questionID, err := pathID(c, "qid")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid question id")
		return
	}

	if err := h.Forms.DeleteQuestion(formID, questionID); err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "question deleted"})
}

type pageReq struct {
	Title string `json:"title" binding:"max=255"`
	Order int    `json:"order"`

	ConditionalLogicEnabled bool   `json:"conditional_logic_enabled"`
	SourceQuestionID        *uint  `json:"source_question_id"`
	Condition               string `json:"condition"`
	ConditionValue          string `json:"condition_value"`
}

func (h *FormHandler) AddPage(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	formID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	var req pageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	page, err := h.Forms.AddPage(formID, models.Page{
		Title:                   req.Title,
		Order:                   req.Order,
		ConditionalLogicEnabled: req.ConditionalLogicEnabled,
		SourceQuestionID:        req.SourceQuestionID,
		Condition:               req.Condition,
		ConditionValue:          req.ConditionValue,
	})
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"page": page})
}

// Publish validates conditional logic and moves the form to published.
// An invalid rule set is returned to the caller instead of publishing.
func (h *FormHandler) Publish(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	result, err := h.Forms.Publish(id)
	if err != nil {
		h.formError(c, err)
		return
	}
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":   util.CodeInvalidParam,
			"valid":  false,
			"errors": result.Errors,
		})
		return
	}
	util.Success(c, util.Response{"valid": true})
}

func (h *FormHandler) Close(c *gin.Context) {
	h.lifecycle(c, h.Forms.Close)
}

func (h *FormHandler) Archive(c *gin.Context) {
	h.lifecycle(c, h.Forms.Archive)
}

func (h *FormHandler) lifecycle(c *gin.Context, fn func(uint) error) {
	if _, ok := middleware.CurrentUser(c); !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	if err := fn(id); err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "ok"})
}

// ValidateLogic reports every conditional-logic violation of the form.
func (h *FormHandler) ValidateLogic(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	result, err := h.Forms.ValidateLogic(id)
	if err != nil {
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"valid": result.Valid, "errors": result.Errors})
}

type responsesReq struct {
	Responses map[string]interface{} `json:"responses" binding:"required"`
}

func (r *responsesReq) byQuestionID() map[uint]interface{} {
	out := make(map[uint]interface{}, len(r.Responses))
	for key, v := range r.Responses {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		out[uint(id)] = v
	}
	return out
}

// Visibility previews which questions are visible for in-progress responses.
func (h *FormHandler) Visibility(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	var req responsesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	visible, err := h.Forms.Visibility(id, req.byQuestionID())
	if err != nil {
		h.formError(c, err)
		return
	}

	visibleIDs := make([]uint, 0, len(visible))
	for qid, ok := range visible {
		if ok {
			visibleIDs = append(visibleIDs, qid)
		}
	}
	util.Success(c, util.Response{"visible_question_ids": visibleIDs})
}

// Submit validates a submission against the published form and stores it.
func (h *FormHandler) Submit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid form id")
		return
	}

	var req responsesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	resp, err := h.Forms.SubmitResponse(id, user.ID, req.byQuestionID())
	if err != nil {
		var subErr *forms.SubmissionError
		if errors.As(err, &subErr) {
			errsByKey := make(map[string]string, len(subErr.QuestionErrors))
			for qid, msg := range subErr.QuestionErrors {
				errsByKey[strconv.FormatUint(uint64(qid), 10)] = msg
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"code":            util.CodeInvalidParam,
				"message":         subErr.Error(),
				"question_errors": errsByKey,
			})
			return
		}
		h.formError(c, err)
		return
	}
	util.Success(c, util.Response{"response": resp})
}
