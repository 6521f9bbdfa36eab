package handler

import (
	"net/http"
	"strconv"

	"github.com/RovierrHQ/rovierr/internal/middleware"
	"github.com/RovierrHQ/rovierr/internal/models"
	"github.com/RovierrHQ/rovierr/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ClubHandler serves club membership plus the club-scoped category and
// event tagging entities.
type ClubHandler struct {
	DB *gorm.DB
}

func NewClubHandler(db *gorm.DB) *ClubHandler {
	return &ClubHandler{DB: db}
}

type createClubReq struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=2000"`
}

func (h *ClubHandler) CreateClub(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createClubReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	club := models.Club{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   user.ID,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&club).Error; err != nil {
			return err
		}
		member := models.ClubMember{ClubID: club.ID, UserID: user.ID, Role: "owner"}
		return tx.Create(&member).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create club")
		return
	}

	util.Success(c, util.Response{"club": club})
}

func (h *ClubHandler) ListClubs(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var clubs []models.Club
	if err := h.DB.
		Joins("JOIN club_members ON club_members.club_id = clubs.id").
		Where("club_members.user_id = ?", user.ID).
		Find(&clubs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	util.Success(c, util.Response{"clubs": clubs})
}

func (h *ClubHandler) JoinClub(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	clubID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid club id")
		return
	}

	var club models.Club
	if err := h.DB.First(&club, clubID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "club not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	member := models.ClubMember{ClubID: club.ID, UserID: user.ID, Role: "member"}
	if err := h.DB.Create(&member).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "already a member")
		return
	}

	util.Success(c, util.Response{"member": member})
}

type createCategoryReq struct {
	ClubID uint   `json:"club_id" binding:"required"`
	Name   string `json:"name" binding:"required,max=64"`
}

func (h *ClubHandler) CreateCategory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}
	if !h.isMember(req.ClubID, user.ID) {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "not a member of this club")
		return
	}

	cat := models.Category{ClubID: req.ClubID, Name: req.Name}
	if err := h.DB.Create(&cat).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create category")
		return
	}
	util.Success(c, util.Response{"category": cat})
}

func (h *ClubHandler) ListCategories(c *gin.Context) {
	clubID, err := strconv.Atoi(c.Query("club_id"))
	if err != nil || clubID <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid club id")
		return
	}

	var cats []models.Category
	if err := h.DB.Where("club_id = ?", clubID).Order("name ASC").Find(&cats).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	util.Success(c, util.Response{"categories": cats})
}

type createEventReq struct {
	ClubID uint   `json:"club_id" binding:"required"`
	Name   string `json:"name" binding:"required,max=128"`
}

func (h *ClubHandler) CreateEvent(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}
	if !h.isMember(req.ClubID, user.ID) {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "not a member of this club")
		return
	}

	event := models.Event{ClubID: req.ClubID, Name: req.Name}
	if err := h.DB.Create(&event).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create event")
		return
	}
	util.Success(c, util.Response{"event": event})
}

func (h *ClubHandler) ListEvents(c *gin.Context) {
	clubID, err := strconv.Atoi(c.Query("club_id"))
	if err != nil || clubID <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid club id")
		return
	}

	var events []models.Event
	if err := h.DB.Where("club_id = ?", clubID).Order("id DESC").Find(&events).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	util.Success(c, util.Response{"events": events})
}

func (h *ClubHandler) isMember(clubID, userID uint) bool {
	var count int64
	h.DB.Model(&models.ClubMember{}).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Count(&count)
	return count > 0
}

// pathID parses a positive uint path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}
